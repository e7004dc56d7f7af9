package export

import (
	"fmt"
	"strings"
)

// Format names a supported export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Format() Format
	Render(data Dataset) ([]byte, error)
}

// ParseFormat accepts a case-insensitive format name; blank means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension for f without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Registry resolves renderers by format.
type Registry map[Format]Renderer

// NewRegistry registers the CSV, PDF and XLSX renderers.
func NewRegistry() Registry {
	return NewRegistryWith(NewCSVExporter(), NewPDFExporter(), NewXLSXExporter())
}

// NewRegistryWith registers the provided renderers.
func NewRegistryWith(renderers ...Renderer) Registry {
	reg := make(Registry, len(renderers))
	for _, r := range renderers {
		reg[r.Format()] = r
	}
	return reg
}

// Render dispatches to the renderer registered for f.
func (r Registry) Render(f Format, data Dataset) ([]byte, error) {
	renderer, ok := r[f]
	if !ok {
		return nil, fmt.Errorf("no renderer for format %q", f)
	}
	return renderer.Render(data)
}
