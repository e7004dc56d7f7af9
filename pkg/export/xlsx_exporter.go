package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Format implements Renderer.
func (e *XLSXExporter) Format() Format { return FormatXLSX }

// Render writes the header row in bold followed by one row per record.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := SheetName(data.Title)
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(data.Headers))
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}

	for r, row := range data.Rows {
		for i, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, row[header]); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName converts a title into a valid worksheet name (max 31 chars, no []:*?/\).
func SheetName(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if cleaned == "" {
		return defaultSheet
	}
	if runes := []rune(cleaned); len(runes) > 31 {
		cleaned = string(runes[:31])
	}
	return cleaned
}
