package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooManyRows reports a file with more data rows than ReadOptions.MaxRows.
var ErrTooManyRows = errors.New("csv exceeds row limit")

// MissingColumnsError lists required columns absent from the header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ReadOptions configure ReadCSV.
type ReadOptions struct {
	// Aliases maps a normalized header (see NormalizeHeader) to a canonical column key.
	Aliases  map[string]string
	Required []string
	MaxRows  int
}

// Row is one data record keyed by canonical column.
type Row struct {
	Line   int
	Values map[string]string
}

// Table is a parsed CSV file.
type Table struct {
	Columns []string
	Rows    []Row
}

// NormalizeHeader lowercases h and strips whitespace, underscores, dashes and a UTF-8 BOM.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(h)))
}

// ReadCSV parses a header row followed by data rows. Unknown columns are ignored,
// rows whose mapped values are all blank are skipped, and values are trimmed.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MissingColumnsError{Columns: append([]string(nil), opts.Required...)}
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[int]string, len(header))
	seen := make(map[string]bool, len(header))
	columns := make([]string, 0, len(header))
	for i, raw := range header {
		key := NormalizeHeader(raw)
		if opts.Aliases != nil {
			canonical, ok := opts.Aliases[key]
			if !ok {
				continue
			}
			key = canonical
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		index[i] = key
		columns = append(columns, key)
	}

	var missing []string
	for _, req := range opts.Required {
		if !seen[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	table := &Table{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		values := make(map[string]string, len(index))
		blank := true
		for i, key := range index {
			if i >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[i])
			if v != "" {
				blank = false
			}
			values[key] = v
		}
		if blank {
			continue
		}
		if opts.MaxRows > 0 && len(table.Rows) >= opts.MaxRows {
			return nil, ErrTooManyRows
		}
		table.Rows = append(table.Rows, Row{Line: line, Values: values})
	}
	return table, nil
}
