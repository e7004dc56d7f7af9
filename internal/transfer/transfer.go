// Package transfer converts between CSV files and assignment records.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
)

// Canonical import columns.
const (
	ColumnCourse     = "course"
	ColumnAssignment = "assignment"
	ColumnDueDate    = "dueDate"
	ColumnStatus     = "status"
	ColumnLink       = "link"
)

// ExportHeaders is the exported column order: the assignment fields without id and semester id.
var ExportHeaders = []string{"course", "name", "dueDate", "status", "link"}

var (
	// ErrEmpty reports a file with a header but no data rows.
	ErrEmpty = errors.New("csv contains no assignments")
	// ErrTooManyRows reports a file above the configured row limit.
	ErrTooManyRows = export.ErrTooManyRows
)

var headerAliases = map[string]string{
	"course":     ColumnCourse,
	"assignment": ColumnAssignment,
	"name":       ColumnAssignment,
	"duedate":    ColumnDueDate,
	"due":        ColumnDueDate,
	"status":     ColumnStatus,
	"link":       ColumnLink,
	"url":        ColumnLink,
}

var requiredColumns = []string{ColumnCourse, ColumnAssignment, ColumnDueDate, ColumnStatus}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Mon Jan 02 2006",
}

// RowError describes one rejected value in an import file.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// RowErrors is returned when one or more rows fail validation. Nothing from the
// file should be persisted when it is returned.
type RowErrors []RowError

func (e RowErrors) Error() string {
	if len(e) == 0 {
		return "invalid csv rows"
	}
	first := e[0]
	msg := fmt.Sprintf("row %d, column %s: %s", first.Row, first.Column, first.Message)
	if len(e) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e)-1)
	}
	return msg
}

// Options bound an import.
type Options struct {
	MaxRows int
}

// ReadAssignments parses a CSV file into assignment payloads. Missing required
// columns yield *export.MissingColumnsError, invalid values yield RowErrors.
func ReadAssignments(r io.Reader, opts Options) ([]models.AssignmentFields, error) {
	table, err := export.ReadCSV(r, export.ReadOptions{
		Aliases:  headerAliases,
		Required: requiredColumns,
		MaxRows:  opts.MaxRows,
	})
	if err != nil {
		return nil, err
	}
	return FromTable(table)
}

// FromTable maps parsed rows to assignment payloads, collecting every invalid row.
func FromTable(table *export.Table) ([]models.AssignmentFields, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, ErrEmpty
	}

	payloads := make([]models.AssignmentFields, 0, len(table.Rows))
	var rowErrs RowErrors
	for _, row := range table.Rows {
		fields, errs := fromRow(row)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		payloads = append(payloads, fields)
	}
	if len(rowErrs) > 0 {
		return nil, rowErrs
	}
	return payloads, nil
}

func fromRow(row export.Row) (models.AssignmentFields, []RowError) {
	var errs []RowError
	fields := models.AssignmentFields{
		Course: row.Values[ColumnCourse],
		Name:   row.Values[ColumnAssignment],
	}

	rawDue := row.Values[ColumnDueDate]
	due, err := ParseDueDate(rawDue)
	if err != nil {
		errs = append(errs, RowError{Row: row.Line, Column: ColumnDueDate, Value: rawDue, Message: err.Error()})
	}
	fields.DueDate = due

	rawStatus := row.Values[ColumnStatus]
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		errs = append(errs, RowError{
			Row:     row.Line,
			Column:  ColumnStatus,
			Value:   rawStatus,
			Message: fmt.Sprintf("status must be one of %s", joinStatuses()),
		})
	}
	fields.Status = status

	if link := row.Values[ColumnLink]; link != "" {
		fields.Link = &link
	}
	return fields, errs
}

// ParseDueDate accepts the date layouts produced by common spreadsheet tools.
// Values without a zone are read as UTC.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("due date is required")
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ToDataset prepares assignments for rendering. Rows keep the given order.
func ToDataset(title string, assignments []models.Assignment) export.Dataset {
	rows := make([]map[string]string, 0, len(assignments))
	for _, a := range assignments {
		link := ""
		if a.Link != nil {
			link = *a.Link
		}
		rows = append(rows, map[string]string{
			"course":  a.Course,
			"name":    a.Name,
			"dueDate": a.DueDate.UTC().Format(time.RFC3339Nano),
			"status":  string(a.Status),
			"link":    link,
		})
	}
	return export.Dataset{
		Title:   title,
		Headers: append([]string(nil), ExportHeaders...),
		Rows:    rows,
	}
}

// WriteCSV renders assignments as CSV into w. An empty slice produces the header only.
func WriteCSV(w io.Writer, assignments []models.Assignment) error {
	payload, err := export.NewCSVExporter().Render(ToDataset("", assignments))
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// SortByDueDate orders assignments for export: due date, then course, then id.
func SortByDueDate(assignments []models.Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Course != b.Course {
			return a.Course < b.Course
		}
		return a.ID < b.ID
	})
}

func joinStatuses() string {
	parts := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
