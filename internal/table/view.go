// Package table holds the sorting, filtering and draft state for an assignment list.
package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
)

// Column identifies a sortable and filterable assignment column.
type Column string

const (
	ColumnCourse  Column = "course"
	ColumnName    Column = "name"
	ColumnDueDate Column = "dueDate"
	ColumnStatus  Column = "status"
	ColumnLink    Column = "link"
)

// Columns lists every column in display order.
var Columns = []Column{ColumnCourse, ColumnName, ColumnDueDate, ColumnStatus, ColumnLink}

// DateLayout formats due dates for filtering and display.
const DateLayout = "2006-01-02"

// ParseColumn resolves a column name case-insensitively. "due_date" and "assignment" are accepted.
func ParseColumn(raw string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "course":
		return ColumnCourse, nil
	case "name", "assignment":
		return ColumnName, nil
	case "duedate", "due_date", "due":
		return ColumnDueDate, nil
	case "status":
		return ColumnStatus, nil
	case "link":
		return ColumnLink, nil
	}
	return "", fmt.Errorf("unknown column %q", raw)
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc or desc; blank means ascending.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", raw)
}

// Sort is the active sort key.
type Sort struct {
	Column    Column
	Direction Direction
}

// DefaultSort orders by due date, earliest first.
var DefaultSort = Sort{Column: ColumnDueDate, Direction: Asc}

// Filters holds per-column allowed values. A column without an entry lets every
// row pass; a column mapped to an empty set lets none pass.
type Filters map[Column]map[string]struct{}

// Set replaces the allowed values for column.
func (f Filters) Set(column Column, values []string) {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	f[column] = allowed
}

// Clear removes the filter on column.
func (f Filters) Clear(column Column) {
	delete(f, column)
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for col, values := range f {
		copied := make(map[string]struct{}, len(values))
		for v := range values {
			copied[v] = struct{}{}
		}
		out[col] = copied
	}
	return out
}

// Allows reports whether a passes every active filter.
func (f Filters) Allows(a models.Assignment) bool {
	for col, allowed := range f {
		if _, ok := allowed[Value(a, col)]; !ok {
			return false
		}
	}
	return true
}

// Value returns the string form of a column used for filtering.
func Value(a models.Assignment, column Column) string {
	switch column {
	case ColumnCourse:
		return a.Course
	case ColumnName:
		return a.Name
	case ColumnDueDate:
		return a.DueDate.UTC().Format(DateLayout)
	case ColumnStatus:
		return string(a.Status)
	case ColumnLink:
		if a.Link != nil {
			return *a.Link
		}
	}
	return ""
}

// Apply filters and sorts data without modifying it. Equal sort keys are ordered
// by id, so identical inputs always produce identical output.
func Apply(data []models.Assignment, s Sort, filters Filters) []models.Assignment {
	rows := make([]models.Assignment, 0, len(data))
	for _, a := range data {
		if filters.Allows(a) {
			rows = append(rows, a)
		}
	}
	if s.Column == "" {
		s = DefaultSort
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j], s.Column)
		if c == 0 {
			return rows[i].ID < rows[j].ID
		}
		if s.Direction == Desc {
			return c > 0
		}
		return c < 0
	})
	return rows
}

func compare(a, b models.Assignment, column Column) int {
	switch column {
	case ColumnDueDate:
		return a.DueDate.Compare(b.DueDate)
	case ColumnStatus:
		return statusRank(a.Status) - statusRank(b.Status)
	}
	return strings.Compare(strings.ToLower(Value(a, column)), strings.ToLower(Value(b, column)))
}

func statusRank(s models.Status) int {
	for i, candidate := range models.Statuses {
		if candidate == s {
			return i
		}
	}
	return len(models.Statuses)
}

// DistinctValues lists the sorted distinct values of column, for building filter menus.
func DistinctValues(data []models.Assignment, column Column) []string {
	seen := make(map[string]struct{}, len(data))
	out := make([]string, 0, len(data))
	for _, a := range data {
		v := Value(a, column)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
