package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the completion state of an assignment.
type Status string

const (
	StatusNotDone    Status = "NOT_DONE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusNotDone, StatusInProgress, StatusDone}

// ErrInvalidStatus is returned for strings outside the status set.
var ErrInvalidStatus = errors.New("invalid assignment status")

// ParseStatus converts user input into a Status. Matching is case-insensitive and
// spaces or dashes may stand in for underscores ("in progress", "Not-Done").
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, s := range Statuses {
		if string(s) == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotDone, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// UnmarshalText rejects unknown values during JSON binding.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Assignment is a single task inside a semester.
type Assignment struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Course     string    `db:"course" json:"course"`
	Name       string    `db:"name" json:"name"`
	DueDate    time.Time `db:"due_date" json:"due_date"`
	Status     Status    `db:"status" json:"status"`
	Link       *string   `db:"link" json:"link"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Fields returns the mutable portion of the assignment.
func (a Assignment) Fields() AssignmentFields {
	return AssignmentFields{
		Course:  a.Course,
		Name:    a.Name,
		DueDate: a.DueDate,
		Status:  a.Status,
		Link:    cloneString(a.Link),
	}
}

// AssignmentFields is the payload used to create or overwrite an assignment.
type AssignmentFields struct {
	Course  string    `json:"course" validate:"max=255"`
	Name    string    `json:"name" validate:"max=255"`
	DueDate time.Time `json:"due_date" validate:"required"`
	Status  Status    `json:"status" validate:"required,status"`
	Link    *string   `json:"link,omitempty" validate:"omitempty,max=2048"`
}

// NormalizedLink trims the link and maps blanks to nil.
func (f AssignmentFields) NormalizedLink() *string {
	if f.Link == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*f.Link)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
