package table

import (
	"context"
	"fmt"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
)

// Source fetches a semester and its assignments.
type Source interface {
	FetchSemesterWithAssignments(ctx context.Context, semesterID string) (*models.SemesterWithAssignments, error)
}

// Loader caches the last fetched semester for one page. It is not shared.
type Loader struct {
	source     Source
	semesterID string
	current    *models.SemesterWithAssignments
}

// NewLoader builds a loader bound to a single semester.
func NewLoader(source Source, semesterID string) *Loader {
	return &Loader{source: source, semesterID: semesterID}
}

// SemesterID returns the semester the loader is bound to.
func (l *Loader) SemesterID() string {
	return l.semesterID
}

// Reload refetches the semester. The previous data is kept on failure.
func (l *Loader) Reload(ctx context.Context) error {
	data, err := l.source.FetchSemesterWithAssignments(ctx, l.semesterID)
	if err != nil {
		return fmt.Errorf("load semester %s: %w", l.semesterID, err)
	}
	l.current = data
	return nil
}

// Semester returns the last loaded data, or nil before the first successful Reload.
func (l *Loader) Semester() *models.SemesterWithAssignments {
	return l.current
}

// Assignments returns the loaded assignments.
func (l *Loader) Assignments() []models.Assignment {
	if l.current == nil {
		return nil
	}
	return l.current.Assignments
}
