package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/transfer"
)

// ErrNoDraft is returned when committing or editing without an active draft.
var ErrNoDraft = errors.New("no draft in progress")

// Remote performs assignment mutations on the server.
type Remote interface {
	AddAssignment(ctx context.Context, semesterID string, fields models.AssignmentFields) (*models.Assignment, error)
	EditAssignment(ctx context.Context, semesterID, assignmentID string, fields models.AssignmentFields) (*models.Assignment, error)
	SetAssignmentStatus(ctx context.Context, assignmentID string, status models.Status) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, semesterID, assignmentID string) error
	ImportCSV(ctx context.Context, semesterID string, r io.Reader) (int, error)
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock overrides the time source used for new drafts.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller drives one assignment table. It is not safe for concurrent use.
type Controller struct {
	remote  Remote
	loader  *Loader
	now     func() time.Time
	sort    Sort
	filters Filters
	draft   Draft
}

// NewController creates a controller sorted by due date ascending with no filters.
func NewController(remote Remote, loader *Loader, opts ...Option) *Controller {
	c := &Controller{
		remote:  remote,
		loader:  loader,
		now:     time.Now,
		sort:    DefaultSort,
		filters: Filters{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the initial data.
func (c *Controller) Load(ctx context.Context) error {
	return c.loader.Reload(ctx)
}

// Semester returns the loaded semester, nil before Load.
func (c *Controller) Semester() *models.SemesterWithAssignments {
	return c.loader.Semester()
}

// Rows returns the visible rows in display order.
func (c *Controller) Rows() []models.Assignment {
	return Apply(c.loader.Assignments(), c.sort, c.filters)
}

// Sort returns the active sort.
func (c *Controller) Sort() Sort { return c.sort }

// Filters returns a copy of the active filters.
func (c *Controller) Filters() Filters { return c.filters.Clone() }

// Draft returns the current draft.
func (c *Controller) Draft() Draft { return c.draft }

// BeginAdd starts a blank draft due now. Any existing draft is replaced.
func (c *Controller) BeginAdd() {
	c.draft = Draft{
		Kind: NewDraft,
		Fields: models.AssignmentFields{
			Status:  models.StatusNotDone,
			DueDate: c.now().UTC(),
		},
	}
}

// BeginEdit starts editing a.
func (c *Controller) BeginEdit(a models.Assignment) {
	c.draft = Draft{Kind: EditDraft, AssignmentID: a.ID, Fields: a.Fields()}
}

// BeginDuplicate starts a new draft copied from a, with the status reset.
func (c *Controller) BeginDuplicate(a models.Assignment) {
	fields := a.Fields()
	fields.Status = models.StatusNotDone
	c.draft = Draft{Kind: NewDraft, Fields: fields}
}

// SetDraftFields replaces the values of the active draft.
func (c *Controller) SetDraftFields(fields models.AssignmentFields) error {
	if !c.draft.Active() {
		return ErrNoDraft
	}
	c.draft.Fields = fields
	return nil
}

// Cancel drops the draft.
func (c *Controller) Cancel() {
	c.draft = Draft{}
}

// Commit saves the draft and reloads. On a remote failure the draft is kept.
func (c *Controller) Commit(ctx context.Context) error {
	semesterID := c.loader.SemesterID()
	switch c.draft.Kind {
	case NewDraft:
		if _, err := c.remote.AddAssignment(ctx, semesterID, c.draft.Fields); err != nil {
			return fmt.Errorf("add assignment: %w", err)
		}
	case EditDraft:
		if _, err := c.remote.EditAssignment(ctx, semesterID, c.draft.AssignmentID, c.draft.Fields); err != nil {
			return fmt.Errorf("edit assignment: %w", err)
		}
	default:
		return ErrNoDraft
	}
	c.draft = Draft{}
	return c.loader.Reload(ctx)
}

// SetStatus updates the status of a. Setting the current status does nothing.
func (c *Controller) SetStatus(ctx context.Context, a models.Assignment, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}
	if status == a.Status {
		return nil
	}
	if _, err := c.remote.SetAssignmentStatus(ctx, a.ID, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return c.loader.Reload(ctx)
}

// Remove deletes a and reloads.
func (c *Controller) Remove(ctx context.Context, a models.Assignment) error {
	if err := c.remote.DeleteAssignment(ctx, a.SemesterID, a.ID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return c.loader.Reload(ctx)
}

// ToggleSort flips the direction when column is already the key, otherwise
// makes column the key in ascending order.
func (c *Controller) ToggleSort(column Column) {
	if c.sort.Column == column {
		if c.sort.Direction == Asc {
			c.sort.Direction = Desc
		} else {
			c.sort.Direction = Asc
		}
		return
	}
	c.sort = Sort{Column: column, Direction: Asc}
}

// SetColumnFilter replaces the allowed values for column. An empty list hides every row.
func (c *Controller) SetColumnFilter(column Column, values []string) {
	c.filters.Set(column, values)
}

// ClearColumnFilter removes the filter on column.
func (c *Controller) ClearColumnFilter(column Column) {
	c.filters.Clear(column)
}

// ImportCSV uploads a CSV file into the semester and reloads.
func (c *Controller) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	n, err := c.remote.ImportCSV(ctx, c.loader.SemesterID(), r)
	if err != nil {
		return 0, fmt.Errorf("import csv: %w", err)
	}
	return n, c.loader.Reload(ctx)
}

// ExportCSV writes every loaded assignment, ignoring filters, as CSV.
func (c *Controller) ExportCSV(w io.Writer) error {
	return transfer.WriteCSV(w, c.loader.Assignments())
}
