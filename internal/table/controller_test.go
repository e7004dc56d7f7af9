package table

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/transfer"
)

type fakeBackend struct {
	semester    models.Semester
	assignments []models.Assignment
	nextID      int

	addCalls    int
	editCalls   int
	statusCalls int
	deleteCalls int
	importCalls int
	fetchCalls  int
	failWith    error
}

func newFakeBackend(name string) *fakeBackend {
	return &fakeBackend{semester: models.Semester{ID: "sem-1", Name: name, OwnerID: "user-1"}}
}

func (f *fakeBackend) FetchSemesterWithAssignments(ctx context.Context, semesterID string) (*models.SemesterWithAssignments, error) {
	f.fetchCalls++
	if semesterID != f.semester.ID {
		return nil, errors.New("not found")
	}
	copied := append([]models.Assignment(nil), f.assignments...)
	return &models.SemesterWithAssignments{Semester: f.semester, Assignments: copied}, nil
}

func (f *fakeBackend) AddAssignment(ctx context.Context, semesterID string, fields models.AssignmentFields) (*models.Assignment, error) {
	f.addCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.nextID++
	a := models.Assignment{
		ID: fmt.Sprintf("a-%d", f.nextID), SemesterID: semesterID,
		Course: fields.Course, Name: fields.Name, DueDate: fields.DueDate, Status: fields.Status, Link: fields.Link,
	}
	f.assignments = append(f.assignments, a)
	return &a, nil
}

func (f *fakeBackend) EditAssignment(ctx context.Context, semesterID, assignmentID string, fields models.AssignmentFields) (*models.Assignment, error) {
	f.editCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	for i := range f.assignments {
		if f.assignments[i].ID == assignmentID {
			f.assignments[i].Course = fields.Course
			f.assignments[i].Name = fields.Name
			f.assignments[i].DueDate = fields.DueDate
			f.assignments[i].Status = fields.Status
			f.assignments[i].Link = fields.Link
			a := f.assignments[i]
			return &a, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeBackend) SetAssignmentStatus(ctx context.Context, assignmentID string, status models.Status) (*models.Assignment, error) {
	f.statusCalls++
	for i := range f.assignments {
		if f.assignments[i].ID == assignmentID {
			f.assignments[i].Status = status
			a := f.assignments[i]
			return &a, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeBackend) DeleteAssignment(ctx context.Context, semesterID, assignmentID string) error {
	f.deleteCalls++
	for i := range f.assignments {
		if f.assignments[i].ID == assignmentID {
			f.assignments = append(f.assignments[:i], f.assignments[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeBackend) ImportCSV(ctx context.Context, semesterID string, r io.Reader) (int, error) {
	f.importCalls++
	payloads, err := transfer.ReadAssignments(r, transfer.Options{})
	if err != nil {
		return 0, err
	}
	for _, p := range payloads {
		if _, err := f.AddAssignment(ctx, semesterID, p); err != nil {
			return 0, err
		}
	}
	return len(payloads), nil
}

func (f *fakeBackend) remoteCalls() int {
	return f.addCalls + f.editCalls + f.statusCalls + f.deleteCalls + f.importCalls
}

var fixedNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, backend *fakeBackend) *Controller {
	t.Helper()
	c := NewController(backend, NewLoader(backend, backend.semester.ID), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, c.Load(context.Background()))
	return c
}

func day(d int) time.Time { return time.Date(2024, 9, d, 0, 0, 0, 0, time.UTC) }

func seeded() *fakeBackend {
	b := newFakeBackend("Fall 2024")
	b.assignments = []models.Assignment{
		{ID: "a-1", SemesterID: "sem-1", Course: "CMPT 201", Name: "A0", DueDate: day(15), Status: models.StatusNotDone},
		{ID: "a-2", SemesterID: "sem-1", Course: "MATH 150", Name: "Quiz", DueDate: day(10), Status: models.StatusDone},
		{ID: "a-3", SemesterID: "sem-1", Course: "CMPT 201", Name: "A1", DueDate: day(20), Status: models.StatusInProgress},
	}
	b.nextID = 3
	return b
}

func ids(rows []models.Assignment) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestControllerDefaultSortByDueDate(t *testing.T) {
	c := newTestController(t, seeded())
	assert.Equal(t, DefaultSort, c.Sort())
	assert.Equal(t, []string{"a-2", "a-1", "a-3"}, ids(c.Rows()))
}

func TestToggleSortDueDateTwice(t *testing.T) {
	c := newTestController(t, seeded())

	c.ToggleSort(ColumnDueDate)
	assert.Equal(t, Sort{Column: ColumnDueDate, Direction: Desc}, c.Sort())
	assert.Equal(t, []string{"a-3", "a-1", "a-2"}, ids(c.Rows()))

	c.ToggleSort(ColumnDueDate)
	assert.Equal(t, Sort{Column: ColumnDueDate, Direction: Asc}, c.Sort())
	assert.Equal(t, []string{"a-2", "a-1", "a-3"}, ids(c.Rows()))
}

func TestToggleSortNewColumnStartsAscending(t *testing.T) {
	c := newTestController(t, seeded())
	c.ToggleSort(ColumnDueDate)
	c.ToggleSort(ColumnCourse)
	assert.Equal(t, Sort{Column: ColumnCourse, Direction: Asc}, c.Sort())
	// ties on course fall back to id
	assert.Equal(t, []string{"a-1", "a-3", "a-2"}, ids(c.Rows()))

	c.ToggleSort(ColumnStatus)
	assert.Equal(t, []string{"a-1", "a-3", "a-2"}, ids(c.Rows()))
}

func TestColumnFilters(t *testing.T) {
	c := newTestController(t, seeded())

	c.SetColumnFilter(ColumnCourse, []string{"CMPT 201"})
	for _, row := range c.Rows() {
		assert.Equal(t, "CMPT 201", row.Course)
	}
	assert.Len(t, c.Rows(), 2)

	c.SetColumnFilter(ColumnCourse, []string{})
	assert.Empty(t, c.Rows())

	c.ClearColumnFilter(ColumnCourse)
	assert.Len(t, c.Rows(), 3)

	c.SetColumnFilter(ColumnDueDate, []string{"2024-09-10"})
	assert.Equal(t, []string{"a-2"}, ids(c.Rows()))
}

func TestRowsDeterministic(t *testing.T) {
	b := newFakeBackend("Fall 2024")
	for i := 5; i > 0; i-- {
		b.assignments = append(b.assignments, models.Assignment{ID: fmt.Sprintf("a-%d", i), Course: "X", DueDate: day(1), Status: models.StatusNotDone})
	}
	c := newTestController(t, b)
	first := ids(c.Rows())
	assert.Equal(t, []string{"a-1", "a-2", "a-3", "a-4", "a-5"}, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ids(c.Rows()))
	}
	c.ToggleSort(ColumnDueDate)
	assert.Equal(t, first, ids(c.Rows()))
}

func TestBeginAddDefaults(t *testing.T) {
	c := newTestController(t, seeded())
	assert.False(t, c.Draft().Active())

	c.BeginAdd()
	d := c.Draft()
	assert.Equal(t, NewDraft, d.Kind)
	assert.Empty(t, d.AssignmentID)
	assert.Equal(t, models.StatusNotDone, d.Fields.Status)
	assert.Equal(t, fixedNow, d.Fields.DueDate)
	assert.Empty(t, d.Fields.Course)
	assert.Empty(t, d.Fields.Name)
}

func TestBeginDuplicateResetsStatus(t *testing.T) {
	b := seeded()
	c := newTestController(t, b)
	link := "https://example.com/quiz"
	src := b.assignments[1]
	src.Link = &link

	c.BeginDuplicate(src)
	d := c.Draft()
	assert.Equal(t, NewDraft, d.Kind)
	assert.Empty(t, d.AssignmentID)
	assert.Equal(t, models.StatusNotDone, d.Fields.Status)
	assert.Equal(t, src.Course, d.Fields.Course)
	assert.Equal(t, src.Name, d.Fields.Name)
	assert.Equal(t, src.DueDate, d.Fields.DueDate)
	require.NotNil(t, d.Fields.Link)
	assert.Equal(t, link, *d.Fields.Link)

	require.NoError(t, c.Commit(context.Background()))
	assert.Len(t, c.Rows(), 4)
	assert.False(t, c.Draft().Active())
}

func TestBeginEditCommitUpdates(t *testing.T) {
	b := seeded()
	c := newTestController(t, b)

	c.BeginEdit(b.assignments[0])
	d := c.Draft()
	assert.Equal(t, EditDraft, d.Kind)
	assert.Equal(t, "a-1", d.AssignmentID)

	fields := d.Fields
	fields.Name = "A0 (revised)"
	require.NoError(t, c.SetDraftFields(fields))
	require.NoError(t, c.Commit(context.Background()))

	assert.Equal(t, 1, b.editCalls)
	assert.Equal(t, 0, b.addCalls)
	assert.False(t, c.Draft().Active())
	assert.Equal(t, "A0 (revised)", c.Semester().Assignments[0].Name)
}

func TestDraftOverwriteAndCancel(t *testing.T) {
	b := seeded()
	c := newTestController(t, b)

	c.BeginEdit(b.assignments[0])
	c.BeginAdd()
	assert.Equal(t, NewDraft, c.Draft().Kind)

	c.Cancel()
	assert.False(t, c.Draft().Active())
	assert.Zero(t, b.remoteCalls())

	assert.ErrorIs(t, c.Commit(context.Background()), ErrNoDraft)
	assert.ErrorIs(t, c.SetDraftFields(models.AssignmentFields{}), ErrNoDraft)
}

func TestCommitFailureKeepsDraft(t *testing.T) {
	b := seeded()
	c := newTestController(t, b)
	b.failWith = errors.New("server unavailable")

	c.BeginAdd()
	err := c.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, NewDraft, c.Draft().Kind)
	assert.Len(t, c.Rows(), 3)
}

func TestCommitAcceptsEmptyFields(t *testing.T) {
	b := newFakeBackend("Fall 2024")
	c := newTestController(t, b)
	c.BeginAdd()
	require.NoError(t, c.Commit(context.Background()))
	require.Len(t, c.Rows(), 1)
	assert.Empty(t, c.Rows()[0].Name)
}

func TestSetStatusNoopMakesNoRemoteCall(t *testing.T) {
	b := seeded()
	c := newTestController(t, b)
	fetches := b.fetchCalls

	require.NoError(t, c.SetStatus(context.Background(), b.assignments[0], models.StatusNotDone))
	assert.Zero(t, b.remoteCalls())
	assert.Equal(t, fetches, b.fetchCalls)

	assert.ErrorIs(t, c.SetStatus(context.Background(), b.assignments[0], models.Status("LATE")), models.ErrInvalidStatus)
	assert.Zero(t, b.remoteCalls())
}

func TestRemoveReloads(t *testing.T) {
	b := seeded()
	c := newTestController(t, b)
	require.NoError(t, c.Remove(context.Background(), c.Rows()[0]))
	assert.Equal(t, 1, b.deleteCalls)
	assert.Equal(t, []string{"a-1", "a-3"}, ids(c.Rows()))
}

func TestFall2024Scenario(t *testing.T) {
	b := newFakeBackend("Fall 2024")
	c := newTestController(t, b)
	ctx := context.Background()

	c.BeginAdd()
	require.NoError(t, c.SetDraftFields(models.AssignmentFields{
		Course: "CMPT 201", Name: "A0", DueDate: day(15), Status: models.StatusNotDone,
	}))
	require.NoError(t, c.Commit(ctx))
	require.Len(t, c.Rows(), 1)

	require.NoError(t, c.SetStatus(ctx, c.Rows()[0], models.StatusDone))
	assert.Equal(t, 1, b.statusCalls)

	fetched, err := b.FetchSemesterWithAssignments(ctx, "sem-1")
	require.NoError(t, err)
	assert.Equal(t, "Fall 2024", fetched.Name)
	require.Len(t, fetched.Assignments, 1)
	assert.Equal(t, models.StatusDone, fetched.Assignments[0].Status)
	assert.Equal(t, "A0", fetched.Assignments[0].Name)
}

func TestImportAndExportCSV(t *testing.T) {
	b := newFakeBackend("Fall 2024")
	c := newTestController(t, b)

	input := "Course,Assignment,Due Date,Status\nCMPT 201,A0,2024-09-15,NOT_DONE\nMATH 150,Quiz,2024-09-10,DONE\n"
	n, err := c.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, c.Rows(), 2)

	var buf bytes.Buffer
	require.NoError(t, c.ExportCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "course,name,dueDate,status,link", lines[0])
	assert.Equal(t, "CMPT 201,A0,2024-09-15T00:00:00Z,NOT_DONE,", lines[1])
}

func TestExportCSVKeepsDraftDueDate(t *testing.T) {
	b := newFakeBackend("Fall 2024")
	now := time.Date(2024, 9, 15, 10, 30, 5, 123456789, time.UTC)
	c := NewController(b, NewLoader(b, b.semester.ID), WithClock(func() time.Time { return now }))
	require.NoError(t, c.Load(context.Background()))

	c.BeginAdd()
	fields := c.Draft().Fields
	fields.Course, fields.Name = "CMPT 201", "A0"
	require.NoError(t, c.SetDraftFields(fields))
	require.NoError(t, c.Commit(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, c.ExportCSV(&buf))
	payloads, err := transfer.ReadAssignments(&buf, transfer.Options{})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.True(t, now.Equal(payloads[0].DueDate), "got %s want %s", payloads[0].DueDate, now)
}
