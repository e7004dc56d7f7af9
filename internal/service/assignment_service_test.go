package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
)

func seedSemester(t *testing.T, svc *testServices, owner, name string) *models.Semester {
	t.Helper()
	sem, err := svc.semesters.Create(context.Background(), owner, models.CreateSemesterRequest{Name: name})
	require.NoError(t, err)
	return sem
}

func TestAssignmentServiceAddNormalizesFields(t *testing.T) {
	svc := newTestServices()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")
	blank := "   "
	due := time.Date(2024, 10, 1, 9, 0, 0, 0, time.FixedZone("PDT", -7*3600))

	created, err := svc.assignments.Add(context.Background(), "owner-1", sem.ID, models.AssignmentFields{
		Course: " CMPT 201 ", Name: " A0 ", DueDate: due, Link: &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, "CMPT 201", created.Course)
	assert.Equal(t, "A0", created.Name)
	assert.Equal(t, models.StatusNotDone, created.Status)
	assert.Nil(t, created.Link)
	assert.Equal(t, time.UTC, created.DueDate.Location())
	assert.True(t, due.Equal(created.DueDate))
}

func TestAssignmentServiceAddRejectsInvalidPayload(t *testing.T) {
	svc := newTestServices()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")

	_, err := svc.assignments.Add(context.Background(), "owner-1", sem.ID, models.AssignmentFields{Course: "CMPT 201", Name: "A0"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.assignments.Add(context.Background(), "owner-1", sem.ID, models.AssignmentFields{
		Course: "CMPT 201", Name: "A0", DueDate: time.Now(), Status: models.Status("LATE"),
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, svc.store.assignments)
}

func TestAssignmentServiceRequiresOwnedSemester(t *testing.T) {
	svc := newTestServices()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")

	_, err := svc.assignments.Add(context.Background(), "owner-2", sem.ID, models.AssignmentFields{
		Course: "CMPT 201", Name: "A0", DueDate: time.Now(),
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.assignments.Add(context.Background(), "", sem.ID, models.AssignmentFields{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAssignmentServiceFallScenario(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")

	added, err := svc.assignments.Add(ctx, "owner-1", sem.ID, models.AssignmentFields{
		Course: "CMPT 201", Name: "A0", DueDate: time.Date(2024, 9, 20, 23, 59, 0, 0, time.UTC), Status: models.StatusNotDone,
	})
	require.NoError(t, err)

	updated, err := svc.assignments.SetStatus(ctx, "owner-1", added.ID, models.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)

	fetched, err := svc.semesters.Get(ctx, "owner-1", sem.ID, nil)
	require.NoError(t, err)
	require.Len(t, fetched.Assignments, 1)
	assert.Equal(t, "A0", fetched.Assignments[0].Name)
	assert.Equal(t, models.StatusDone, fetched.Assignments[0].Status)
}

func TestAssignmentServiceSetStatusScopedToOwner(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")
	added, err := svc.assignments.Add(ctx, "owner-1", sem.ID, models.AssignmentFields{Course: "C", Name: "A", DueDate: time.Now()})
	require.NoError(t, err)

	_, err = svc.assignments.SetStatus(ctx, "owner-2", added.ID, models.StatusDone)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.assignments.SetStatus(ctx, "owner-1", added.ID, models.Status("done-ish"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAssignmentServiceEditAndDelete(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")
	added, err := svc.assignments.Add(ctx, "owner-1", sem.ID, models.AssignmentFields{Course: "C", Name: "A", DueDate: time.Now()})
	require.NoError(t, err)

	link := "https://example.com/a1"
	edited, err := svc.assignments.Edit(ctx, "owner-1", sem.ID, added.ID, models.AssignmentFields{
		Course: "CMPT 201", Name: "A1", DueDate: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), Status: models.StatusInProgress, Link: &link,
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", edited.Name)
	assert.Equal(t, models.StatusInProgress, edited.Status)
	require.NotNil(t, edited.Link)
	assert.Equal(t, link, *edited.Link)

	_, err = svc.assignments.Edit(ctx, "owner-1", sem.ID, "missing", edited.Fields())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.assignments.Delete(ctx, "owner-1", sem.ID, added.ID))
	err = svc.assignments.Delete(ctx, "owner-1", sem.ID, added.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAssignmentServiceBulkAdd(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")
	items := []models.AssignmentFields{
		{Course: "CMPT 201", Name: "A1", DueDate: time.Now()},
		{Course: "MATH 101", Name: "HW1", DueDate: time.Now(), Status: models.StatusDone},
	}

	count, err := svc.assignments.BulkAdd(ctx, "owner-1", sem.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, svc.store.assignments, 2)

	count, err = svc.assignments.BulkAdd(ctx, "owner-1", sem.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAssignmentServiceBulkAddAllOrNothing(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")

	_, err := svc.assignments.BulkAdd(ctx, "owner-1", sem.ID, []models.AssignmentFields{
		{Course: "CMPT 201", Name: "A1", DueDate: time.Now()},
		{Course: "CMPT 201", Name: "A2"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "assignment 2")
	assert.Zero(t, svc.store.bulkCalls)

	svc.store.bulkErr = errors.New("tx aborted")
	_, err = svc.assignments.BulkAdd(ctx, "owner-1", sem.ID, []models.AssignmentFields{{Course: "C", Name: "A", DueDate: time.Now()}})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, svc.store.assignments)
}

func TestAssignmentServiceEditKeepsCachedListingAccurate(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	sem := seedSemester(t, svc, "owner-1", "Fall 2024")
	added, err := svc.assignments.Add(ctx, "owner-1", sem.ID, models.AssignmentFields{Course: "C", Name: "A", DueDate: time.Now()})
	require.NoError(t, err)

	_, hit, err := svc.semesters.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, hit)
	deletions := len(svc.cache.deleted)

	fields := added.Fields()
	fields.Name = "A renamed"
	_, err = svc.assignments.Edit(ctx, "owner-1", sem.ID, added.ID, fields)
	require.NoError(t, err)
	_, err = svc.assignments.SetStatus(ctx, "owner-1", added.ID, models.StatusDone)
	require.NoError(t, err)
	assert.Len(t, svc.cache.deleted, deletions)

	list, hit, err := svc.semesters.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].AssignmentCount)
}
