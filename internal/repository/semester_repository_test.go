package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
)

func TestSemesterRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO semesters (id, name, owner_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), "Fall 2024", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	semester := &models.Semester{Name: "Fall 2024", OwnerID: "user-1"}
	require.NoError(t, repo.Create(context.Background(), semester))
	assert.NotEmpty(t, semester.ID)
	assert.False(t, semester.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO semesters")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "semesters_name_key"})

	err := repo.Create(context.Background(), &models.Semester{Name: "Fall 2024", OwnerID: "user-2"})
	assert.ErrorIs(t, err, ErrDuplicate)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO semesters")).WillReturnError(errors.New("conn reset"))
	err = repo.Create(context.Background(), &models.Semester{Name: "Spring 2025", OwnerID: "user-2"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestSemesterRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM semesters WHERE name = $1)")).
		WithArgs("Fall 2024").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByName(context.Background(), "Fall 2024")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryListByOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "owner_id", "created_at", "assignment_count"}).
		AddRow("s2", "Spring 2025", "user-1", now, 0).
		AddRow("s1", "Fall 2024", "user-1", now.Add(-time.Hour), 3)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(a.id) AS assignment_count")).
		WithArgs("user-1").
		WillReturnRows(rows)

	semesters, err := repo.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, semesters, 2)
	assert.Equal(t, "Spring 2025", semesters[0].Name)
	assert.Equal(t, 3, semesters[1].AssignmentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, owner_id, created_at FROM semesters WHERE id = $1 AND owner_id = $2 LIMIT 1")).
		WithArgs("s1", "user-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "s1", "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSemesterRepositoryDeleteRemovesAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM semesters WHERE id = $1 AND owner_id = $2 FOR UPDATE")).
		WithArgs("s1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE semester_id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM semesters WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1", "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryDeleteNotOwned(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM semesters WHERE id = $1 AND owner_id = $2 FOR UPDATE")).
		WithArgs("s1", "user-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "s1", "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
