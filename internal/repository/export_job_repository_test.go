package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
)

func TestExportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "s1", "xlsx", "QUEUED", nil, "user-1", sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{SemesterID: "s1", Format: export.FormatXLSX, CreatedBy: "user-1"}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows([]string{"id", "semester_id", "format", "status", "result_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow(job.ID, "s1", "xlsx", "QUEUED", nil, "user-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, export.FormatXLSX, fetched.Format)
	assert.Equal(t, models.ExportStatusQueued, fetched.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now()
	status := models.ExportStatusFinished
	path := "s1/job-1.csv"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, result_path = $2, finished_at = $3 WHERE id = $4")).
		WithArgs(status, path, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{Status: &status, ResultPath: &path, FinishedAt: &now}))
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	cutoff := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'FINISHED' AND result_path IS NOT NULL")).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "semester_id", "format", "status", "result_path", "created_by", "created_at", "finished_at", "error_message"}).
			AddRow("job-1", "s1", "csv", "FINISHED", "s1/job-1.csv", "user-1", cutoff, cutoff, nil))

	jobs, err := repo.ListFinishedBefore(context.Background(), cutoff, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].ResultPath)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET result_path = NULL WHERE id = $1")).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ClearResult(context.Background(), "job-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
