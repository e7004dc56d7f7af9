package models

import (
	"time"

	"github.com/noah-isme/assignment-tracker-api/pkg/export"
)

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob persists an asynchronous semester export.
type ExportJob struct {
	ID           string        `db:"id" json:"id"`
	SemesterID   string        `db:"semester_id" json:"semester_id"`
	Format       export.Format `db:"format" json:"format"`
	Status       ExportStatus  `db:"status" json:"status"`
	ResultPath   *string       `db:"result_path" json:"-"`
	CreatedBy    string        `db:"created_by" json:"created_by"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time    `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string       `db:"error_message" json:"error_message,omitempty"`
}

// CreateExportRequest queues an export for a semester.
type CreateExportRequest struct {
	Format string `json:"format"`
}

// ExportJobStatus is returned when polling a job; DownloadURL is set once finished.
type ExportJobStatus struct {
	ExportJob
	DownloadURL *string    `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
