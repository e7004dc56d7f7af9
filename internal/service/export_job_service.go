package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
	"github.com/noah-isme/assignment-tracker-api/pkg/jobs"
	"github.com/noah-isme/assignment-tracker-api/pkg/storage"
)

// ExportJobType tags queued export jobs.
const ExportJobType = "semester_export"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
	ClearResult(ctx context.Context, id string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportRenderer interface {
	Render(semester *models.SemesterWithAssignments, format export.Format) (*ExportFile, error)
}

type semesterLoader interface {
	Require(ctx context.Context, ownerID, id string) (*models.Semester, error)
	Get(ctx context.Context, ownerID, id string, view *SemesterView) (*models.SemesterWithAssignments, error)
}

// ExportJobConfig governs download links and cleanup.
type ExportJobConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService runs semester exports in the background and serves the
// results through signed links.
type ExportJobService struct {
	repo      exportJobStore
	semesters semesterLoader
	renderer  exportRenderer
	storage   fileStorage
	signer    *storage.SignedURLSigner
	queue     jobDispatcher
	logger    *zap.Logger
	cfg       ExportJobConfig
	now       func() time.Time
}

// NewExportJobService constructs the service. The queue is attached later with
// SetQueue because the queue handler is the service's own Process method.
func NewExportJobService(repo exportJobStore, semesters semesterLoader, renderer exportRenderer, store fileStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.APIPrefix) == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportJobService{
		repo:      repo,
		semesters: semesters,
		renderer:  renderer,
		storage:   store,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetQueue attaches the dispatcher used by Create and RecoverPendingJobs.
func (s *ExportJobService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Create persists a queued job for the owner's semester and dispatches it.
func (s *ExportJobService) Create(ctx context.Context, ownerID, semesterID string, req models.CreateExportRequest) (*models.ExportJob, error) {
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	if _, err := s.semesters.Require(ctx, ownerID, semesterID); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export jobs are disabled")
	}

	job := &models.ExportJob{
		SemesterID: semesterID,
		Format:     format,
		Status:     models.ExportStatusQueued,
		CreatedBy:  ownerID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// Status returns a job created by ownerID, with a signed download link once finished.
func (s *ExportJobService) Status(ctx context.Context, ownerID, id string) (*models.ExportJobStatus, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.CreatedBy != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	status := &models.ExportJobStatus{ExportJob: *job}
	if job.Status == models.ExportStatusFinished && job.ResultPath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
		}
		link := fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
		status.DownloadURL = &link
		status.ExpiresAt = &expiresAt
	}
	return status, nil
}

// ResolveDownload validates a signed token and opens the referenced file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    downloadName(relPath),
		ContentType: job.Format.ContentType(),
		ExpiresAt:   expiresAt,
	}, nil
}

// Process renders and stores one export. It is the queue handler.
func (s *ExportJobService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", queued.ID, err)
	}
	if job.Status == models.ExportStatusFinished {
		return nil
	}

	processing := models.ExportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing}); err != nil {
		return err
	}

	semester, err := s.semesters.Get(ctx, job.CreatedBy, job.SemesterID, nil)
	if err != nil {
		return err
	}
	file, err := s.renderer.Render(semester, job.Format)
	if err != nil {
		return err
	}
	relPath, err := s.storage.Save(path.Join(job.ID, file.Filename), file.Data)
	if err != nil {
		return err
	}

	finished := models.ExportStatusFinished
	now := s.now().UTC()
	empty := ""
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		ResultPath:   &relPath,
		ErrorMessage: &empty,
		FinishedAt:   &now,
	}); err != nil {
		_ = s.storage.Delete(relPath)
		return err
	}
	s.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return nil
}

// HandleFailure marks a job failed once the queue gives up on it.
func (s *ExportJobService) HandleFailure(ctx context.Context, queued jobs.Job, err error) {
	s.logger.Warn("export job failed", zap.String("job_id", queued.ID), zap.Int("attempt", queued.Attempt), zap.Error(err))
	s.markFailed(ctx, queued.ID, failureMessage(err))
}

// RecoverPendingJobs re-enqueues jobs left queued by a previous process.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued export jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
			s.logger.Warn("failed to requeue export job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup periodically removes expired export files until ctx is done.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()
}

// Cleanup deletes files of jobs finished before the result TTL and returns how
// many job results were cleared.
func (s *ExportJobService) Cleanup(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	cleared := 0
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Warn("export cleanup list failed", zap.Error(err))
			return cleared
		}
		for _, job := range expired {
			if job.ResultPath != nil {
				if err := s.storage.Delete(*job.ResultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					s.logger.Warn("export cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
					continue
				}
			}
			if err := s.repo.ClearResult(ctx, job.ID); err != nil {
				s.logger.Warn("export cleanup clear failed", zap.String("job_id", job.ID), zap.Error(err))
				return cleared
			}
			cleared++
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export filesystem cleanup failed", zap.Error(err))
	}
	return cleared
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func (s *ExportJobService) markFailed(ctx context.Context, id, message string) {
	failed := models.ExportStatusFailed
	now := s.now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark export job failed", zap.String("job_id", id), zap.Error(err))
	}
}

func failureMessage(err error) string {
	if err == nil {
		return "export failed"
	}
	if appErr := appErrors.FromError(err); appErr != nil && appErr.Code != appErrors.ErrInternal.Code {
		return appErr.Message
	}
	return "export failed"
}

func downloadName(relPath string) string {
	return path.Base(relPath)
}
