package main

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker-api/internal/repository"
	"github.com/noah-isme/assignment-tracker-api/internal/service"
	"github.com/noah-isme/assignment-tracker-api/pkg/config"
	"github.com/noah-isme/assignment-tracker-api/pkg/jobs"
	"github.com/noah-isme/assignment-tracker-api/pkg/storage"
)

func newExportJobs(cfg *config.Config, semesters *service.SemesterService, transfer *service.TransferService, repo *repository.ExportJobRepository, logr *zap.Logger) (*service.ExportJobService, *jobs.Queue, error) {
	if cfg.Exports.SignedURLSecret == "" {
		return nil, nil, errors.New("EXPORTS_SIGNED_URL_SECRET is required when export jobs are enabled")
	}
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	exportSvc := service.NewExportJobService(repo, semesters, transfer, files, signer, logr, service.ExportJobConfig{
		APIPrefix:       apiPrefix(cfg.APIPrefix),
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	queue := jobs.NewQueue("exports", exportSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		OnFailure:  exportSvc.HandleFailure,
		Logger:     logr,
	})
	exportSvc.SetQueue(queue)
	return exportSvc, queue, nil
}
