package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/transfer"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
)

type bulkAssignmentCreator interface {
	BulkAdd(ctx context.Context, ownerID, semesterID string, items []models.AssignmentFields) (int, error)
}

type semesterReader interface {
	Require(ctx context.Context, ownerID, id string) (*models.Semester, error)
	Get(ctx context.Context, ownerID, id string, view *SemesterView) (*models.SemesterWithAssignments, error)
}

// TransferConfig bounds CSV imports.
type TransferConfig struct {
	MaxRows  int
	MaxBytes int64
}

// ExportFile is a rendered semester export.
type ExportFile struct {
	Filename    string
	ContentType string
	Format      export.Format
	Data        []byte
}

// TransferService imports and exports semester assignments.
type TransferService struct {
	semesters   semesterReader
	assignments bulkAssignmentCreator
	renderers   export.Registry
	metrics     *MetricsService
	cfg         TransferConfig
	logger      *zap.Logger
}

// NewTransferService constructs the service. A nil registry registers every format.
func NewTransferService(semesters semesterReader, assignments bulkAssignmentCreator, renderers export.Registry, metrics *MetricsService, cfg TransferConfig, logger *zap.Logger) *TransferService {
	if renderers == nil {
		renderers = export.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		semesters:   semesters,
		assignments: assignments,
		renderers:   renderers,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
}

// Import parses a CSV file and stores every row in one transaction. Any invalid
// row rejects the whole file.
func (s *TransferService) Import(ctx context.Context, ownerID, semesterID string, r io.Reader) (int, error) {
	if _, err := s.semesters.Require(ctx, ownerID, semesterID); err != nil {
		return 0, err
	}

	payload, err := s.readLimited(r)
	if err != nil {
		return 0, err
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		s.metrics.RecordImportFailure("empty")
		return 0, appErrors.Clone(appErrors.ErrEmptyImport, "")
	}

	items, err := transfer.ReadAssignments(bytes.NewReader(payload), transfer.Options{MaxRows: s.cfg.MaxRows})
	if err != nil {
		return 0, s.importError(err)
	}

	count, err := s.assignments.BulkAdd(ctx, ownerID, semesterID, items)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordImport(count)
	s.logger.Info("assignments imported", zap.String("semester_id", semesterID), zap.Int("count", count))
	return count, nil
}

// Export renders the semester's assignments, ordered by due date, in the requested format.
func (s *TransferService) Export(ctx context.Context, ownerID, semesterID string, format export.Format) (*ExportFile, error) {
	semester, err := s.semesters.Get(ctx, ownerID, semesterID, nil)
	if err != nil {
		return nil, err
	}
	return s.Render(semester, format)
}

// Render encodes an already loaded semester.
func (s *TransferService) Render(semester *models.SemesterWithAssignments, format export.Format) (*ExportFile, error) {
	assignments := append([]models.Assignment(nil), semester.Assignments...)
	transfer.SortByDueDate(assignments)

	data, err := s.renderers.Render(format, transfer.ToDataset(semester.Name, assignments))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.metrics.RecordExport(string(format))
	return &ExportFile{
		Filename:    ExportFilename(semester.Name, format),
		ContentType: format.ContentType(),
		Format:      format,
		Data:        data,
	}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportFilename derives a download name from the semester name.
func ExportFilename(semesterName string, format export.Format) string {
	base := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(semesterName), "-"), "-.")
	if base == "" {
		base = "semester"
	}
	return fmt.Sprintf("%s-assignments.%s", strings.ToLower(base), format.Extension())
}

func (s *TransferService) readLimited(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, appErrors.Clone(appErrors.ErrEmptyImport, "")
	}
	if s.cfg.MaxBytes <= 0 {
		payload, err := io.ReadAll(r)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, "failed to read upload")
		}
		return payload, nil
	}
	payload, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, "failed to read upload")
	}
	if int64(len(payload)) > s.cfg.MaxBytes {
		s.metrics.RecordImportFailure("too_large")
		return nil, appErrors.Clone(appErrors.ErrImportTooLarge, fmt.Sprintf("csv exceeds %d bytes", s.cfg.MaxBytes))
	}
	return payload, nil
}

func (s *TransferService) importError(err error) error {
	var rowErrs transfer.RowErrors
	var missing *export.MissingColumnsError
	switch {
	case errors.As(err, &rowErrs):
		s.metrics.RecordImportFailure("invalid_rows")
		return appErrors.WithDetails(appErrors.ErrInvalidCSV, rowErrs.Error(), []transfer.RowError(rowErrs))
	case errors.As(err, &missing):
		s.metrics.RecordImportFailure("missing_columns")
		return appErrors.WithDetails(appErrors.ErrInvalidCSV, missing.Error(), map[string][]string{"missing_columns": missing.Columns})
	case errors.Is(err, transfer.ErrEmpty):
		s.metrics.RecordImportFailure("empty")
		return appErrors.Clone(appErrors.ErrEmptyImport, "")
	case errors.Is(err, transfer.ErrTooManyRows):
		s.metrics.RecordImportFailure("too_many_rows")
		return appErrors.Clone(appErrors.ErrImportTooLarge, fmt.Sprintf("csv exceeds %d rows", s.cfg.MaxRows))
	default:
		s.metrics.RecordImportFailure("malformed")
		return appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, "csv could not be parsed")
	}
}
