package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/repository"
	"github.com/noah-isme/assignment-tracker-api/internal/table"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
)

type semesterRepository interface {
	Create(ctx context.Context, semester *models.Semester) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.SemesterSummary, error)
	FindByID(ctx context.Context, id, ownerID string) (*models.Semester, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type assignmentLister interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.Assignment, error)
}

// SemesterView narrows and orders the assignments returned with a semester.
type SemesterView struct {
	Sort    table.Sort
	Filters table.Filters
}

// SemesterService implements semester use cases.
type SemesterService struct {
	repo        semesterRepository
	assignments assignmentLister
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// NewSemesterService constructs the service. cache and metrics may be nil.
func NewSemesterService(repo semesterRepository, assignments assignmentLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SemesterService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{
		repo:        repo,
		assignments: assignments,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cacheTTL:    cacheTTL,
	}
}

// SemesterCacheKey is the cache key of an owner's semester listing.
func SemesterCacheKey(ownerID string) string {
	return "semesters:" + ownerID
}

// Create adds a semester. Names are unique across all owners.
func (s *SemesterService) Create(ctx context.Context, ownerID string, req models.CreateSemesterRequest) (*models.Semester, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "semester name is required")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateName, "a semester with this name already exists")
	}

	semester := &models.Semester{Name: req.Name, OwnerID: ownerID}
	if err := s.repo.Create(ctx, semester); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateName, "a semester with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}

	s.cache.Invalidate(ctx, SemesterCacheKey(ownerID))
	s.logger.Info("semester created", zap.String("semester_id", semester.ID), zap.String("owner_id", ownerID))
	return semester, nil
}

// List returns the owner's semesters, newest first. The bool reports a cache hit.
func (s *SemesterService) List(ctx context.Context, ownerID string) ([]models.SemesterSummary, bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, false, err
	}
	key := SemesterCacheKey(ownerID)
	var cached []models.SemesterSummary
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	semesters, err := s.repo.ListByOwner(ctx, ownerID)
	s.metrics.ObserveDBQuery("semesters_list", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	s.cache.Set(ctx, key, semesters, s.cacheTTL)
	return semesters, false, nil
}

// Require loads a semester owned by ownerID or returns a not-found error.
func (s *SemesterService) Require(ctx context.Context, ownerID, id string) (*models.Semester, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	semester, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Get returns a semester with its assignments. A nil view keeps storage order (due date).
func (s *SemesterService) Get(ctx context.Context, ownerID, id string, view *SemesterView) (*models.SemesterWithAssignments, error) {
	semester, err := s.Require(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	assignments, err := s.assignments.ListBySemester(ctx, semester.ID)
	s.metrics.ObserveDBQuery("assignments_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	if view != nil {
		assignments = table.Apply(assignments, view.Sort, view.Filters)
	}
	return &models.SemesterWithAssignments{Semester: *semester, Assignments: assignments}, nil
}

// Delete removes a semester and its assignments.
func (s *SemesterService) Delete(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	s.cache.Invalidate(ctx, SemesterCacheKey(ownerID))
	s.logger.Info("semester deleted", zap.String("semester_id", id), zap.String("owner_id", ownerID))
	return nil
}
