package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	CreateBulk(ctx context.Context, assignments []*models.Assignment) error
	Update(ctx context.Context, semesterID, id string, fields models.AssignmentFields) (*models.Assignment, error)
	UpdateStatus(ctx context.Context, id, ownerID string, status models.Status) (*models.Assignment, error)
	Delete(ctx context.Context, semesterID, id string) error
}

type semesterResolver interface {
	Require(ctx context.Context, ownerID, id string) (*models.Semester, error)
}

// AssignmentService implements assignment mutations scoped to the owner's semesters.
type AssignmentService struct {
	repo      assignmentRepository
	semesters semesterResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentRepository, semesters semesterResolver, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, semesters: semesters, cache: cache, validator: validate, logger: logger}
}

// Add creates one assignment in the semester.
func (s *AssignmentService) Add(ctx context.Context, ownerID, semesterID string, fields models.AssignmentFields) (*models.Assignment, error) {
	if _, err := s.semesters.Require(ctx, ownerID, semesterID); err != nil {
		return nil, err
	}
	fields, err := s.normalize(fields)
	if err != nil {
		return nil, err
	}
	assignment := newAssignment(semesterID, fields)
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.cache.Invalidate(ctx, SemesterCacheKey(ownerID))
	return assignment, nil
}

// BulkAdd creates every assignment in a single transaction and returns the count.
func (s *AssignmentService) BulkAdd(ctx context.Context, ownerID, semesterID string, items []models.AssignmentFields) (int, error) {
	if _, err := s.semesters.Require(ctx, ownerID, semesterID); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	assignments := make([]*models.Assignment, 0, len(items))
	for i, item := range items {
		fields, err := s.normalize(item)
		if err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) {
				appErr.Message = fmt.Sprintf("assignment %d: %s", i+1, appErr.Message)
			}
			return 0, err
		}
		assignments = append(assignments, newAssignment(semesterID, fields))
	}
	if err := s.repo.CreateBulk(ctx, assignments); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignments")
	}
	s.cache.Invalidate(ctx, SemesterCacheKey(ownerID))
	s.logger.Info("assignments created", zap.String("semester_id", semesterID), zap.Int("count", len(assignments)))
	return len(assignments), nil
}

// Edit overwrites every mutable field of an assignment.
func (s *AssignmentService) Edit(ctx context.Context, ownerID, semesterID, id string, fields models.AssignmentFields) (*models.Assignment, error) {
	if _, err := s.semesters.Require(ctx, ownerID, semesterID); err != nil {
		return nil, err
	}
	fields, err := s.normalize(fields)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, semesterID, id, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	// The cached semester listing only carries assignment counts, so edits leave it valid.
	// Invalidate SemesterCacheKey here if SemesterSummary gains assignment-derived fields.
	return updated, nil
}

// SetStatus changes only the status of an assignment owned through its semester.
func (s *AssignmentService) SetStatus(ctx context.Context, ownerID, id string, status models.Status) (*models.Assignment, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of NOT_DONE, IN_PROGRESS, DONE")
	}
	updated, err := s.repo.UpdateStatus(ctx, id, ownerID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment status")
	}
	// Status is not part of the cached listing; see Edit.
	return updated, nil
}

// Delete removes an assignment from the semester.
func (s *AssignmentService) Delete(ctx context.Context, ownerID, semesterID, id string) error {
	if _, err := s.semesters.Require(ctx, ownerID, semesterID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, semesterID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	s.cache.Invalidate(ctx, SemesterCacheKey(ownerID))
	return nil
}

func (s *AssignmentService) normalize(fields models.AssignmentFields) (models.AssignmentFields, error) {
	fields.Course = strings.TrimSpace(fields.Course)
	fields.Name = strings.TrimSpace(fields.Name)
	fields.Link = fields.NormalizedLink()
	if fields.Status == "" {
		fields.Status = models.StatusNotDone
	}
	if err := s.validator.Struct(fields); err != nil {
		return fields, validationError(err, "invalid assignment payload")
	}
	fields.DueDate = fields.DueDate.UTC()
	return fields, nil
}

func newAssignment(semesterID string, fields models.AssignmentFields) *models.Assignment {
	return &models.Assignment{
		SemesterID: semesterID,
		Course:     fields.Course,
		Name:       fields.Name,
		DueDate:    fields.DueDate,
		Status:     fields.Status,
		Link:       fields.Link,
	}
}
