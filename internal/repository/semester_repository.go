package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
)

// SemesterRepository provides database access for semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository creates a new SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// Create inserts a semester. A name collision returns ErrDuplicate.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	if semester.CreatedAt.IsZero() {
		semester.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO semesters (id, name, owner_id, created_at) VALUES (:id, :name, :owner_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// ExistsByName reports whether any semester, of any owner, uses name.
func (r *SemesterRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM semesters WHERE name = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check semester name: %w", err)
	}
	return exists, nil
}

// ListByOwner returns the owner's semesters, newest first, with assignment counts.
func (r *SemesterRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.SemesterSummary, error) {
	const query = `SELECT s.id, s.name, s.owner_id, s.created_at, COUNT(a.id) AS assignment_count
FROM semesters s
LEFT JOIN assignments a ON a.semester_id = s.id
WHERE s.owner_id = $1
GROUP BY s.id, s.name, s.owner_id, s.created_at
ORDER BY s.created_at DESC, s.id ASC`
	semesters := make([]models.SemesterSummary, 0)
	if err := r.db.SelectContext(ctx, &semesters, query, ownerID); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// FindByID returns a semester owned by ownerID, or sql.ErrNoRows.
func (r *SemesterRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Semester, error) {
	const query = `SELECT id, name, owner_id, created_at FROM semesters WHERE id = $1 AND owner_id = $2 LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find semester: %w", err)
	}
	return &semester, nil
}

// Delete removes a semester and its assignments in one transaction.
// Returns sql.ErrNoRows when the semester does not exist for ownerID.
func (r *SemesterRepository) Delete(ctx context.Context, id, ownerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin semester delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	const lockQuery = `SELECT id FROM semesters WHERE id = $1 AND owner_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &lockedID, lockQuery, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock semester: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM assignments WHERE semester_id = $1`, id); err != nil {
		return fmt.Errorf("delete semester assignments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM semesters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete semester: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit semester delete: %w", err)
	}
	return nil
}
