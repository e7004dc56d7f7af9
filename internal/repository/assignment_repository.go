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

const assignmentColumns = `id, semester_id, course, name, due_date, status, link, created_at, updated_at`

// AssignmentRepository provides database access for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListBySemester returns every assignment of a semester ordered by due date.
func (r *AssignmentRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE semester_id = $1 ORDER BY due_date ASC, id ASC`
	assignments := make([]models.Assignment, 0)
	if err := r.db.SelectContext(ctx, &assignments, query, semesterID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Create inserts a single assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	prepareAssignment(assignment, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertAssignmentQuery, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// CreateBulk inserts all assignments in one transaction; either every row is stored or none.
func (r *AssignmentRepository) CreateBulk(ctx context.Context, assignments []*models.Assignment) (err error) {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertAssignmentQuery)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for i, assignment := range assignments {
		prepareAssignment(assignment, now)
		if _, err = stmt.ExecContext(ctx, assignment); err != nil {
			return fmt.Errorf("insert assignment %d: %w", i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an assignment inside semesterID and
// returns the stored row, or sql.ErrNoRows.
func (r *AssignmentRepository) Update(ctx context.Context, semesterID, id string, fields models.AssignmentFields) (*models.Assignment, error) {
	query := `UPDATE assignments SET course = $3, name = $4, due_date = $5, status = $6, link = $7, updated_at = $8
WHERE id = $1 AND semester_id = $2
RETURNING ` + assignmentColumns
	var updated models.Assignment
	err := r.db.GetContext(ctx, &updated, query, id, semesterID, fields.Course, fields.Name, fields.DueDate.UTC(), fields.Status, fields.Link, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	return &updated, nil
}

// UpdateStatus changes only the status of an assignment whose semester belongs to ownerID.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id, ownerID string, status models.Status) (*models.Assignment, error) {
	const query = `UPDATE assignments a SET status = $3, updated_at = $4
FROM semesters s
WHERE a.id = $1 AND a.semester_id = s.id AND s.owner_id = $2
RETURNING a.id, a.semester_id, a.course, a.name, a.due_date, a.status, a.link, a.created_at, a.updated_at`
	var updated models.Assignment
	if err := r.db.GetContext(ctx, &updated, query, id, ownerID, status, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update assignment status: %w", err)
	}
	return &updated, nil
}

// Delete removes an assignment from a semester. Returns sql.ErrNoRows when nothing matched.
func (r *AssignmentRepository) Delete(ctx context.Context, semesterID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1 AND semester_id = $2`, id, semesterID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const insertAssignmentQuery = `INSERT INTO assignments (id, semester_id, course, name, due_date, status, link, created_at, updated_at)
VALUES (:id, :semester_id, :course, :name, :due_date, :status, :link, :created_at, :updated_at)`

func prepareAssignment(a *models.Assignment, now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.StatusNotDone
	}
	a.DueDate = a.DueDate.UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}
