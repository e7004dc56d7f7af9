package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"time"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
)

// memStore backs both fake repositories so ownership checks and cascades
// behave like the database.
type memStore struct {
	semesters   map[string]*models.Semester
	assignments map[string]*models.Assignment
	seq         int
	bulkErr     error
	bulkCalls   int
}

func newMemStore() *memStore {
	return &memStore{semesters: map[string]*models.Semester{}, assignments: map[string]*models.Assignment{}}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

type fakeSemesterRepo struct {
	store *memStore
}

func (r fakeSemesterRepo) Create(ctx context.Context, semester *models.Semester) error {
	for _, existing := range r.store.semesters {
		if existing.Name == semester.Name {
			return repository.ErrDuplicate
		}
	}
	semester.ID = r.store.nextID("sem")
	semester.CreatedAt = time.Date(2024, 9, 1, 0, 0, r.store.seq, 0, time.UTC)
	stored := *semester
	r.store.semesters[semester.ID] = &stored
	return nil
}

func (r fakeSemesterRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, existing := range r.store.semesters {
		if existing.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeSemesterRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.SemesterSummary, error) {
	var out []models.SemesterSummary
	for _, sem := range r.store.semesters {
		if sem.OwnerID != ownerID {
			continue
		}
		count := 0
		for _, a := range r.store.assignments {
			if a.SemesterID == sem.ID {
				count++
			}
		}
		out = append(out, models.SemesterSummary{Semester: *sem, AssignmentCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r fakeSemesterRepo) FindByID(ctx context.Context, id, ownerID string) (*models.Semester, error) {
	sem, ok := r.store.semesters[id]
	if !ok || sem.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	stored := *sem
	return &stored, nil
}

func (r fakeSemesterRepo) Delete(ctx context.Context, id, ownerID string) error {
	sem, ok := r.store.semesters[id]
	if !ok || sem.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	for aid, a := range r.store.assignments {
		if a.SemesterID == id {
			delete(r.store.assignments, aid)
		}
	}
	delete(r.store.semesters, id)
	return nil
}

type fakeAssignmentRepo struct {
	store *memStore
}

func (r fakeAssignmentRepo) ListBySemester(ctx context.Context, semesterID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range r.store.assignments {
		if a.SemesterID == semesterID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r fakeAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = r.store.nextID("asg")
	stored := *assignment
	r.store.assignments[assignment.ID] = &stored
	return nil
}

func (r fakeAssignmentRepo) CreateBulk(ctx context.Context, assignments []*models.Assignment) error {
	r.store.bulkCalls++
	if r.store.bulkErr != nil {
		return r.store.bulkErr
	}
	for _, a := range assignments {
		if err := r.Create(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r fakeAssignmentRepo) Update(ctx context.Context, semesterID, id string, fields models.AssignmentFields) (*models.Assignment, error) {
	a, ok := r.store.assignments[id]
	if !ok || a.SemesterID != semesterID {
		return nil, sql.ErrNoRows
	}
	a.Course, a.Name, a.DueDate, a.Status, a.Link = fields.Course, fields.Name, fields.DueDate, fields.Status, fields.Link
	stored := *a
	return &stored, nil
}

func (r fakeAssignmentRepo) UpdateStatus(ctx context.Context, id, ownerID string, status models.Status) (*models.Assignment, error) {
	a, ok := r.store.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	sem, ok := r.store.semesters[a.SemesterID]
	if !ok || sem.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	a.Status = status
	stored := *a
	return &stored, nil
}

func (r fakeAssignmentRepo) Delete(ctx context.Context, semesterID, id string) error {
	a, ok := r.store.assignments[id]
	if !ok || a.SemesterID != semesterID {
		return sql.ErrNoRows
	}
	delete(r.store.assignments, id)
	return nil
}

type recordingCacheRepo struct {
	data    map[string]interface{}
	deleted []string
}

func (r *recordingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := r.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if target, ok := dest.(*[]models.SemesterSummary); ok {
		*target = value.([]models.SemesterSummary)
	}
	return nil
}

func (r *recordingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.data == nil {
		r.data = map[string]interface{}{}
	}
	r.data[key] = value
	return nil
}

func (r *recordingCacheRepo) Delete(ctx context.Context, key string) error {
	r.deleted = append(r.deleted, key)
	delete(r.data, key)
	return nil
}

func (r *recordingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

type testServices struct {
	store       *memStore
	cache       *recordingCacheRepo
	semesters   *SemesterService
	assignments *AssignmentService
}

func newTestServices() *testServices {
	store := newMemStore()
	cacheRepo := &recordingCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	semesters := NewSemesterService(fakeSemesterRepo{store}, fakeAssignmentRepo{store}, cache, nil, nil, nil, time.Minute)
	assignments := NewAssignmentService(fakeAssignmentRepo{store}, semesters, cache, nil, nil)
	return &testServices{store: store, cache: cacheRepo, semesters: semesters, assignments: assignments}
}
