package models

import "time"

// Semester groups a user's assignments.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SemesterSummary is a listing row annotated with its assignment count.
type SemesterSummary struct {
	Semester
	AssignmentCount int `db:"assignment_count" json:"assignment_count"`
}

// SemesterWithAssignments is a semester together with its assignments.
type SemesterWithAssignments struct {
	Semester
	Assignments []Assignment `json:"assignments"`
}

// CreateSemesterRequest is the payload for creating a semester.
type CreateSemesterRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}
