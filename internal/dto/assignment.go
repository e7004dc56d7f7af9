package dto

import "github.com/noah-isme/assignment-tracker-api/internal/models"

// BulkAssignmentsRequest creates several assignments at once.
type BulkAssignmentsRequest struct {
	Assignments []models.AssignmentFields `json:"assignments"`
}

// StatusUpdateRequest changes an assignment's status.
type StatusUpdateRequest struct {
	Status models.Status `json:"status"`
}

// CountResponse reports how many records an operation created.
type CountResponse struct {
	Count int `json:"count"`
}
