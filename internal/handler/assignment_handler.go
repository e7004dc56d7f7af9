package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-tracker-api/internal/dto"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/response"
)

type assignmentService interface {
	Add(ctx context.Context, ownerID, semesterID string, fields models.AssignmentFields) (*models.Assignment, error)
	BulkAdd(ctx context.Context, ownerID, semesterID string, items []models.AssignmentFields) (int, error)
	Edit(ctx context.Context, ownerID, semesterID, id string, fields models.AssignmentFields) (*models.Assignment, error)
	SetStatus(ctx context.Context, ownerID, id string, status models.Status) (*models.Assignment, error)
	Delete(ctx context.Context, ownerID, semesterID, id string) error
}

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Create godoc
// @Summary Add assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body models.AssignmentFields true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var fields models.AssignmentFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	created, err := h.service.Add(c.Request.Context(), ownerID(c), c.Param("id"), fields)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// BulkCreate godoc
// @Summary Add several assignments in one transaction
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body dto.BulkAssignmentsRequest true "Assignments"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/assignments/bulk [post]
func (h *AssignmentHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignments payload"))
		return
	}
	count, err := h.service.BulkAdd(c.Request.Context(), ownerID(c), c.Param("id"), req.Assignments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CountResponse{Count: count})
}

// Update godoc
// @Summary Replace assignment fields
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param assignmentId path string true "Assignment ID"
// @Param payload body models.AssignmentFields true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/assignments/{assignmentId} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var fields models.AssignmentFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	updated, err := h.service.Edit(c.Request.Context(), ownerID(c), c.Param("id"), c.Param("assignmentId"), fields)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// UpdateStatus godoc
// @Summary Change assignment status
// @Tags Assignments
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.StatusUpdateRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{assignmentId}/status [patch]
func (h *AssignmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status must be one of NOT_DONE, IN_PROGRESS, DONE"))
		return
	}
	updated, err := h.service.SetStatus(c.Request.Context(), ownerID(c), c.Param("assignmentId"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Semester ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/assignments/{assignmentId} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), ownerID(c), c.Param("id"), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
