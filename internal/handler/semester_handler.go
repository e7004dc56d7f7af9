package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-tracker-api/internal/middleware"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/service"
	"github.com/noah-isme/assignment-tracker-api/internal/table"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/response"
)

type semesterService interface {
	Create(ctx context.Context, ownerID string, req models.CreateSemesterRequest) (*models.Semester, error)
	List(ctx context.Context, ownerID string) ([]models.SemesterSummary, bool, error)
	Get(ctx context.Context, ownerID, id string, view *service.SemesterView) (*models.SemesterWithAssignments, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// SemesterHandler exposes semester endpoints.
type SemesterHandler struct {
	service semesterService
}

// NewSemesterHandler constructs the handler.
func NewSemesterHandler(svc semesterService) *SemesterHandler {
	return &SemesterHandler{service: svc}
}

// Create godoc
// @Summary Create semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param payload body models.CreateSemesterRequest true "Semester payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters [post]
func (h *SemesterHandler) Create(c *gin.Context) {
	var req models.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid semester payload"))
		return
	}
	semester, err := h.service.Create(c.Request.Context(), ownerID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, semester.ID)
	response.Created(c, semester)
}

// List godoc
// @Summary List semesters
// @Description Newest first, each with its assignment count
// @Tags Semesters
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	semesters, hit, err := h.service.List(c.Request.Context(), ownerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if semesters == nil {
		semesters = []models.SemesterSummary{}
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, semesters, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Semester with assignments
// @Description Optional sort, direction and repeated filter[column] query parameters narrow the assignments
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Param sort query string false "course, name, dueDate, status or link"
// @Param direction query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id} [get]
func (h *SemesterHandler) Get(c *gin.Context) {
	view, err := parseView(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	semester, err := h.service.Get(c.Request.Context(), ownerID(c), c.Param("id"), view)
	if err != nil {
		response.Error(c, err)
		return
	}
	if semester.Assignments == nil {
		semester.Assignments = []models.Assignment{}
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// Delete godoc
// @Summary Delete semester
// @Description Removes the semester and every assignment in it
// @Tags Semesters
// @Param id path string true "Semester ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id} [delete]
func (h *SemesterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// parseView reads sort and filter query parameters; nil means storage order.
func parseView(c *gin.Context) (*service.SemesterView, error) {
	rawSort, rawDir := c.Query("sort"), c.Query("direction")
	filters := table.Filters{}
	for _, column := range table.Columns {
		key := "filter[" + string(column) + "]"
		if values, ok := c.GetQueryArray(key); ok {
			filters.Set(column, values)
		}
	}
	if rawSort == "" && rawDir == "" && len(filters) == 0 {
		return nil, nil
	}

	view := &service.SemesterView{Sort: table.DefaultSort, Filters: filters}
	if rawSort != "" {
		column, err := table.ParseColumn(rawSort)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		view.Sort.Column = column
	}
	direction, err := table.ParseDirection(rawDir)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	view.Sort.Direction = direction
	return view, nil
}
