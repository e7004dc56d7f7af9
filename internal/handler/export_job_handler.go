package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-tracker-api/internal/middleware"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/service"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/response"
)

type exportJobService interface {
	Create(ctx context.Context, ownerID, semesterID string, req models.CreateExportRequest) (*models.ExportJob, error)
	Status(ctx context.Context, ownerID, id string) (*models.ExportJobStatus, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportJobHandler exposes asynchronous export endpoints.
type ExportJobHandler struct {
	service exportJobService
}

// NewExportJobHandler constructs the handler.
func NewExportJobHandler(svc exportJobService) *ExportJobHandler {
	return &ExportJobHandler{service: svc}
}

// Create godoc
// @Summary Queue a semester export
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body models.CreateExportRequest true "Export format"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/exports [post]
func (h *ExportJobHandler) Create(c *gin.Context) {
	var req models.CreateExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
			return
		}
	}
	job, err := h.service.Create(c.Request.Context(), ownerID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, job.ID)
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status
// @Description Includes a signed download link once the job has finished
// @Tags Exports
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/{jobId} [get]
func (h *ExportJobHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), ownerID(c), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description The signed token authorises the download; no bearer token is needed
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportJobHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
