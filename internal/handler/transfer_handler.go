package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-tracker-api/internal/dto"
	"github.com/noah-isme/assignment-tracker-api/internal/service"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
	"github.com/noah-isme/assignment-tracker-api/pkg/response"
)

type transferService interface {
	Import(ctx context.Context, ownerID, semesterID string, r io.Reader) (int, error)
	Export(ctx context.Context, ownerID, semesterID string, format export.Format) (*service.ExportFile, error)
}

// TransferHandler exposes CSV import and file export endpoints.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(svc transferService) *TransferHandler {
	return &TransferHandler{service: svc}
}

// Import godoc
// @Summary Import assignments from CSV
// @Description Accepts a multipart "file" field or a raw text/csv body. Any invalid row rejects the whole file.
// @Tags Transfer
// @Accept mpfd,text/csv
// @Produce json
// @Param id path string true "Semester ID"
// @Param file formData file false "CSV file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/import [post]
func (h *TransferHandler) Import(c *gin.Context) {
	body, closeFn, err := uploadReader(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	count, err := h.service.Import(c.Request.Context(), ownerID(c), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CountResponse{Count: count})
}

// Export godoc
// @Summary Export assignments
// @Description Downloads the semester's assignments ordered by due date
// @Tags Transfer
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Semester ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /semesters/{id}/export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), ownerID(c), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func uploadReader(c *gin.Context) (io.Reader, func(), error) {
	contentType := strings.ToLower(c.ContentType())
	if strings.HasPrefix(contentType, "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart field \"file\" is required")
		}
		file, err := header.Open()
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
		}
		return file, func() { _ = file.Close() }, nil
	}
	return c.Request.Body, func() {}, nil
}
