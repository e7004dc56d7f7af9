package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-tracker-api/internal/dto"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/table"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
	"github.com/noah-isme/assignment-tracker-api/pkg/response"
)

var (
	_ table.Remote = (*Client)(nil)
	_ table.Source = (*Client)(nil)
)

type apiStub struct {
	authHeaders []string
	imported    string
	status      models.Status
}

func newStubServer(t *testing.T, stub *apiStub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		stub.authHeaders = append(stub.authHeaders, c.GetHeader("Authorization"))
		c.Next()
	})
	api := r.Group("/api/v1")
	api.POST("/auth/login", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.LoginResponse{AccessToken: "tok"}, nil)
	})
	api.POST("/semesters", func(c *gin.Context) {
		var req models.CreateSemesterRequest
		_ = c.ShouldBindJSON(&req)
		if req.Name == "Taken" {
			response.Error(c, appErrors.Clone(appErrors.ErrDuplicateName, "a semester with this name already exists"))
			return
		}
		response.Created(c, models.Semester{ID: "sem-1", Name: req.Name})
	})
	api.GET("/semesters", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, []models.SemesterSummary{{Semester: models.Semester{ID: "sem-1"}, AssignmentCount: 1}}, nil)
	})
	api.GET("/semesters/:id", func(c *gin.Context) {
		if c.Param("id") != "sem-1" {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "semester not found"))
			return
		}
		response.JSON(c, http.StatusOK, models.SemesterWithAssignments{
			Semester:    models.Semester{ID: "sem-1", Name: "Fall 2024"},
			Assignments: []models.Assignment{{ID: "a-1", Course: "CMPT 201", Name: "A0", Status: models.StatusDone}},
		}, nil)
	})
	api.DELETE("/semesters/:id", func(c *gin.Context) { response.NoContent(c) })
	api.POST("/semesters/:id/assignments", func(c *gin.Context) {
		var fields models.AssignmentFields
		_ = c.ShouldBindJSON(&fields)
		response.Created(c, models.Assignment{ID: "a-2", SemesterID: c.Param("id"), Name: fields.Name, Status: fields.Status})
	})
	api.POST("/semesters/:id/assignments/bulk", func(c *gin.Context) {
		var req dto.BulkAssignmentsRequest
		_ = c.ShouldBindJSON(&req)
		response.Created(c, dto.CountResponse{Count: len(req.Assignments)})
	})
	api.PUT("/semesters/:id/assignments/:assignmentId", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.Assignment{ID: c.Param("assignmentId")}, nil)
	})
	api.DELETE("/semesters/:id/assignments/:assignmentId", func(c *gin.Context) { response.NoContent(c) })
	api.PATCH("/assignments/:assignmentId/status", func(c *gin.Context) {
		var req dto.StatusUpdateRequest
		_ = c.ShouldBindJSON(&req)
		stub.status = req.Status
		response.JSON(c, http.StatusOK, models.Assignment{ID: c.Param("assignmentId"), Status: req.Status}, nil)
	})
	api.POST("/semesters/:id/import", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		stub.imported = string(body)
		response.Created(c, dto.CountResponse{Count: strings.Count(string(body), "\n") - 1})
	})
	api.GET("/semesters/:id/export", func(c *gin.Context) {
		response.Attachment(c, "x.csv", "text/csv", []byte("course,name,dueDate,status,link\n"))
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func TestClientSemesterLifecycle(t *testing.T) {
	stub := &apiStub{}
	server := newStubServer(t, stub)
	c := New(server.URL+"/api/v1/", WithHTTPClient(server.Client()))
	ctx := context.Background()

	_, err := c.Login(ctx, "me@example.com", "secret123")
	require.NoError(t, err)

	sem, err := c.CreateSemester(ctx, "Fall 2024")
	require.NoError(t, err)
	assert.Equal(t, "Fall 2024", sem.Name)

	list, err := c.ListSemesters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].AssignmentCount)

	fetched, err := c.FetchSemesterWithAssignments(ctx, "sem-1")
	require.NoError(t, err)
	require.Len(t, fetched.Assignments, 1)
	assert.Equal(t, models.StatusDone, fetched.Assignments[0].Status)

	require.NoError(t, c.DeleteSemester(ctx, "sem-1"))
	assert.Equal(t, "Bearer tok", stub.authHeaders[len(stub.authHeaders)-1])
	assert.Equal(t, "", stub.authHeaders[0])
}

func TestClientSurfacesTypedErrors(t *testing.T) {
	server := newStubServer(t, &apiStub{})
	c := New(server.URL+"/api/v1", WithHTTPClient(server.Client()), WithToken("tok"))
	ctx := context.Background()

	_, err := c.CreateSemester(ctx, "Taken")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateName)
	assert.Equal(t, "a semester with this name already exists", err.Error())

	_, err = c.FetchSemesterWithAssignments(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClientAssignmentOperations(t *testing.T) {
	stub := &apiStub{}
	server := newStubServer(t, stub)
	c := New(server.URL+"/api/v1", WithHTTPClient(server.Client()), WithToken("tok"))
	ctx := context.Background()
	fields := models.AssignmentFields{Course: "CMPT 201", Name: "A0", DueDate: time.Now().UTC(), Status: models.StatusNotDone}

	added, err := c.AddAssignment(ctx, "sem-1", fields)
	require.NoError(t, err)
	assert.Equal(t, "A0", added.Name)

	count, err := c.BulkAddAssignments(ctx, "sem-1", []models.AssignmentFields{fields, fields})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	edited, err := c.EditAssignment(ctx, "sem-1", "a-2", fields)
	require.NoError(t, err)
	assert.Equal(t, "a-2", edited.ID)

	updated, err := c.SetAssignmentStatus(ctx, "a-2", models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, models.StatusInProgress, stub.status)

	require.NoError(t, c.DeleteAssignment(ctx, "sem-1", "a-2"))
}

func TestClientImportExport(t *testing.T) {
	stub := &apiStub{}
	server := newStubServer(t, stub)
	c := New(server.URL+"/api/v1", WithHTTPClient(server.Client()), WithToken("tok"))
	ctx := context.Background()

	csv := "course,name,dueDate,status\nCMPT 201,A0,2024-09-20,DONE\n"
	count, err := c.ImportCSV(ctx, "sem-1", bytes.NewBufferString(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, csv, stub.imported)

	data, err := c.Export(ctx, "sem-1", export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "course,name,dueDate,status,link\n", string(data))
}
