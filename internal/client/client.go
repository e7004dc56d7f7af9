// Package client is an HTTP client for the tracker API. It backs the table
// controller used by the command line tool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/assignment-tracker-api/internal/dto"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
)

// DefaultTimeout bounds every request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client calls the tracker API on behalf of one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// New builds a client for baseURL, which should include the API prefix
// (for example http://localhost:8080/api/v1).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// Login authenticates and stores the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var res models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

// CreateSemester creates a semester named name.
func (c *Client) CreateSemester(ctx context.Context, name string) (*models.Semester, error) {
	var sem models.Semester
	if err := c.doJSON(ctx, http.MethodPost, "/semesters", models.CreateSemesterRequest{Name: name}, &sem); err != nil {
		return nil, err
	}
	return &sem, nil
}

// ListSemesters returns the user's semesters, newest first.
func (c *Client) ListSemesters(ctx context.Context) ([]models.SemesterSummary, error) {
	var list []models.SemesterSummary
	if err := c.doJSON(ctx, http.MethodGet, "/semesters", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteSemester removes a semester and its assignments.
func (c *Client) DeleteSemester(ctx context.Context, semesterID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/semesters/"+url.PathEscape(semesterID), nil, nil)
}

// FetchSemesterWithAssignments loads a semester and every assignment in it.
func (c *Client) FetchSemesterWithAssignments(ctx context.Context, semesterID string) (*models.SemesterWithAssignments, error) {
	var sem models.SemesterWithAssignments
	if err := c.doJSON(ctx, http.MethodGet, "/semesters/"+url.PathEscape(semesterID), nil, &sem); err != nil {
		return nil, err
	}
	return &sem, nil
}

// AddAssignment creates an assignment in the semester.
func (c *Client) AddAssignment(ctx context.Context, semesterID string, fields models.AssignmentFields) (*models.Assignment, error) {
	var a models.Assignment
	path := fmt.Sprintf("/semesters/%s/assignments", url.PathEscape(semesterID))
	if err := c.doJSON(ctx, http.MethodPost, path, fields, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// BulkAddAssignments creates every assignment in one transaction.
func (c *Client) BulkAddAssignments(ctx context.Context, semesterID string, items []models.AssignmentFields) (int, error) {
	var res dto.CountResponse
	path := fmt.Sprintf("/semesters/%s/assignments/bulk", url.PathEscape(semesterID))
	if err := c.doJSON(ctx, http.MethodPost, path, dto.BulkAssignmentsRequest{Assignments: items}, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// EditAssignment overwrites an assignment's fields.
func (c *Client) EditAssignment(ctx context.Context, semesterID, assignmentID string, fields models.AssignmentFields) (*models.Assignment, error) {
	var a models.Assignment
	path := fmt.Sprintf("/semesters/%s/assignments/%s", url.PathEscape(semesterID), url.PathEscape(assignmentID))
	if err := c.doJSON(ctx, http.MethodPut, path, fields, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetAssignmentStatus changes only the status of an assignment.
func (c *Client) SetAssignmentStatus(ctx context.Context, assignmentID string, status models.Status) (*models.Assignment, error) {
	var a models.Assignment
	path := fmt.Sprintf("/assignments/%s/status", url.PathEscape(assignmentID))
	if err := c.doJSON(ctx, http.MethodPatch, path, dto.StatusUpdateRequest{Status: status}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAssignment removes an assignment.
func (c *Client) DeleteAssignment(ctx context.Context, semesterID, assignmentID string) error {
	path := fmt.Sprintf("/semesters/%s/assignments/%s", url.PathEscape(semesterID), url.PathEscape(assignmentID))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// ImportCSV uploads a CSV body and returns the number of assignments created.
func (c *Client) ImportCSV(ctx context.Context, semesterID string, r io.Reader) (int, error) {
	path := fmt.Sprintf("/semesters/%s/import", url.PathEscape(semesterID))
	req, err := c.newRequest(ctx, http.MethodPost, path, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "text/csv")
	var res dto.CountResponse
	if err := c.do(req, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Export downloads the semester rendered in format.
func (c *Client) Export(ctx context.Context, semesterID string, format export.Format) ([]byte, error) {
	path := fmt.Sprintf("/semesters/%s/export?format=%s", url.PathEscape(semesterID), url.QueryEscape(string(format)))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export semester: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck
	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(res)
	}
	return io.ReadAll(res.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res)
	}
	if dest == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// decodeError turns an error envelope into *appErrors.Error so callers can
// match on the code with errors.Is.
func decodeError(res *http.Response) error {
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err == nil && env.Error != nil {
		if env.Error.Status == 0 {
			env.Error.Status = res.StatusCode
		}
		return env.Error
	}
	return appErrors.New("HTTP_ERROR", res.StatusCode, fmt.Sprintf("unexpected status %d", res.StatusCode))
}
