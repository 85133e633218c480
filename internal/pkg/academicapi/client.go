// Package academicapi is the client of the academic records REST API, the
// system of record for courses, disciplines, students and teachers.
package academicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/biograph/insights/internal/pkg/metrics"
)

const apiPrefix = "/api/v1"

// Config configures the client.
type Config struct {
	// BaseURL is the API root, without the /api/v1 prefix
	BaseURL string

	// Token is the bearer token used when the context carries none
	Token string

	Timeout    time.Duration
	MaxRetries int

	// RateLimit is the sustained requests per second, Burst the bucket size
	RateLimit float64
	Burst     int

	// PageSize is the limit used when walking list endpoints
	PageSize int

	// InitialBackoff is the first retry delay
	InitialBackoff time.Duration

	HTTPClient *http.Client
}

// Client talks to the academic records API with rate limiting and retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
	tracer     trace.Tracer
}

// NewClient creates a client, filling unset limits with defaults.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		log:        log.With().Str("component", "academicapi").Logger(),
		tracer:     otel.Tracer("github.com/biograph/insights/internal/pkg/academicapi"),
	}
}

type tokenKey struct{}

// WithToken makes requests issued with ctx authenticate as the given bearer
// token instead of the configured one.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) tokenFor(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey{}).(string); ok && t != "" {
		return t
	}
	return c.cfg.Token
}

// ListCourses fetches every course.
func (c *Client) ListCourses(ctx context.Context) ([]CourseDTO, error) {
	out, err := listAll[CourseDTO](ctx, c, "/courses/")
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return out, nil
}

// ListDisciplines fetches every discipline.
func (c *Client) ListDisciplines(ctx context.Context) ([]DisciplineDTO, error) {
	out, err := listAll[DisciplineDTO](ctx, c, "/disciplines/")
	if err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}
	return out, nil
}

// ListStudents fetches every student.
func (c *Client) ListStudents(ctx context.Context) ([]StudentDTO, error) {
	out, err := listAll[StudentDTO](ctx, c, "/students/")
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

// ListTeachers fetches every teacher.
func (c *Client) ListTeachers(ctx context.Context) ([]TeacherDTO, error) {
	out, err := listAll[TeacherDTO](ctx, c, "/teachers/")
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return out, nil
}

// GetStudent fetches one student.
func (c *Client) GetStudent(ctx context.Context, id int64) (*StudentDTO, error) {
	var out StudentDTO
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/students/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get student %d: %w", id, err)
	}
	return &out, nil
}

// GetTeacher fetches one teacher.
func (c *Client) GetTeacher(ctx context.Context, id int64) (*TeacherDTO, error) {
	var out TeacherDTO
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/teachers/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get teacher %d: %w", id, err)
	}
	return &out, nil
}

// SetStudentDisciplineStatus writes a wire status for one student discipline.
func (c *Client) SetStudentDisciplineStatus(ctx context.Context, studentID, disciplineID int64, wireStatus string) (*StudentDTO, error) {
	var out StudentDTO
	path := fmt.Sprintf("/students/%d/disciplines/%d/status", studentID, disciplineID)
	if err := c.doRequest(ctx, http.MethodPatch, path, StatusUpdateDTO{Status: wireStatus}, &out); err != nil {
		return nil, fmt.Errorf("set status of discipline %d for student %d: %w", disciplineID, studentID, err)
	}
	return &out, nil
}

// AddPrerequisite makes disciplineID require prerequisiteID.
func (c *Client) AddPrerequisite(ctx context.Context, disciplineID, prerequisiteID int64) (*DisciplineDTO, error) {
	var out DisciplineDTO
	path := fmt.Sprintf("/disciplines/%d/prerequisites/%d", disciplineID, prerequisiteID)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("add prerequisite %d to discipline %d: %w", prerequisiteID, disciplineID, err)
	}
	return &out, nil
}

// AddDisciplineCourse links a discipline to a course.
func (c *Client) AddDisciplineCourse(ctx context.Context, disciplineID, courseID int64) error {
	path := fmt.Sprintf("/disciplines/%d/courses/%d", disciplineID, courseID)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("add course %d to discipline %d: %w", courseID, disciplineID, err)
	}
	return nil
}

// RemoveDisciplineCourse unlinks a discipline from a course.
func (c *Client) RemoveDisciplineCourse(ctx context.Context, disciplineID, courseID int64) error {
	path := fmt.Sprintf("/disciplines/%d/courses/%d", disciplineID, courseID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove course %d from discipline %d: %w", courseID, disciplineID, err)
	}
	return nil
}

// AddStudentDiscipline enrols a student in a discipline.
func (c *Client) AddStudentDiscipline(ctx context.Context, studentID, disciplineID int64) error {
	path := fmt.Sprintf("/students/%d/disciplines/%d", studentID, disciplineID)
	if err := c.doRequest(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("add discipline %d to student %d: %w", disciplineID, studentID, err)
	}
	return nil
}

// RemoveStudentDiscipline drops a discipline from a student.
func (c *Client) RemoveStudentDiscipline(ctx context.Context, studentID, disciplineID int64) error {
	path := fmt.Sprintf("/students/%d/remove-discipline/%d", studentID, disciplineID)
	if err := c.doRequest(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("remove discipline %d from student %d: %w", disciplineID, studentID, err)
	}
	return nil
}

// AddTeacherDiscipline assigns a discipline to a teacher.
func (c *Client) AddTeacherDiscipline(ctx context.Context, teacherID, disciplineID int64) error {
	path := fmt.Sprintf("/teachers/%d/disciplines/%d", teacherID, disciplineID)
	if err := c.doRequest(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("add discipline %d to teacher %d: %w", disciplineID, teacherID, err)
	}
	return nil
}

// RemoveTeacherDiscipline unassigns a discipline from a teacher.
func (c *Client) RemoveTeacherDiscipline(ctx context.Context, teacherID, disciplineID int64) error {
	path := fmt.Sprintf("/teachers/%d/remove-discipline/%d", teacherID, disciplineID)
	if err := c.doRequest(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("remove discipline %d from teacher %d: %w", disciplineID, teacherID, err)
	}
	return nil
}

// AssignCurriculumSchedule enrols a student in every discipline of a
// curriculum schedule.
func (c *Client) AssignCurriculumSchedule(ctx context.Context, studentID, scheduleID int64) (*StudentDTO, error) {
	var out StudentDTO
	path := fmt.Sprintf("/students/%d/assign-curriculum/%d", studentID, scheduleID)
	if err := c.doRequest(ctx, http.MethodPatch, path, nil, &out); err != nil {
		return nil, fmt.Errorf("assign curriculum schedule %d to student %d: %w", scheduleID, studentID, err)
	}
	return &out, nil
}

// ChangeStudentCourse moves a student to another course.
func (c *Client) ChangeStudentCourse(ctx context.Context, studentID, courseID int64) (*StudentDTO, error) {
	var out StudentDTO
	path := fmt.Sprintf("/students/%d/change-course/", studentID)
	if err := c.doRequest(ctx, http.MethodPatch, path, CourseChangeDTO{CourseID: courseID}, &out); err != nil {
		return nil, fmt.Errorf("change course of student %d to %d: %w", studentID, courseID, err)
	}
	return &out, nil
}

// listAll walks a skip/limit list endpoint until a short page is returned.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	all := []T{}
	for skip := 0; ; skip += c.cfg.PageSize {
		params := url.Values{}
		params.Set("skip", strconv.Itoa(skip))
		params.Set("limit", strconv.Itoa(c.cfg.PageSize))

		var page []T
		if err := c.doRequest(ctx, http.MethodGet, path+"?"+params.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("skip %d: %w", skip, err)
		}
		all = append(all, page...)
		if len(page) < c.cfg.PageSize {
			return all, nil
		}
	}
}

// doRequest performs a request with rate limiting and retries. 429 is always
// retried. Network errors and 5xx are retried only for idempotent methods,
// since a POST may have been applied before the failure.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	ctx, span := c.tracer.Start(ctx, "academicapi "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		err := c.doSingleRequest(ctx, method, path, payload, result)
		if err == nil {
			return struct{}{}, nil
		}
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Int("attempt", attempt).Msg("Academic API request failed")
		return struct{}{}, classify(method, err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
	)
	span.SetAttributes(attribute.Int("academicapi.attempts", attempt))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// classify marks errors that must not be retried and honours Retry-After.
func classify(method string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		if apiErr.StatusCode != http.StatusTooManyRequests && !idempotent(method) {
			return backoff.Permanent(err)
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return backoff.Permanent(err)
	}
	if !idempotent(method) {
		return backoff.Permanent(err)
	}
	return err
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// retryAfterError is a 429 carrying the server's requested delay.
type retryAfterError struct {
	*APIError
	after *backoff.RetryAfterError
}

func (e *retryAfterError) Unwrap() []error { return []error{e.APIError, e.after} }

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, payload []byte, result interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+apiPrefix+path, bodyReader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(method, "network_error").Inc()
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    errorMessage(respBody),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds >= 0 {
				return &retryAfterError{
					APIError: apiErr,
					after:    &backoff.RetryAfterError{Duration: time.Duration(seconds) * time.Second},
				}
			}
		}
		return apiErr
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &decodeError{err: err}
		}
	}
	return nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var e errorBodyDTO
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	switch d := e.Detail.(type) {
	case string:
		return d
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(d)
		return string(raw)
	}
}
