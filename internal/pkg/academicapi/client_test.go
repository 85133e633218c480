package academicapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:        srv.URL,
		Token:          "service-token",
		Timeout:        2 * time.Second,
		MaxRetries:     2,
		RateLimit:      1000,
		Burst:          100,
		PageSize:       2,
		InitialBackoff: time.Millisecond,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	return NewClient(cfg, zerolog.Nop())
}

func TestListDisciplinesWalksPages(t *testing.T) {
	all := []DisciplineDTO{
		{ID: 1, Name: "Biologia Celular"},
		{ID: 2, Name: "Genética", Prerequisites: []int64{1}},
		{ID: 3, Name: "Bioquímica", Prerequisites: []int64{1}},
	}
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/v1/disciplines/", r.URL.Path)
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))

		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := skip + limit
		if end > len(all) {
			end = len(all)
		}
		require.NoError(t, json.NewEncoder(w).Encode(all[skip:end]))
	}, nil)

	got, err := client.ListDisciplines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListCoursesEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	got, err := client.ListCourses(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetStudentNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Student not found"}`))
	}, nil)

	_, err := client.GetStudent(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Student not found", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id": 7, "username": "prof.lima", "is_active": true, "disciplines": [{"id": 2}]}`))
	}, nil)

	teacher, err := client.GetTeacher(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "prof.lima", teacher.Username)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(c *Config) { c.MaxRetries = 1 })

	_, err := client.GetStudent(context.Background(), 1)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPostServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := client.AddPrerequisite(context.Background(), 4, 2)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	err = client.AddDisciplineCourse(context.Background(), 2, 1)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPostTooManyRequestsIsRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id": 4, "name": "Biologia Molecular", "prerequisites": [2]}`))
	}, nil)

	d, err := client.AddPrerequisite(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTooManyRequestsHonoursRetryAfter(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	_, err := client.ListTeachers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSetStudentDisciplineStatusSendsWireStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/students/100/disciplines/2/status", r.URL.Path)
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"cursando"}`, string(body))

		_, _ = w.Write([]byte(`{"id": 100, "username": "ana", "is_active": true,
			"disciplines": [{"id": 2, "name": "Genética", "status": "cursando"}]}`))
	}, nil)

	ctx := WithToken(context.Background(), "caller-token")
	student, err := client.SetStudentDisciplineStatus(ctx, 100, 2, "cursando")
	require.NoError(t, err)
	require.Len(t, student.Disciplines, 1)
	assert.Equal(t, "cursando", student.Disciplines[0].Status)
}

func TestBadRequestIsPermanent(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Prerequisite already exists"}`))
	}, nil)

	_, err := client.AddPrerequisite(context.Background(), 2, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Prerequisite already exists")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMembershipWritesUseUpstreamPaths(t *testing.T) {
	type call struct{ method, path string }
	var (
		mu  sync.Mutex
		got []call
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, call{r.Method, r.URL.Path})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}, nil)

	ctx := context.Background()
	require.NoError(t, client.AddDisciplineCourse(ctx, 2, 1))
	require.NoError(t, client.RemoveDisciplineCourse(ctx, 2, 1))
	require.NoError(t, client.AddStudentDiscipline(ctx, 100, 2))
	require.NoError(t, client.RemoveStudentDiscipline(ctx, 100, 2))
	require.NoError(t, client.AddTeacherDiscipline(ctx, 200, 2))
	require.NoError(t, client.RemoveTeacherDiscipline(ctx, 200, 2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []call{
		{http.MethodPost, "/api/v1/disciplines/2/courses/1"},
		{http.MethodDelete, "/api/v1/disciplines/2/courses/1"},
		{http.MethodPatch, "/api/v1/students/100/disciplines/2"},
		{http.MethodPatch, "/api/v1/students/100/remove-discipline/2"},
		{http.MethodPatch, "/api/v1/teachers/200/disciplines/2"},
		{http.MethodPatch, "/api/v1/teachers/200/remove-discipline/2"},
	}, got)
}

func TestMalformedBodyIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{not json`))
	}, nil)

	_, err := client.GetStudent(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetStudent(ctx, 1)
	assert.Error(t, err)
}

func TestStudentPlacementWrites(t *testing.T) {
	type call struct{ method, path, body string }
	var (
		mu  sync.Mutex
		got []call
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, call{r.Method, r.URL.Path, string(body)})
		mu.Unlock()
		_, _ = w.Write([]byte(`{"id": 100, "username": "ana.souza", "course_id": 2}`))
	}, nil)

	ctx := context.Background()
	st, err := client.AssignCurriculumSchedule(ctx, 100, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.ID)

	st, err = client.ChangeStudentCourse(ctx, 100, 2)
	require.NoError(t, err)
	require.NotNil(t, st.CourseID)
	assert.Equal(t, int64(2), *st.CourseID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, call{http.MethodPatch, "/api/v1/students/100/assign-curriculum/7", ""}, got[0])
	assert.Equal(t, http.MethodPatch, got[1].method)
	assert.Equal(t, "/api/v1/students/100/change-course/", got[1].path)
	assert.JSONEq(t, `{"course_id": 2}`, got[1].body)
}
