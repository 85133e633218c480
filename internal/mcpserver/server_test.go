package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
)

// newTestServer wires the real services to an academic API stub serving
// a four discipline curriculum: 2 and 3 require 1, 4 requires 2 and 3.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	collections := map[string]interface{}{
		"/api/v1/courses/": []academicapi.CourseDTO{{ID: 1, Name: "Ciências Biológicas"}},
		"/api/v1/disciplines/": []academicapi.DisciplineDTO{
			{ID: 1, Name: "Biologia Celular", CourseIDs: []int64{1}},
			{ID: 2, Name: "Genética", CourseIDs: []int64{1}, Prerequisites: []int64{1}},
			{ID: 3, Name: "Bioquímica", CourseIDs: []int64{1}, Prerequisites: []int64{1}},
			{ID: 4, Name: "Biologia Molecular", Prerequisites: []int64{2, 3}},
		},
		"/api/v1/students/": []academicapi.StudentDTO{
			{ID: 100, Username: "ana.souza", IsActive: true, Disciplines: []academicapi.DisciplineDTO{
				{ID: 1, Status: curriculum.WireCompleted},
				{ID: 2, Status: curriculum.WireInProgress},
			}},
		},
		"/api/v1/teachers/": []academicapi.TeacherDTO{},
	}

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := collections[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("skip") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(api.Close)

	client := academicapi.NewClient(academicapi.Config{
		BaseURL:   api.URL,
		Token:     "service-token",
		Timeout:   2 * time.Second,
		RateLimit: 1000,
		Burst:     100,
		PageSize:  50,
	}, zerolog.Nop())

	authz := auth.NewAuthorizationService()
	snapshots := services.NewSnapshotService(curriculum.NewStore(), client, nil, nil, time.Minute, zerolog.Nop())
	svcs := services.Services{
		Snapshot:   snapshots,
		Insights:   services.NewInsightsService(snapshots, authz, zerolog.Nop()),
		Status:     services.NewStatusService(snapshots, client, nil, authz, zerolog.Nop()),
		Curriculum: services.NewCurriculumService(snapshots, client, authz, zerolog.Nop()),
	}
	return NewServer(svcs, SystemActor(), zerolog.Nop())
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestRecommendDisciplines(t *testing.T) {
	s := newTestServer(t)

	result, err := s.as(s.handleRecommend)(context.Background(), callRequest("recommend_disciplines", map[string]interface{}{
		"student_id": float64(100),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var resp dto.RecommendationsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, int64(3), resp.Recommendations[0].ID)
	assert.Equal(t, "Bioquímica", resp.Recommendations[0].Name)
}

func TestRecommendDisciplinesRejectsBadID(t *testing.T) {
	s := newTestServer(t)

	for _, id := range []interface{}{nil, float64(0), float64(1.5)} {
		args := map[string]interface{}{}
		if id != nil {
			args["student_id"] = id
		}
		result, err := s.as(s.handleRecommend)(context.Background(), callRequest("recommend_disciplines", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, id)
	}
}

func TestGraduationPath(t *testing.T) {
	s := newTestServer(t)

	for _, required := range []interface{}{[]interface{}{float64(4)}, "4"} {
		result, err := s.as(s.handleGraduationPath)(context.Background(), callRequest("graduation_path", map[string]interface{}{
			"student_id":   float64(100),
			"required_ids": required,
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, resultText(t, result))

		var resp dto.GraduationPathResponse
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
		assert.Equal(t, []int64{2, 3, 4}, resp.Path)
	}
}

func TestGraduationPathUnknownDiscipline(t *testing.T) {
	s := newTestServer(t)

	result, err := s.as(s.handleGraduationPath)(context.Background(), callRequest("graduation_path", map[string]interface{}{
		"student_id":   float64(100),
		"required_ids": []interface{}{float64(42)},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "42")
}

func TestPrerequisiteGraph(t *testing.T) {
	s := newTestServer(t)

	result, err := s.as(s.handleGraph)(context.Background(), callRequest("prerequisite_graph", nil))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var resp dto.GraphResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Len(t, resp.Nodes, 4)
	assert.Len(t, resp.Links, 4)
	assert.Contains(t, resp.Links, curriculum.Edge{From: 4, To: 3})
}

func TestDisciplineStatus(t *testing.T) {
	s := newTestServer(t)

	result, err := s.as(s.handleStatus)(context.Background(), callRequest("discipline_status", map[string]interface{}{
		"student_id":    float64(100),
		"discipline_id": float64(2),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var resp dto.DisciplineStatusResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, curriculum.WireInProgress, resp.Status)
}

func TestLookupEntity(t *testing.T) {
	s := newTestServer(t)

	result, err := s.as(s.handleLookup)(context.Background(), callRequest("lookup_entity", map[string]interface{}{
		"kind": "discipline",
		"id":   float64(2),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var resp dto.DisciplineResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "Genética", resp.Name)
	assert.Equal(t, []int64{1}, resp.Prerequisites)

	for _, args := range []map[string]interface{}{
		{"kind": "room", "id": float64(1)},
		{"kind": "student", "id": float64(999)},
		{"id": float64(1)},
	} {
		result, err := s.as(s.handleLookup)(context.Background(), callRequest("lookup_entity", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, args)
	}
}

func TestToolsRequireAnActor(t *testing.T) {
	s := newTestServer(t)

	// Without the actor wrapper the services refuse the call.
	result, err := s.handleRecommend(context.Background(), callRequest("recommend_disciplines", map[string]interface{}{
		"student_id": float64(100),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList([]interface{}{float64(1), "2", json.Number("3")})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseIDList(" 4, 5 ,")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids)

	_, err = parseIDList(nil)
	assert.Error(t, err)
	_, err = parseIDList([]interface{}{"x"})
	assert.Error(t, err)
	_, err = parseIDList(map[string]interface{}{})
	assert.Error(t, err)
}
