// Package mcpserver exposes the curriculum insights to LLM agents over the
// Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/curriculum"
)

// Version is reported to MCP clients during initialization
const Version = "1.0.0"

// Server adapts the insight services to MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	services  services.Services
	actor     auth.Actor
	log       zerolog.Logger
}

// NewServer registers the tools. Every call runs as actor; the stdio agent is
// a local operator, so cmd/mcp passes an admin actor without a token and the
// academic API client falls back to its configured token.
func NewServer(svcs services.Services, actor auth.Actor, log zerolog.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("biograph-insights", Version),
		services:  svcs,
		actor:     actor,
		log:       log.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

// SystemActor is the identity used by the stdio server.
func SystemActor() auth.Actor {
	return auth.Actor{Role: models.RoleAdmin}
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"recommend_disciplines",
		mcp.WithDescription("List the pending disciplines a student can start now: every prerequisite is completed. Sorted by discipline id."),
		mcp.WithNumber("student_id", mcp.Required(), mcp.Description("The student id")),
	), s.as(s.handleRecommend))

	s.mcpServer.AddTool(mcp.NewTool(
		"graduation_path",
		mcp.WithDescription("Order the disciplines a student still has to take to finish the required ones, prerequisites first."),
		mcp.WithNumber("student_id", mcp.Required(), mcp.Description("The student id")),
		mcp.WithArray("required_ids", mcp.Required(),
			mcp.Description("Discipline ids the student must complete"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	), s.as(s.handleGraduationPath))

	s.mcpServer.AddTool(mcp.NewTool(
		"prerequisite_graph",
		mcp.WithDescription("Return every discipline as a node and every prerequisite as a link from the discipline (source) to its prerequisite (target)."),
	), s.as(s.handleGraph))

	s.mcpServer.AddTool(mcp.NewTool(
		"discipline_status",
		mcp.WithDescription("Return the status of a discipline for a student: pendente, cursando or concluido."),
		mcp.WithNumber("student_id", mcp.Required(), mcp.Description("The student id")),
		mcp.WithNumber("discipline_id", mcp.Required(), mcp.Description("The discipline id")),
	), s.as(s.handleStatus))
}

// as runs h with the server actor in the context.
func (s *Server) as(h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return h(auth.WithActor(ctx, s.actor), request)
	}
}

func (s *Server) handleRecommend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studentID, err := requireID(request, "student_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.services.Insights.GetRecommendations(ctx, studentID)
	if err != nil {
		return s.toolError("recommend_disciplines", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleGraduationPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studentID, err := requireID(request, "student_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	required, err := parseIDList(request.GetArguments()["required_ids"])
	if err != nil {
		return mcp.NewToolResultError("required_ids: " + err.Error()), nil
	}

	resp, err := s.services.Insights.GetGraduationPath(ctx, studentID, &dto.GraduationPathRequest{RequiredIDs: required})
	if err != nil {
		return s.toolError("graduation_path", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleGraph(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.services.Insights.GetGraph(ctx)
	if err != nil {
		return s.toolError("prerequisite_graph", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studentID, err := requireID(request, "student_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	disciplineID, err := requireID(request, "discipline_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.services.Status.GetStatus(ctx, studentID, disciplineID)
	if err != nil {
		return s.toolError("discipline_status", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := strings.TrimSpace(mcp.ParseString(request, "kind", ""))
	if kind == "" {
		return mcp.NewToolResultError("kind is required"), nil
	}
	id, err := requireID(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.services.Curriculum.GetEntity(ctx, curriculum.Kind(kind), id)
	if err != nil {
		return s.toolError("lookup_entity", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.log.Warn().Err(err).Str("tool", tool).Msg("Tool call failed")
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func requireID(request mcp.CallToolRequest, name string) (int64, error) {
	v := mcp.ParseFloat64(request, name, 0)
	if v <= 0 || v != float64(int64(v)) {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return int64(v), nil
}

// parseIDList accepts a JSON array of numbers or a comma separated string.
func parseIDList(raw any) ([]int64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errors.New("is required")
	case []any:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			id, err := toID(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	case string:
		ids := []int64{}
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := toID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
}

func toID(item any) (int64, error) {
	switch n := item.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an id", n)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", item)
	}
}
