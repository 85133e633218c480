package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/apperrors"
)

// InsightsService defines the interface for curriculum insight operations
type InsightsService interface {
	GetGraph(ctx context.Context) (*dto.GraphResponse, error)
	GetRecommendations(ctx context.Context, studentID int64) (*dto.RecommendationsResponse, error)
	GetGraduationPath(ctx context.Context, studentID int64, req *dto.GraduationPathRequest) (*dto.GraduationPathResponse, error)
	GetProgress(ctx context.Context, studentID int64) (*dto.ProgressResponse, error)
}

// insightsServiceImpl implements InsightsService
type insightsServiceImpl struct {
	snapshots    SnapshotService
	authzService *auth.AuthorizationService
	log          zerolog.Logger
}

// NewInsightsService creates a new InsightsService
func NewInsightsService(snapshots SnapshotService, authzService *auth.AuthorizationService, log zerolog.Logger) InsightsService {
	return &insightsServiceImpl{
		snapshots:    snapshots,
		authzService: authzService,
		log:          log.With().Str("component", "insights").Logger(),
	}
}

// actorFrom returns the caller or a permission error when the request is anonymous
func actorFrom(ctx context.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return auth.Actor{}, apperrors.NewForbiddenError("authentication required")
	}
	return actor, nil
}

// engineFor authorizes the caller and binds an engine to the current snapshot
func (s *insightsServiceImpl) engineFor(ctx context.Context, studentID int64) (*curriculum.Engine, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.authzService.CanViewStudent(actor, studentID); err != nil {
		return nil, err
	}

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	return curriculum.NewEngine(snap), nil
}

// GetGraph returns the whole prerequisite graph
func (s *insightsServiceImpl) GetGraph(ctx context.Context) (*dto.GraphResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}

	g, err := curriculum.NewEngine(snap).BuildGraph()
	if err != nil {
		return nil, err
	}

	resp := dto.NewGraphResponse(g)
	return &resp, nil
}

// GetRecommendations lists the disciplines a student can start now
func (s *insightsServiceImpl) GetRecommendations(ctx context.Context, studentID int64) (*dto.RecommendationsResponse, error) {
	engine, err := s.engineFor(ctx, studentID)
	if err != nil {
		return nil, err
	}

	ids, err := engine.Recommend(studentID)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int64("student_id", studentID).Int("count", len(ids)).Msg("Recommendations computed")

	g, err := engine.BuildGraph()
	if err != nil {
		return nil, err
	}
	resp := dto.NewRecommendationsResponse(g, ids)
	return &resp, nil
}

// GetGraduationPath orders the disciplines still needed for the required set
func (s *insightsServiceImpl) GetGraduationPath(ctx context.Context, studentID int64, req *dto.GraduationPathRequest) (*dto.GraduationPathResponse, error) {
	engine, err := s.engineFor(ctx, studentID)
	if err != nil {
		return nil, err
	}

	path, err := engine.GraduationPath(studentID, req.RequiredIDs)
	if err != nil {
		return nil, err
	}
	if path == nil {
		path = []int64{}
	}

	return &dto.GraduationPathResponse{Path: path}, nil
}

// GetProgress returns the student's curriculum map
func (s *insightsServiceImpl) GetProgress(ctx context.Context, studentID int64) (*dto.ProgressResponse, error) {
	engine, err := s.engineFor(ctx, studentID)
	if err != nil {
		return nil, err
	}

	progress, err := engine.Progress(studentID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewProgressResponse(progress)
	return &resp, nil
}
