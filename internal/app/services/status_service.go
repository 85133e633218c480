package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
	"github.com/biograph/insights/internal/pkg/apperrors"
	"github.com/biograph/insights/internal/pkg/helpers"
	"github.com/biograph/insights/internal/pkg/metrics"
)

// StatusWriter forwards accepted status changes to the system of record.
type StatusWriter interface {
	SetStudentDisciplineStatus(ctx context.Context, studentID, disciplineID int64, wireStatus string) (*academicapi.StudentDTO, error)
}

// StatusAuditStore persists the status change history.
type StatusAuditStore interface {
	Create(ctx context.Context, audit *models.StatusAudit) error
	ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*models.StatusAudit, error)
	CountByStudent(ctx context.Context, studentID int64) (int64, error)
}

// StatusService defines the interface for discipline status operations
type StatusService interface {
	GetStatus(ctx context.Context, studentID, disciplineID int64) (*dto.DisciplineStatusResponse, error)
	UpdateStatus(ctx context.Context, studentID, disciplineID int64, req *dto.UpdateStatusRequest) (*dto.DisciplineStatusResponse, error)
	GetHistory(ctx context.Context, studentID int64, page, pageSize int) (*dto.PaginatedResponse, error)
}

// statusServiceImpl implements StatusService
type statusServiceImpl struct {
	snapshots    SnapshotService
	writer       StatusWriter
	audits       StatusAuditStore
	authzService *auth.AuthorizationService
	log          zerolog.Logger
}

// NewStatusService creates a new StatusService. audits may be nil when no
// database is configured; changes are then not recorded.
func NewStatusService(
	snapshots SnapshotService,
	writer StatusWriter,
	audits StatusAuditStore,
	authzService *auth.AuthorizationService,
	log zerolog.Logger,
) StatusService {
	return &statusServiceImpl{
		snapshots:    snapshots,
		writer:       writer,
		audits:       audits,
		authzService: authzService,
		log:          log.With().Str("component", "status").Logger(),
	}
}

// GetStatus returns the status of one discipline for a student
func (s *statusServiceImpl) GetStatus(ctx context.Context, studentID, disciplineID int64) (*dto.DisciplineStatusResponse, error) {
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
	status, err := curriculum.NewEngine(snap).StatusOf(studentID, disciplineID)
	if err != nil {
		return nil, err
	}

	return &dto.DisciplineStatusResponse{
		StudentID:    studentID,
		DisciplineID: disciplineID,
		Status:       status.Wire(),
	}, nil
}

// UpdateStatus validates a status change against the prerequisite graph,
// forwards it upstream and records it
func (s *statusServiceImpl) UpdateStatus(ctx context.Context, studentID, disciplineID int64, req *dto.UpdateStatusRequest) (*dto.DisciplineStatusResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	target, err := curriculum.ParseStatus(req.Status)
	if err != nil {
		metrics.StatusChangesTotal.WithLabelValues("invalid", "rejected").Inc()
		return nil, err
	}
	label := string(target)

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.authzService.CanChangeStatus(actor, snap, studentID, disciplineID, req.Override); err != nil {
		metrics.StatusChangesTotal.WithLabelValues(label, "forbidden").Inc()
		return nil, err
	}

	engine := curriculum.NewEngine(snap)
	previous, err := engine.StatusOf(studentID, disciplineID)
	if err != nil {
		return nil, err
	}
	if _, err := engine.SetStatus(studentID, disciplineID, target, req.Override); err != nil {
		metrics.StatusChangesTotal.WithLabelValues(label, "rejected").Inc()
		return nil, err
	}

	resp := &dto.DisciplineStatusResponse{
		StudentID:    studentID,
		DisciplineID: disciplineID,
		Status:       target.Wire(),
	}
	if previous == target {
		metrics.StatusChangesTotal.WithLabelValues(label, "unchanged").Inc()
		return resp, nil
	}

	upstreamCtx := academicapi.WithToken(ctx, actor.Token)
	if _, err := s.writer.SetStudentDisciplineStatus(upstreamCtx, studentID, disciplineID, target.Wire()); err != nil {
		metrics.StatusChangesTotal.WithLabelValues(label, "upstream_error").Inc()
		if errors.Is(err, academicapi.ErrNotFound) {
			return nil, apperrors.NewResourceNotFoundError(
				fmt.Sprintf("student %d or discipline %d not found upstream", studentID, disciplineID))
		}
		return nil, apperrors.NewUpstreamError("update discipline status", err)
	}

	s.snapshots.ApplyStatus(ctx, studentID, disciplineID, target)
	metrics.StatusChangesTotal.WithLabelValues(label, "accepted").Inc()

	s.log.Info().
		Int64("student_id", studentID).
		Int64("discipline_id", disciplineID).
		Str("from", string(previous)).
		Str("to", label).
		Bool("override", req.Override).
		Int64("actor_id", actor.UserID).
		Msg("Discipline status changed")

	if s.audits != nil {
		audit := &models.StatusAudit{
			StudentID:      studentID,
			DisciplineID:   disciplineID,
			PreviousStatus: previous.Wire(),
			NewStatus:      target.Wire(),
			Override:       req.Override,
			ActorID:        actor.UserID,
			ActorRole:      actor.Role,
		}
		// The change is already accepted upstream; a lost audit row is logged, not returned.
		if err := s.audits.Create(ctx, audit); err != nil {
			s.log.Error().Err(err).
				Int64("student_id", studentID).
				Int64("discipline_id", disciplineID).
				Msg("Failed to record status audit")
		}
	}

	return resp, nil
}

// GetHistory returns a student's status changes, newest first
func (s *statusServiceImpl) GetHistory(ctx context.Context, studentID int64, page, pageSize int) (*dto.PaginatedResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.authzService.CanViewStudent(actor, studentID); err != nil {
		return nil, err
	}
	if s.audits == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrFeatureDisabled, "status history requires a database")
	}

	offset, limit := helpers.CalculateOffsetLimit(page, pageSize)
	total, err := s.audits.CountByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("error counting status history: %w", err)
	}
	rows, err := s.audits.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error getting status history: %w", err)
	}

	items := make([]dto.StatusAuditResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewStatusAuditResponse(row))
	}

	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(total, page, limit),
	}, nil
}
