package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
	"github.com/biograph/insights/internal/pkg/apperrors"
	"github.com/biograph/insights/internal/pkg/cache"
	"github.com/biograph/insights/internal/pkg/metrics"
)

const (
	DefaultSnapshotTTL   = 5 * time.Minute
	snapshotFetchTimeout = 2 * time.Minute
	mirrorSyncTimeout    = 30 * time.Second
)

// UpstreamReader lists the collections a snapshot is built from.
type UpstreamReader interface {
	ListCourses(ctx context.Context) ([]academicapi.CourseDTO, error)
	ListDisciplines(ctx context.Context) ([]academicapi.DisciplineDTO, error)
	ListStudents(ctx context.Context) ([]academicapi.StudentDTO, error)
	ListTeachers(ctx context.Context) ([]academicapi.TeacherDTO, error)
}

// SnapshotCache keeps a copy of the last snapshot outside the process.
type SnapshotCache interface {
	Get(ctx context.Context) (curriculum.Entities, time.Time, error)
	Set(ctx context.Context, e curriculum.Entities, takenAt time.Time) error
	Invalidate(ctx context.Context) error
}

// GraphMirror receives every freshly fetched snapshot.
type GraphMirror interface {
	SyncGraph(ctx context.Context, snap *curriculum.Snapshot) error
}

// SnapshotService keeps the curriculum store populated from the academic
// records API.
type SnapshotService interface {
	// Current returns a snapshot no older than the TTL, refetching when
	// needed. An older snapshot is served when the refetch fails.
	Current(ctx context.Context) (*curriculum.Snapshot, error)
	Refresh(ctx context.Context) (*dto.SnapshotInfoResponse, error)
	// ApplyStatus records an accepted status change locally.
	ApplyStatus(ctx context.Context, studentID, disciplineID int64, status curriculum.Status)
	// Invalidate forces the next Current call to refetch.
	Invalidate(ctx context.Context)
}

// snapshotServiceImpl implements SnapshotService
type snapshotServiceImpl struct {
	store    *curriculum.Store
	upstream UpstreamReader
	cache    SnapshotCache
	mirror   GraphMirror
	ttl      time.Duration

	group singleflight.Group
	stale atomic.Bool

	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewSnapshotService creates a new SnapshotService. cache and mirror may be nil.
func NewSnapshotService(
	store *curriculum.Store,
	upstream UpstreamReader,
	snapshotCache SnapshotCache,
	mirror GraphMirror,
	ttl time.Duration,
	log zerolog.Logger,
) SnapshotService {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &snapshotServiceImpl{
		store:    store,
		upstream: upstream,
		cache:    snapshotCache,
		mirror:   mirror,
		ttl:      ttl,
		log:      log.With().Str("component", "snapshot").Logger(),
		tracer:   otel.Tracer("github.com/biograph/insights/internal/app/services"),
		now:      time.Now,
	}
}

func (s *snapshotServiceImpl) fresh() bool {
	if s.store.Empty() || s.stale.Load() {
		return false
	}
	return s.now().Sub(s.store.Snapshot().TakenAt()) < s.ttl
}

// Current returns the current snapshot, loading it when missing or expired
func (s *snapshotServiceImpl) Current(ctx context.Context) (*curriculum.Snapshot, error) {
	if s.fresh() {
		return s.store.Snapshot(), nil
	}

	if s.store.Empty() && s.cache != nil {
		s.loadFromCache(ctx)
		if s.fresh() {
			return s.store.Snapshot(), nil
		}
	}

	snap, err := s.fetchShared(ctx)
	if err != nil {
		if !s.store.Empty() {
			s.log.Warn().Err(err).
				Time("taken_at", s.store.Snapshot().TakenAt()).
				Msg("Snapshot refresh failed, serving previous snapshot")
			return s.store.Snapshot(), nil
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSnapshotUnavailable, err)
	}
	return snap, nil
}

// Refresh fetches a new snapshot regardless of its age
func (s *snapshotServiceImpl) Refresh(ctx context.Context) (*dto.SnapshotInfoResponse, error) {
	snap, err := s.fetchShared(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError("refresh snapshot", err)
	}
	info := dto.NewSnapshotInfoResponse(snap)
	return &info, nil
}

// ApplyStatus updates the local snapshot and the cached copy
func (s *snapshotServiceImpl) ApplyStatus(ctx context.Context, studentID, disciplineID int64, status curriculum.Status) {
	s.store.ApplyStatus(studentID, disciplineID, status)
	if s.cache == nil {
		return
	}
	snap := s.store.Snapshot()
	if err := s.cache.Set(ctx, snap.Entities(), snap.TakenAt()); err != nil {
		s.log.Warn().Err(err).Msg("Failed to update cached snapshot")
	}
}

// Invalidate marks the snapshot stale and drops the cached copy
func (s *snapshotServiceImpl) Invalidate(ctx context.Context) {
	s.stale.Store(true)
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate cached snapshot")
	}
}

func (s *snapshotServiceImpl) loadFromCache(ctx context.Context) {
	e, takenAt, err := s.cache.Get(ctx)
	if err != nil {
		outcome := "error"
		if errors.Is(err, cache.ErrCacheMiss) {
			outcome = "miss"
		} else {
			s.log.Warn().Err(err).Msg("Failed to read cached snapshot")
		}
		metrics.SnapshotRefreshTotal.WithLabelValues("cache", outcome).Inc()
		return
	}

	if err := s.store.ReplaceAllAt(e, takenAt); err != nil {
		s.log.Warn().Err(err).Msg("Cached snapshot rejected")
		metrics.SnapshotRefreshTotal.WithLabelValues("cache", "error").Inc()
		return
	}
	metrics.SnapshotRefreshTotal.WithLabelValues("cache", "ok").Inc()
	s.recordSnapshot(s.store.Snapshot())
	s.log.Info().Time("taken_at", takenAt).Msg("Snapshot restored from cache")
}

// fetchShared collapses concurrent refreshes into one upstream fetch. The
// fetch is detached from the caller's cancellation; each caller stops waiting
// when its own context is done.
func (s *snapshotServiceImpl) fetchShared(ctx context.Context) (*curriculum.Snapshot, error) {
	ch := s.group.DoChan("snapshot", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotFetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*curriculum.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *snapshotServiceImpl) fetch(ctx context.Context) (*curriculum.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "snapshot.fetch")
	defer span.End()

	start := s.now()
	s.stale.Store(false)

	var (
		courses     []academicapi.CourseDTO
		disciplines []academicapi.DisciplineDTO
		students    []academicapi.StudentDTO
		teachers    []academicapi.TeacherDTO
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		courses, err = s.upstream.ListCourses(gctx)
		return err
	})
	g.Go(func() (err error) {
		disciplines, err = s.upstream.ListDisciplines(gctx)
		return err
	})
	g.Go(func() (err error) {
		students, err = s.upstream.ListStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		teachers, err = s.upstream.ListTeachers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.stale.Store(true)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.SnapshotRefreshTotal.WithLabelValues("upstream", "error").Inc()
		return nil, fmt.Errorf("error fetching snapshot: %w", err)
	}

	entities := academicapi.ToEntities(courses, disciplines, students, teachers, s.log)
	if err := s.store.ReplaceAll(entities); err != nil {
		s.stale.Store(true)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.SnapshotRefreshTotal.WithLabelValues("upstream", "error").Inc()
		return nil, err
	}

	snap := s.store.Snapshot()
	metrics.SnapshotRefreshTotal.WithLabelValues("upstream", "ok").Inc()
	s.recordSnapshot(snap)
	span.SetAttributes(
		attribute.Int("snapshot.disciplines", len(entities.Disciplines)),
		attribute.Int("snapshot.students", len(entities.Students)),
	)

	if _, err := snap.Graph(); err != nil {
		// The snapshot is still served; graph operations report the error.
		s.log.Error().Err(err).Msg("Curriculum graph is invalid")
	}

	s.log.Info().
		Int("courses", len(entities.Courses)).
		Int("disciplines", len(entities.Disciplines)).
		Int("students", len(entities.Students)).
		Int("teachers", len(entities.Teachers)).
		Dur("took", s.now().Sub(start)).
		Msg("Snapshot refreshed")

	if s.cache != nil {
		if err := s.cache.Set(ctx, entities, snap.TakenAt()); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache snapshot")
		}
	}
	if s.mirror != nil {
		go s.syncMirror(context.WithoutCancel(ctx), snap)
	}

	return snap, nil
}

func (s *snapshotServiceImpl) syncMirror(ctx context.Context, snap *curriculum.Snapshot) {
	ctx, cancel := context.WithTimeout(ctx, mirrorSyncTimeout)
	defer cancel()
	if err := s.mirror.SyncGraph(ctx, snap); err != nil {
		s.log.Warn().Err(err).Msg("Graph mirror sync failed")
	}
}

func (s *snapshotServiceImpl) recordSnapshot(snap *curriculum.Snapshot) {
	e := snap.Entities()
	metrics.SnapshotEntities.WithLabelValues(string(curriculum.KindCourse)).Set(float64(len(e.Courses)))
	metrics.SnapshotEntities.WithLabelValues(string(curriculum.KindDiscipline)).Set(float64(len(e.Disciplines)))
	metrics.SnapshotEntities.WithLabelValues(string(curriculum.KindStudent)).Set(float64(len(e.Students)))
	metrics.SnapshotEntities.WithLabelValues(string(curriculum.KindTeacher)).Set(float64(len(e.Teachers)))
	metrics.SnapshotTimestamp.Set(float64(snap.TakenAt().Unix()))
}
