package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
	"github.com/biograph/insights/internal/pkg/apperrors"
)

// CatalogWriter issues curriculum changes to the system of record.
type CatalogWriter interface {
	AddPrerequisite(ctx context.Context, disciplineID, prerequisiteID int64) (*academicapi.DisciplineDTO, error)
	AddDisciplineCourse(ctx context.Context, disciplineID, courseID int64) error
	RemoveDisciplineCourse(ctx context.Context, disciplineID, courseID int64) error
	AddStudentDiscipline(ctx context.Context, studentID, disciplineID int64) error
	RemoveStudentDiscipline(ctx context.Context, studentID, disciplineID int64) error
	AddTeacherDiscipline(ctx context.Context, teacherID, disciplineID int64) error
	RemoveTeacherDiscipline(ctx context.Context, teacherID, disciplineID int64) error
	AssignCurriculumSchedule(ctx context.Context, studentID, scheduleID int64) (*academicapi.StudentDTO, error)
	ChangeStudentCourse(ctx context.Context, studentID, courseID int64) (*academicapi.StudentDTO, error)
}

// CurriculumService defines the interface for catalog reads and curriculum changes
type CurriculumService interface {
	ListCourses(ctx context.Context) ([]dto.CourseResponse, error)
	ListDisciplines(ctx context.Context) ([]dto.DisciplineResponse, error)
	GetStudent(ctx context.Context, studentID int64) (*dto.StudentResponse, error)
	GetTeacher(ctx context.Context, teacherID int64) (*dto.TeacherResponse, error)
	GetEntity(ctx context.Context, kind curriculum.Kind, id int64) (any, error)
	AddPrerequisite(ctx context.Context, disciplineID, prerequisiteID int64) (*dto.DisciplineResponse, error)
	ReconcileDisciplineCourses(ctx context.Context, disciplineID int64, courseIDs []int64) (*dto.ReconcileResponse, error)
	ReconcileStudentDisciplines(ctx context.Context, studentID int64, disciplineIDs []int64) (*dto.ReconcileResponse, error)
	ReconcileTeacherDisciplines(ctx context.Context, teacherID int64, disciplineIDs []int64) (*dto.ReconcileResponse, error)
	AssignCurriculumSchedule(ctx context.Context, studentID, scheduleID int64) (*dto.StudentResponse, error)
	ChangeStudentCourse(ctx context.Context, studentID, courseID int64) (*dto.StudentResponse, error)
}

// curriculumServiceImpl implements CurriculumService
type curriculumServiceImpl struct {
	snapshots    SnapshotService
	writer       CatalogWriter
	authzService *auth.AuthorizationService
	log          zerolog.Logger
}

// NewCurriculumService creates a new CurriculumService
func NewCurriculumService(snapshots SnapshotService, writer CatalogWriter, authzService *auth.AuthorizationService, log zerolog.Logger) CurriculumService {
	return &curriculumServiceImpl{
		snapshots:    snapshots,
		writer:       writer,
		authzService: authzService,
		log:          log.With().Str("component", "curriculum").Logger(),
	}
}

// ListCourses lists every course ordered by id
func (s *curriculumServiceImpl) ListCourses(ctx context.Context) ([]dto.CourseResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}

	courses := snap.Courses()
	resp := make([]dto.CourseResponse, 0, len(courses))
	for _, c := range courses {
		resp = append(resp, dto.NewCourseResponse(c))
	}
	return resp, nil
}

// ListDisciplines lists every discipline ordered by id
func (s *curriculumServiceImpl) ListDisciplines(ctx context.Context) ([]dto.DisciplineResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}

	disciplines := snap.Disciplines()
	resp := make([]dto.DisciplineResponse, 0, len(disciplines))
	for _, d := range disciplines {
		resp = append(resp, dto.NewDisciplineResponse(d))
	}
	return resp, nil
}

// GetStudent returns a student with their discipline statuses
func (s *curriculumServiceImpl) GetStudent(ctx context.Context, studentID int64) (*dto.StudentResponse, error) {
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
	student, ok := snap.Student(studentID)
	if !ok {
		return nil, &curriculum.UnknownStudentError{ID: studentID}
	}

	resp := dto.NewStudentResponse(student)
	return &resp, nil
}

// GetTeacher returns a teacher with their disciplines
func (s *curriculumServiceImpl) GetTeacher(ctx context.Context, teacherID int64) (*dto.TeacherResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	teacher, ok := snap.Teacher(teacherID)
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("teacher %d not found", teacherID))
	}

	resp := dto.NewTeacherResponse(teacher)
	return &resp, nil
}

// GetEntity looks up an entity of any kind and returns its response DTO
func (s *curriculumServiceImpl) GetEntity(ctx context.Context, kind curriculum.Kind, id int64) (any, error) {
	switch kind {
	case curriculum.KindCourse, curriculum.KindDiscipline, curriculum.KindTeacher:
	case curriculum.KindStudent:
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.authzService.CanViewStudent(actor, id); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewValidationError("kind", fmt.Sprintf("unknown entity kind %q", kind))
	}

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	entity, ok := snap.GetByID(kind, id)
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("%s %d not found", kind, id))
	}

	switch e := entity.(type) {
	case curriculum.Course:
		return dto.NewCourseResponse(e), nil
	case curriculum.Discipline:
		return dto.NewDisciplineResponse(e), nil
	case curriculum.Student:
		return dto.NewStudentResponse(e), nil
	case curriculum.Teacher:
		return dto.NewTeacherResponse(e), nil
	}
	return entity, nil
}

// AddPrerequisite adds a prerequisite edge after checking it keeps the graph acyclic
func (s *curriculumServiceImpl) AddPrerequisite(ctx context.Context, disciplineID, prerequisiteID int64) (*dto.DisciplineResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	g, err := snap.Graph()
	if err != nil {
		return nil, err
	}

	if missing := missingIDs(g.Has, disciplineID, prerequisiteID); len(missing) > 0 {
		return nil, &curriculum.UnknownDisciplineError{IDs: missing}
	}

	discipline, _ := snap.Discipline(disciplineID)
	for _, p := range g.Prerequisites(disciplineID) {
		if p == prerequisiteID {
			resp := dto.NewDisciplineResponse(discipline)
			return &resp, nil
		}
	}

	if cycle, ok := g.WouldCreateCycle(disciplineID, prerequisiteID); ok {
		return nil, &curriculum.CyclicPrerequisiteError{Cycle: cycle}
	}

	updated, err := s.writer.AddPrerequisite(s.upstreamContext(ctx), disciplineID, prerequisiteID)
	if err != nil {
		return nil, s.upstreamError("add prerequisite", err)
	}
	s.snapshots.Invalidate(ctx)

	s.log.Info().
		Int64("discipline_id", disciplineID).
		Int64("prerequisite_id", prerequisiteID).
		Msg("Prerequisite added")

	resp := dto.NewDisciplineResponse(academicapi.ToDiscipline(*updated))
	return &resp, nil
}

// ReconcileDisciplineCourses makes the discipline's course list equal to courseIDs
func (s *curriculumServiceImpl) ReconcileDisciplineCourses(ctx context.Context, disciplineID int64, courseIDs []int64) (*dto.ReconcileResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	discipline, ok := snap.Discipline(disciplineID)
	if !ok {
		return nil, &curriculum.UnknownDisciplineError{IDs: []int64{disciplineID}}
	}
	if missing := missingIDs(func(id int64) bool { _, ok := snap.Course(id); return ok }, courseIDs...); len(missing) > 0 {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("unknown course ids %v", missing))
	}

	return s.reconcile(ctx, "discipline courses", discipline.CourseIDs, courseIDs,
		func(ctx context.Context, id int64) error { return s.writer.AddDisciplineCourse(ctx, disciplineID, id) },
		func(ctx context.Context, id int64) error { return s.writer.RemoveDisciplineCourse(ctx, disciplineID, id) },
	)
}

// ReconcileStudentDisciplines makes the student's discipline list equal to disciplineIDs
func (s *curriculumServiceImpl) ReconcileStudentDisciplines(ctx context.Context, studentID int64, disciplineIDs []int64) (*dto.ReconcileResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	student, ok := snap.Student(studentID)
	if !ok {
		return nil, &curriculum.UnknownStudentError{ID: studentID}
	}
	if err := checkDisciplines(snap, disciplineIDs); err != nil {
		return nil, err
	}

	return s.reconcile(ctx, "student disciplines", student.Enrolled, disciplineIDs,
		func(ctx context.Context, id int64) error { return s.writer.AddStudentDiscipline(ctx, studentID, id) },
		func(ctx context.Context, id int64) error { return s.writer.RemoveStudentDiscipline(ctx, studentID, id) },
	)
}

// ReconcileTeacherDisciplines makes the teacher's discipline list equal to disciplineIDs
func (s *curriculumServiceImpl) ReconcileTeacherDisciplines(ctx context.Context, teacherID int64, disciplineIDs []int64) (*dto.ReconcileResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	teacher, ok := snap.Teacher(teacherID)
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("teacher %d not found", teacherID))
	}
	if err := checkDisciplines(snap, disciplineIDs); err != nil {
		return nil, err
	}

	return s.reconcile(ctx, "teacher disciplines", teacher.DisciplineIDs, disciplineIDs,
		func(ctx context.Context, id int64) error { return s.writer.AddTeacherDiscipline(ctx, teacherID, id) },
		func(ctx context.Context, id int64) error { return s.writer.RemoveTeacherDiscipline(ctx, teacherID, id) },
	)
}

// AssignCurriculumSchedule enrols a student in a curriculum schedule. Schedules
// are not part of the snapshot, so only the student is checked locally.
func (s *curriculumServiceImpl) AssignCurriculumSchedule(ctx context.Context, studentID, scheduleID int64) (*dto.StudentResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Student(studentID); !ok {
		return nil, &curriculum.UnknownStudentError{ID: studentID}
	}

	updated, err := s.writer.AssignCurriculumSchedule(s.upstreamContext(ctx), studentID, scheduleID)
	if err != nil {
		return nil, s.upstreamError("assign curriculum schedule", err)
	}
	s.snapshots.Invalidate(ctx)

	s.log.Info().
		Int64("student_id", studentID).
		Int64("schedule_id", scheduleID).
		Msg("Curriculum schedule assigned")

	resp := dto.NewStudentResponse(academicapi.ToStudent(*updated, s.log))
	return &resp, nil
}

// ChangeStudentCourse moves a student to another course
func (s *curriculumServiceImpl) ChangeStudentCourse(ctx context.Context, studentID, courseID int64) (*dto.StudentResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	student, ok := snap.Student(studentID)
	if !ok {
		return nil, &curriculum.UnknownStudentError{ID: studentID}
	}
	if _, ok := snap.Course(courseID); !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("course %d not found", courseID))
	}
	if student.CourseID == courseID {
		resp := dto.NewStudentResponse(student)
		return &resp, nil
	}

	updated, err := s.writer.ChangeStudentCourse(s.upstreamContext(ctx), studentID, courseID)
	if err != nil {
		return nil, s.upstreamError("change student course", err)
	}
	s.snapshots.Invalidate(ctx)

	s.log.Info().
		Int64("student_id", studentID).
		Int64("from_course_id", student.CourseID).
		Int64("to_course_id", courseID).
		Msg("Student course changed")

	resp := dto.NewStudentResponse(academicapi.ToStudent(*updated, s.log))
	return &resp, nil
}

type membershipCall func(ctx context.Context, id int64) error

// reconcile issues one add per missing id and one remove per extra id. The
// snapshot is invalidated whenever a call went out, even if a later one failed.
func (s *curriculumServiceImpl) reconcile(ctx context.Context, what string, current, desired []int64, add, remove membershipCall) (*dto.ReconcileResponse, error) {
	added, removed := DiffIDs(current, desired)
	resp := &dto.ReconcileResponse{Added: []int64{}, Removed: []int64{}}
	if len(added) == 0 && len(removed) == 0 {
		return resp, nil
	}

	upstreamCtx := s.upstreamContext(ctx)
	defer s.snapshots.Invalidate(ctx)

	for _, id := range added {
		if err := add(upstreamCtx, id); err != nil {
			return nil, s.upstreamError("reconcile "+what, err)
		}
		resp.Added = append(resp.Added, id)
	}
	for _, id := range removed {
		if err := remove(upstreamCtx, id); err != nil {
			return nil, s.upstreamError("reconcile "+what, err)
		}
		resp.Removed = append(resp.Removed, id)
	}

	s.log.Info().
		Str("list", what).
		Ints64("added", resp.Added).
		Ints64("removed", resp.Removed).
		Msg("Membership reconciled")

	return resp, nil
}

func (s *curriculumServiceImpl) upstreamContext(ctx context.Context) context.Context {
	if actor, ok := auth.ActorFromContext(ctx); ok {
		return academicapi.WithToken(ctx, actor.Token)
	}
	return ctx
}

func (s *curriculumServiceImpl) upstreamError(op string, err error) error {
	if errors.Is(err, academicapi.ErrNotFound) {
		return apperrors.NewResourceNotFoundError(op + ": not found upstream")
	}
	return apperrors.NewUpstreamError(op, err)
}

func checkDisciplines(snap *curriculum.Snapshot, ids []int64) error {
	missing := missingIDs(func(id int64) bool { _, ok := snap.Discipline(id); return ok }, ids...)
	if len(missing) > 0 {
		return &curriculum.UnknownDisciplineError{IDs: missing}
	}
	return nil
}

// missingIDs returns the distinct ids for which known is false, in ascending order
func missingIDs(known func(int64) bool, ids ...int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var missing []int64
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !known(id) {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// DiffIDs returns the ids to add to current and to remove from it so that it
// holds exactly the ids of desired. Both results are ascending and distinct.
func DiffIDs(current, desired []int64) (added, removed []int64) {
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}

	for id := range want {
		if _, ok := have[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}
