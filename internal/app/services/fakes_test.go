package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
	"github.com/biograph/insights/internal/pkg/cache"
)

var errUpstreamDown = errors.New("connection refused")

// fakeUpstream serves the scenario curriculum: 2 and 3 require 1, 4
// requires 2 and 3. Student 100 has completed 1 and is enrolled in 1 and 2.
type fakeUpstream struct {
	mu          sync.Mutex
	disciplines []academicapi.DisciplineDTO
	students    []academicapi.StudentDTO
	teachers    []academicapi.TeacherDTO
	err         error

	listCalls atomic.Int32
	// gate, when set, blocks ListDisciplines until closed.
	gate chan struct{}
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		disciplines: []academicapi.DisciplineDTO{
			{ID: 1, Name: "Biologia Celular", CourseIDs: []int64{1}},
			{ID: 2, Name: "Genética", CourseIDs: []int64{1}, Prerequisites: []int64{1}},
			{ID: 3, Name: "Bioquímica", CourseIDs: []int64{1}, Prerequisites: []int64{1}},
			{ID: 4, Name: "Biologia Molecular", Prerequisites: []int64{2, 3}},
		},
		students: []academicapi.StudentDTO{
			{ID: 100, Username: "ana.souza", IsActive: true, Disciplines: []academicapi.DisciplineDTO{
				{ID: 1, Status: curriculum.WireCompleted},
				{ID: 2, Status: curriculum.WirePending},
			}},
		},
		teachers: []academicapi.TeacherDTO{
			{ID: 200, Username: "prof.lima", Disciplines: []academicapi.DisciplineDTO{{ID: 2}}},
		},
	}
}

func (f *fakeUpstream) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeUpstream) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeUpstream) ListCourses(ctx context.Context) ([]academicapi.CourseDTO, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return []academicapi.CourseDTO{{ID: 1, Name: "Ciências Biológicas"}, {ID: 2, Name: "Biomedicina"}}, nil
}

func (f *fakeUpstream) ListDisciplines(ctx context.Context) ([]academicapi.DisciplineDTO, error) {
	f.listCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.failure(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]academicapi.DisciplineDTO(nil), f.disciplines...), nil
}

func (f *fakeUpstream) ListStudents(ctx context.Context) ([]academicapi.StudentDTO, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]academicapi.StudentDTO(nil), f.students...), nil
}

func (f *fakeUpstream) ListTeachers(ctx context.Context) ([]academicapi.TeacherDTO, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return append([]academicapi.TeacherDTO(nil), f.teachers...), nil
}

type fakeCache struct {
	mu          sync.Mutex
	entities    *curriculum.Entities
	takenAt     time.Time
	sets        int
	invalidated int
}

func (c *fakeCache) Get(ctx context.Context) (curriculum.Entities, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entities == nil {
		return curriculum.Entities{}, time.Time{}, cache.ErrCacheMiss
	}
	return *c.entities, c.takenAt, nil
}

func (c *fakeCache) Set(ctx context.Context, e curriculum.Entities, takenAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = &e
	c.takenAt = takenAt
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = nil
	c.invalidated++
	return nil
}

type fakeMirror struct {
	synced chan *curriculum.Snapshot
}

func (m *fakeMirror) SyncGraph(ctx context.Context, snap *curriculum.Snapshot) error {
	m.synced <- snap
	return nil
}

// fakeWriter records every write issued upstream.
type fakeWriter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (w *fakeWriter) record(ctx context.Context, call string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.calls = append(w.calls, call)
	return nil
}

func (w *fakeWriter) recorded() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWriter) SetStudentDisciplineStatus(ctx context.Context, studentID, disciplineID int64, wireStatus string) (*academicapi.StudentDTO, error) {
	if err := w.record(ctx, fmt.Sprintf("status %d/%d %s", studentID, disciplineID, wireStatus)); err != nil {
		return nil, err
	}
	return &academicapi.StudentDTO{ID: studentID}, nil
}

func (w *fakeWriter) AddPrerequisite(ctx context.Context, disciplineID, prerequisiteID int64) (*academicapi.DisciplineDTO, error) {
	if err := w.record(ctx, fmt.Sprintf("prereq %d<-%d", disciplineID, prerequisiteID)); err != nil {
		return nil, err
	}
	return &academicapi.DisciplineDTO{ID: disciplineID, Name: "updated", Prerequisites: []int64{prerequisiteID}}, nil
}

func (w *fakeWriter) AddDisciplineCourse(ctx context.Context, disciplineID, courseID int64) error {
	return w.record(ctx, fmt.Sprintf("+course %d/%d", disciplineID, courseID))
}

func (w *fakeWriter) RemoveDisciplineCourse(ctx context.Context, disciplineID, courseID int64) error {
	return w.record(ctx, fmt.Sprintf("-course %d/%d", disciplineID, courseID))
}

func (w *fakeWriter) AddStudentDiscipline(ctx context.Context, studentID, disciplineID int64) error {
	return w.record(ctx, fmt.Sprintf("+student %d/%d", studentID, disciplineID))
}

func (w *fakeWriter) RemoveStudentDiscipline(ctx context.Context, studentID, disciplineID int64) error {
	return w.record(ctx, fmt.Sprintf("-student %d/%d", studentID, disciplineID))
}

func (w *fakeWriter) AddTeacherDiscipline(ctx context.Context, teacherID, disciplineID int64) error {
	return w.record(ctx, fmt.Sprintf("+teacher %d/%d", teacherID, disciplineID))
}

func (w *fakeWriter) RemoveTeacherDiscipline(ctx context.Context, teacherID, disciplineID int64) error {
	return w.record(ctx, fmt.Sprintf("-teacher %d/%d", teacherID, disciplineID))
}

func (w *fakeWriter) AssignCurriculumSchedule(ctx context.Context, studentID, scheduleID int64) (*academicapi.StudentDTO, error) {
	if err := w.record(ctx, fmt.Sprintf("schedule %d/%d", studentID, scheduleID)); err != nil {
		return nil, err
	}
	return &academicapi.StudentDTO{ID: studentID, Disciplines: []academicapi.DisciplineDTO{{ID: 1}, {ID: 2}, {ID: 3}}}, nil
}

func (w *fakeWriter) ChangeStudentCourse(ctx context.Context, studentID, courseID int64) (*academicapi.StudentDTO, error) {
	if err := w.record(ctx, fmt.Sprintf("course %d -> %d", studentID, courseID)); err != nil {
		return nil, err
	}
	return &academicapi.StudentDTO{ID: studentID, CourseID: &courseID}, nil
}

type fakeAudits struct {
	mu   sync.Mutex
	rows []*models.StatusAudit
	err  error
}

func (a *fakeAudits) Create(ctx context.Context, audit *models.StatusAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	audit.CreatedAt = time.Now()
	a.rows = append(a.rows, audit)
	return nil
}

func (a *fakeAudits) ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*models.StatusAudit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.StatusAudit
	for i := len(a.rows) - 1; i >= 0; i-- {
		if a.rows[i].StudentID == studentID {
			out = append(out, a.rows[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *fakeAudits) CountByStudent(ctx context.Context, studentID int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, r := range a.rows {
		if r.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func asAdmin(ctx context.Context) context.Context {
	return auth.WithActor(ctx, auth.Actor{UserID: 1, Role: models.RoleAdmin, Token: "admin-token"})
}

func asStudent(ctx context.Context, id int64) context.Context {
	return auth.WithActor(ctx, auth.Actor{UserID: id, Role: models.RoleStudent, Token: "student-token"})
}

func newTestSnapshotService(up UpstreamReader, c SnapshotCache, m GraphMirror) *snapshotServiceImpl {
	return NewSnapshotService(curriculum.NewStore(), up, c, m, time.Minute, zerolog.Nop()).(*snapshotServiceImpl)
}
