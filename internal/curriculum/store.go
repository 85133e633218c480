package curriculum

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"
)

// Kind identifies an entity collection in the store.
type Kind string

const (
	KindCourse     Kind = "course"
	KindDiscipline Kind = "discipline"
	KindStudent    Kind = "student"
	KindTeacher    Kind = "teacher"
)

// Course is a degree programme.
type Course struct {
	ID   int64
	Name string
}

// Discipline is a course unit. PrerequisiteIDs point from this discipline to
// the disciplines it requires.
type Discipline struct {
	ID              int64
	Name            string
	CourseIDs       []int64
	PrerequisiteIDs []int64
}

// Student carries the per-discipline statuses as an overlay.
type Student struct {
	ID       int64
	Username string
	Email    string
	IsActive bool
	RANumber string
	CourseID int64
	Statuses Overlay
	// Enrolled lists the disciplines assigned to the student, ordered by id.
	Enrolled []int64
}

// Teacher is assigned to disciplines and has no status.
type Teacher struct {
	ID             int64
	Username       string
	Email          string
	IsActive       bool
	EmployeeNumber string
	DisciplineIDs  []int64
}

// Entities is the raw input of a snapshot.
type Entities struct {
	Courses     []Course
	Disciplines []Discipline
	Students    []Student
	Teachers    []Teacher
}

// Snapshot is an immutable view of every collection at one point in time.
type Snapshot struct {
	courses     map[int64]Course
	disciplines map[int64]Discipline
	students    map[int64]Student
	teachers    map[int64]Teacher

	graph    *Graph
	graphErr error
	takenAt  time.Time
}

// NewSnapshot indexes entities by id. Ids must be unique within a kind.
func NewSnapshot(e Entities, takenAt time.Time) (*Snapshot, error) {
	s := &Snapshot{
		courses:     make(map[int64]Course, len(e.Courses)),
		disciplines: make(map[int64]Discipline, len(e.Disciplines)),
		students:    make(map[int64]Student, len(e.Students)),
		teachers:    make(map[int64]Teacher, len(e.Teachers)),
		takenAt:     takenAt,
	}
	for _, c := range e.Courses {
		if _, dup := s.courses[c.ID]; dup {
			return nil, &DuplicateIDError{Kind: KindCourse, ID: c.ID}
		}
		s.courses[c.ID] = c
	}
	for _, d := range e.Disciplines {
		if _, dup := s.disciplines[d.ID]; dup {
			return nil, &DuplicateIDError{Kind: KindDiscipline, ID: d.ID}
		}
		s.disciplines[d.ID] = d
	}
	for _, st := range e.Students {
		if _, dup := s.students[st.ID]; dup {
			return nil, &DuplicateIDError{Kind: KindStudent, ID: st.ID}
		}
		s.students[st.ID] = st
	}
	for _, t := range e.Teachers {
		if _, dup := s.teachers[t.ID]; dup {
			return nil, &DuplicateIDError{Kind: KindTeacher, ID: t.ID}
		}
		s.teachers[t.ID] = t
	}
	s.graph, s.graphErr = BuildGraph(e.Disciplines)
	return s, nil
}

// TakenAt is when the underlying data was fetched.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Graph returns the dependency graph built from the snapshot's disciplines,
// or the validation error that prevented building it.
func (s *Snapshot) Graph() (*Graph, error) { return s.graph, s.graphErr }

func (s *Snapshot) Course(id int64) (Course, bool) {
	c, ok := s.courses[id]
	return c, ok
}

func (s *Snapshot) Discipline(id int64) (Discipline, bool) {
	d, ok := s.disciplines[id]
	return d, ok
}

func (s *Snapshot) Student(id int64) (Student, bool) {
	st, ok := s.students[id]
	return st, ok
}

func (s *Snapshot) Teacher(id int64) (Teacher, bool) {
	t, ok := s.teachers[id]
	return t, ok
}

// GetByID looks up any entity kind. The boolean is false when the id is absent.
func (s *Snapshot) GetByID(kind Kind, id int64) (any, bool) {
	switch kind {
	case KindCourse:
		return s.Course(id)
	case KindDiscipline:
		return s.Discipline(id)
	case KindStudent:
		return s.Student(id)
	case KindTeacher:
		return s.Teacher(id)
	}
	return nil, false
}

// Courses returns every course ordered by id.
func (s *Snapshot) Courses() []Course {
	out := make([]Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Disciplines returns every discipline ordered by id.
func (s *Snapshot) Disciplines() []Discipline {
	out := make([]Discipline, 0, len(s.disciplines))
	for _, d := range s.disciplines {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Students returns every student ordered by id.
func (s *Snapshot) Students() []Student {
	out := make([]Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Teachers returns every teacher ordered by id.
func (s *Snapshot) Teachers() []Teacher {
	out := make([]Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entities returns the snapshot contents in id order.
func (s *Snapshot) Entities() Entities {
	return Entities{
		Courses:     s.Courses(),
		Disciplines: s.Disciplines(),
		Students:    s.Students(),
		Teachers:    s.Teachers(),
	}
}

// StudentView returns the validated graph together with one student.
func (s *Snapshot) StudentView(studentID int64) (*Graph, Student, error) {
	if s.graphErr != nil {
		return nil, Student{}, s.graphErr
	}
	st, ok := s.students[studentID]
	if !ok {
		return nil, Student{}, &UnknownStudentError{ID: studentID}
	}
	return s.graph, st, nil
}

// withStudent returns a copy of the snapshot with one student replaced.
// Collections other than students are shared, they are never written to.
func (s *Snapshot) withStudent(st Student) *Snapshot {
	students := make(map[int64]Student, len(s.students))
	for id, v := range s.students {
		students[id] = v
	}
	students[st.ID] = st
	cp := *s
	cp.students = students
	return &cp
}

// Store holds the latest snapshot. Readers never block; ReplaceAll swaps the
// whole snapshot at once.
type Store struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{now: time.Now}
	empty, _ := NewSnapshot(Entities{}, time.Time{})
	s.current.Store(empty)
	return s
}

// ReplaceAll builds a snapshot from entities and makes it current.
func (s *Store) ReplaceAll(e Entities) error {
	return s.ReplaceAllAt(e, s.now())
}

// ReplaceAllAt is ReplaceAll with an explicit fetch time, used when restoring
// a cached snapshot.
func (s *Store) ReplaceAllAt(e Entities, takenAt time.Time) error {
	snap, err := NewSnapshot(e, takenAt)
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	s.current.Store(snap)
	return nil
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// GetByID looks up an entity in the current snapshot.
func (s *Store) GetByID(kind Kind, id int64) (any, bool) {
	return s.Snapshot().GetByID(kind, id)
}

// Empty reports whether nothing has been loaded yet.
func (s *Store) Empty() bool {
	return s.Snapshot().takenAt.IsZero()
}

// ApplyStatus records an accepted status change in the current snapshot
// without waiting for the next refresh. It retries if a concurrent
// ReplaceAll lands in between.
func (s *Store) ApplyStatus(studentID, disciplineID int64, status Status) {
	for {
		old := s.current.Load()
		st, ok := old.students[studentID]
		if !ok {
			return
		}
		st.Statuses = st.Statuses.With(disciplineID, status)
		if s.current.CompareAndSwap(old, old.withStudent(st)) {
			return
		}
	}
}
