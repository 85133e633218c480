package cache

import (
	"time"

	"github.com/biograph/insights/internal/curriculum"
)

// snapshotRecord is the JSON form of a snapshot. Statuses use wire values.
type snapshotRecord struct {
	TakenAt     time.Time           `json:"taken_at"`
	Courses     []curriculum.Course `json:"courses"`
	Disciplines []disciplineRecord  `json:"disciplines"`
	Students    []studentRecord     `json:"students"`
	Teachers    []teacherRecord     `json:"teachers"`
}

type disciplineRecord struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	CourseIDs       []int64 `json:"course_ids,omitempty"`
	PrerequisiteIDs []int64 `json:"prerequisites,omitempty"`
}

type studentRecord struct {
	ID       int64            `json:"id"`
	Username string           `json:"username"`
	Email    string           `json:"email,omitempty"`
	IsActive bool             `json:"is_active"`
	RANumber string           `json:"ra_number,omitempty"`
	CourseID int64            `json:"course_id,omitempty"`
	Enrolled []int64          `json:"enrolled,omitempty"`
	Statuses map[int64]string `json:"statuses,omitempty"`
}

type teacherRecord struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email,omitempty"`
	IsActive       bool    `json:"is_active"`
	EmployeeNumber string  `json:"employee_number,omitempty"`
	DisciplineIDs  []int64 `json:"disciplines,omitempty"`
}

func newSnapshotRecord(e curriculum.Entities, takenAt time.Time) snapshotRecord {
	rec := snapshotRecord{
		TakenAt:     takenAt.UTC(),
		Courses:     e.Courses,
		Disciplines: make([]disciplineRecord, 0, len(e.Disciplines)),
		Students:    make([]studentRecord, 0, len(e.Students)),
		Teachers:    make([]teacherRecord, 0, len(e.Teachers)),
	}
	for _, d := range e.Disciplines {
		rec.Disciplines = append(rec.Disciplines, disciplineRecord{
			ID:              d.ID,
			Name:            d.Name,
			CourseIDs:       d.CourseIDs,
			PrerequisiteIDs: d.PrerequisiteIDs,
		})
	}
	for _, s := range e.Students {
		statuses := make(map[int64]string)
		for id, st := range s.Statuses.Map() {
			statuses[id] = st.Wire()
		}
		rec.Students = append(rec.Students, studentRecord{
			ID:       s.ID,
			Username: s.Username,
			Email:    s.Email,
			IsActive: s.IsActive,
			RANumber: s.RANumber,
			CourseID: s.CourseID,
			Enrolled: s.Enrolled,
			Statuses: statuses,
		})
	}
	for _, t := range e.Teachers {
		rec.Teachers = append(rec.Teachers, teacherRecord{
			ID:             t.ID,
			Username:       t.Username,
			Email:          t.Email,
			IsActive:       t.IsActive,
			EmployeeNumber: t.EmployeeNumber,
			DisciplineIDs:  t.DisciplineIDs,
		})
	}
	return rec
}

func (r snapshotRecord) entities() (curriculum.Entities, error) {
	e := curriculum.Entities{
		Courses:     r.Courses,
		Disciplines: make([]curriculum.Discipline, 0, len(r.Disciplines)),
		Students:    make([]curriculum.Student, 0, len(r.Students)),
		Teachers:    make([]curriculum.Teacher, 0, len(r.Teachers)),
	}
	for _, d := range r.Disciplines {
		e.Disciplines = append(e.Disciplines, curriculum.Discipline{
			ID:              d.ID,
			Name:            d.Name,
			CourseIDs:       d.CourseIDs,
			PrerequisiteIDs: d.PrerequisiteIDs,
		})
	}
	for _, s := range r.Students {
		statuses := make(map[int64]curriculum.Status, len(s.Statuses))
		for id, raw := range s.Statuses {
			st, err := curriculum.ParseStatus(raw)
			if err != nil {
				return curriculum.Entities{}, err
			}
			statuses[id] = st
		}
		e.Students = append(e.Students, curriculum.Student{
			ID:       s.ID,
			Username: s.Username,
			Email:    s.Email,
			IsActive: s.IsActive,
			RANumber: s.RANumber,
			CourseID: s.CourseID,
			Statuses: curriculum.NewOverlay(statuses),
			Enrolled: s.Enrolled,
		})
	}
	for _, t := range r.Teachers {
		e.Teachers = append(e.Teachers, curriculum.Teacher{
			ID:             t.ID,
			Username:       t.Username,
			Email:          t.Email,
			IsActive:       t.IsActive,
			EmployeeNumber: t.EmployeeNumber,
			DisciplineIDs:  t.DisciplineIDs,
		})
	}
	return e, nil
}
