package academicapi

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/curriculum"
)

// ToEntities converts API payloads into store input. Students' embedded
// disciplines become their enrolment list and status overlay; unknown wire
// statuses are logged and treated as pending.
func ToEntities(courses []CourseDTO, disciplines []DisciplineDTO, students []StudentDTO, teachers []TeacherDTO, log zerolog.Logger) curriculum.Entities {
	e := curriculum.Entities{
		Courses:     make([]curriculum.Course, 0, len(courses)),
		Disciplines: make([]curriculum.Discipline, 0, len(disciplines)),
		Students:    make([]curriculum.Student, 0, len(students)),
		Teachers:    make([]curriculum.Teacher, 0, len(teachers)),
	}
	for _, c := range courses {
		e.Courses = append(e.Courses, curriculum.Course{ID: c.ID, Name: c.Name})
	}
	for _, d := range disciplines {
		e.Disciplines = append(e.Disciplines, ToDiscipline(d))
	}
	for _, s := range students {
		e.Students = append(e.Students, ToStudent(s, log))
	}
	for _, t := range teachers {
		e.Teachers = append(e.Teachers, ToTeacher(t))
	}
	return e
}

// ToDiscipline converts a discipline payload.
func ToDiscipline(d DisciplineDTO) curriculum.Discipline {
	return curriculum.Discipline{
		ID:              d.ID,
		Name:            d.Name,
		CourseIDs:       append([]int64(nil), d.CourseIDs...),
		PrerequisiteIDs: append([]int64(nil), d.Prerequisites...),
	}
}

// ToStudent converts a student payload.
func ToStudent(s StudentDTO, log zerolog.Logger) curriculum.Student {
	statuses := make(map[int64]curriculum.Status, len(s.Disciplines))
	enrolled := make([]int64, 0, len(s.Disciplines))
	for _, d := range s.Disciplines {
		enrolled = append(enrolled, d.ID)
		if d.Status == "" {
			continue
		}
		st, err := curriculum.ParseStatus(d.Status)
		if err != nil {
			log.Warn().Int64("studentId", s.ID).Int64("disciplineId", d.ID).Str("status", d.Status).
				Msg("Unknown discipline status, treating as pending")
			continue
		}
		statuses[d.ID] = st
	}
	sort.Slice(enrolled, func(i, j int) bool { return enrolled[i] < enrolled[j] })

	var courseID int64
	switch {
	case s.CourseID != nil:
		courseID = *s.CourseID
	case s.Course != nil:
		courseID = s.Course.ID
	}

	return curriculum.Student{
		ID:       s.ID,
		Username: s.Username,
		Email:    s.Email,
		IsActive: s.IsActive,
		RANumber: s.RANumber,
		CourseID: courseID,
		Statuses: curriculum.NewOverlay(statuses),
		Enrolled: enrolled,
	}
}

// ToTeacher converts a teacher payload.
func ToTeacher(t TeacherDTO) curriculum.Teacher {
	ids := make([]int64, 0, len(t.Disciplines))
	for _, d := range t.Disciplines {
		ids = append(ids, d.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return curriculum.Teacher{
		ID:             t.ID,
		Username:       t.Username,
		Email:          t.Email,
		IsActive:       t.IsActive,
		EmployeeNumber: t.EmployeeNumber,
		DisciplineIDs:  ids,
	}
}
