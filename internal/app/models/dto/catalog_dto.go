package dto

import "github.com/biograph/insights/internal/curriculum"

// IDListRequest replaces a membership list with the given ids
type IDListRequest struct {
	IDs []int64 `json:"ids" binding:"required,dive,gt=0"`
}

// ChangeCourseRequest moves a student to another course
type ChangeCourseRequest struct {
	CourseID int64 `json:"course_id" binding:"required,gt=0" example:"2"`
}

// ReconcileResponse reports what a membership reconciliation changed
type ReconcileResponse struct {
	Added   []int64 `json:"added"`
	Removed []int64 `json:"removed"`
}

// CourseResponse represents a course
type CourseResponse struct {
	ID   int64  `json:"id" example:"1"`
	Name string `json:"name" example:"Ciências Biológicas"`
}

// DisciplineResponse represents a discipline with its prerequisite ids
type DisciplineResponse struct {
	ID            int64   `json:"id" example:"2"`
	Name          string  `json:"name" example:"Genética"`
	CourseIDs     []int64 `json:"course_ids"`
	Prerequisites []int64 `json:"prerequisites"`
}

// StudentResponse represents a student with wire statuses per discipline
type StudentResponse struct {
	ID          int64            `json:"id" example:"100"`
	Username    string           `json:"username" example:"ana.souza"`
	Email       string           `json:"email" example:"ana@biograph.edu"`
	IsActive    bool             `json:"is_active" example:"true"`
	RANumber    string           `json:"ra_number" example:"2023001"`
	CourseID    int64            `json:"course_id" example:"1"`
	Disciplines []int64          `json:"disciplines"`
	Statuses    map[int64]string `json:"statuses"`
}

// TeacherResponse represents a teacher
type TeacherResponse struct {
	ID             int64   `json:"id" example:"200"`
	Username       string  `json:"username" example:"prof.lima"`
	Email          string  `json:"email" example:"lima@biograph.edu"`
	IsActive       bool    `json:"is_active" example:"true"`
	EmployeeNumber string  `json:"employee_number" example:"T-042"`
	Disciplines    []int64 `json:"disciplines"`
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// NewCourseResponse converts a course
func NewCourseResponse(c curriculum.Course) CourseResponse {
	return CourseResponse{ID: c.ID, Name: c.Name}
}

// NewDisciplineResponse converts a discipline
func NewDisciplineResponse(d curriculum.Discipline) DisciplineResponse {
	return DisciplineResponse{
		ID:            d.ID,
		Name:          d.Name,
		CourseIDs:     nonNilIDs(d.CourseIDs),
		Prerequisites: nonNilIDs(d.PrerequisiteIDs),
	}
}

// NewStudentResponse converts a student, listing statuses of enrolled and
// non-pending disciplines
func NewStudentResponse(s curriculum.Student) StudentResponse {
	statuses := make(map[int64]string)
	for _, id := range s.Enrolled {
		statuses[id] = s.Statuses.StatusOf(id).Wire()
	}
	for id, st := range s.Statuses.Map() {
		statuses[id] = st.Wire()
	}
	return StudentResponse{
		ID:          s.ID,
		Username:    s.Username,
		Email:       s.Email,
		IsActive:    s.IsActive,
		RANumber:    s.RANumber,
		CourseID:    s.CourseID,
		Disciplines: nonNilIDs(s.Enrolled),
		Statuses:    statuses,
	}
}

// NewTeacherResponse converts a teacher
func NewTeacherResponse(t curriculum.Teacher) TeacherResponse {
	return TeacherResponse{
		ID:             t.ID,
		Username:       t.Username,
		Email:          t.Email,
		IsActive:       t.IsActive,
		EmployeeNumber: t.EmployeeNumber,
		Disciplines:    nonNilIDs(t.DisciplineIDs),
	}
}
