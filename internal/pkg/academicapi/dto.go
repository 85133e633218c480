package academicapi

// CourseDTO is a course as returned by the academic records API.
type CourseDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DisciplineDTO is a discipline. Status is only present when the discipline
// is embedded in a student and carries that student's wire status.
type DisciplineDTO struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	CourseIDs     []int64 `json:"course_ids"`
	Prerequisites []int64 `json:"prerequisites"`
	Status        string  `json:"status,omitempty"`
}

// StudentDTO is a student with their enrolled disciplines.
type StudentDTO struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email,omitempty"`
	IsActive    bool            `json:"is_active"`
	RANumber    string          `json:"ra_number,omitempty"`
	Disciplines []DisciplineDTO `json:"disciplines"`
	CourseID    *int64          `json:"course_id,omitempty"`
	Course      *CourseDTO      `json:"course,omitempty"`
}

// TeacherDTO is a teacher with their assigned disciplines.
type TeacherDTO struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email,omitempty"`
	IsActive       bool            `json:"is_active"`
	EmployeeNumber string          `json:"employee_number,omitempty"`
	Disciplines    []DisciplineDTO `json:"disciplines"`
}

// StatusUpdateDTO is the body of a student discipline status change.
type StatusUpdateDTO struct {
	Status string `json:"status"`
}

// CourseChangeDTO is the body of a student course change.
type CourseChangeDTO struct {
	CourseID int64 `json:"course_id"`
}

// errorBodyDTO covers the error payloads the API is known to return.
type errorBodyDTO struct {
	Detail  interface{} `json:"detail"`
	Message string      `json:"message"`
}
