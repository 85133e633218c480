package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/middleware"
)

// CurriculumController handles catalog reads and curriculum changes
type CurriculumController struct {
	curriculumService services.CurriculumService
}

// NewCurriculumController creates a new CurriculumController
func NewCurriculumController(curriculumService services.CurriculumService) *CurriculumController {
	return &CurriculumController{
		curriculumService: curriculumService,
	}
}

// ListCourses lists every course
// @Summary List courses
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.CourseResponse} "Courses"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 503 {object} dto.ErrorResponse "Curriculum data unavailable"
// @Router /courses [get]
func (c *CurriculumController) ListCourses(ctx *gin.Context) {
	courses, err := c.curriculumService.ListCourses(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      courses,
		Timestamp: time.Now(),
	})
}

// ListDisciplines lists every discipline with its prerequisites
// @Summary List disciplines
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.DisciplineResponse} "Disciplines"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 503 {object} dto.ErrorResponse "Curriculum data unavailable"
// @Router /disciplines [get]
func (c *CurriculumController) ListDisciplines(ctx *gin.Context) {
	disciplines, err := c.curriculumService.ListDisciplines(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      disciplines,
		Timestamp: time.Now(),
	})
}

// GetStudent returns a student with their discipline statuses
// @Summary Get student
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse} "Student"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{studentId} [get]
func (c *CurriculumController) GetStudent(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}

	student, err := c.curriculumService.GetStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}

// GetTeacher returns a teacher with their disciplines
// @Summary Get teacher
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param teacherId path int true "Teacher ID"
// @Success 200 {object} dto.APIResponse{data=dto.TeacherResponse} "Teacher"
// @Failure 400 {object} dto.ErrorResponse "Invalid teacher ID"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Router /teachers/{teacherId} [get]
func (c *CurriculumController) GetTeacher(ctx *gin.Context) {
	teacherID, ok := parseIDParam(ctx, "teacherId", "teacher")
	if !ok {
		return
	}

	teacher, err := c.curriculumService.GetTeacher(ctx.Request.Context(), teacherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      teacher,
		Timestamp: time.Now(),
	})
}

// AddPrerequisite makes a discipline require another one
// @Summary Add prerequisite
// @Description Rejected with 409 when the new edge would close a cycle
// @Tags curriculum
// @Produce json
// @Security BearerAuth
// @Param disciplineId path int true "Discipline ID"
// @Param prerequisiteId path int true "Prerequisite discipline ID"
// @Success 200 {object} dto.APIResponse{data=dto.DisciplineResponse} "Updated discipline"
// @Failure 400 {object} dto.ErrorResponse "Invalid ID"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Discipline not found"
// @Failure 409 {object} dto.ErrorResponse "Prerequisite would create a cycle"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/disciplines/{disciplineId}/prerequisites/{prerequisiteId} [post]
func (c *CurriculumController) AddPrerequisite(ctx *gin.Context) {
	disciplineID, ok := parseIDParam(ctx, "disciplineId", "discipline")
	if !ok {
		return
	}
	prerequisiteID, ok := parseIDParam(ctx, "prerequisiteId", "prerequisite")
	if !ok {
		return
	}

	discipline, err := c.curriculumService.AddPrerequisite(ctx.Request.Context(), disciplineID, prerequisiteID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      discipline,
		Timestamp: time.Now(),
	})
}

// ReconcileDisciplineCourses replaces the course list of a discipline
// @Summary Set discipline courses
// @Tags curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param disciplineId path int true "Discipline ID"
// @Param request body dto.IDListRequest true "Course ids"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse} "Changes applied"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Discipline or course not found"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/disciplines/{disciplineId}/courses [put]
func (c *CurriculumController) ReconcileDisciplineCourses(ctx *gin.Context) {
	disciplineID, ok := parseIDParam(ctx, "disciplineId", "discipline")
	if !ok {
		return
	}

	var req dto.IDListRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.curriculumService.ReconcileDisciplineCourses(ctx.Request.Context(), disciplineID, req.IDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      result,
		Timestamp: time.Now(),
	})
}

// ReconcileStudentDisciplines replaces the discipline list of a student
// @Summary Set student disciplines
// @Tags curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param request body dto.IDListRequest true "Discipline ids"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse} "Changes applied"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Student or discipline not found"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/students/{studentId}/disciplines [put]
func (c *CurriculumController) ReconcileStudentDisciplines(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}

	var req dto.IDListRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.curriculumService.ReconcileStudentDisciplines(ctx.Request.Context(), studentID, req.IDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      result,
		Timestamp: time.Now(),
	})
}

// ReconcileTeacherDisciplines replaces the discipline list of a teacher
// @Summary Set teacher disciplines
// @Tags curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param teacherId path int true "Teacher ID"
// @Param request body dto.IDListRequest true "Discipline ids"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse} "Changes applied"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Teacher or discipline not found"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/teachers/{teacherId}/disciplines [put]
func (c *CurriculumController) ReconcileTeacherDisciplines(ctx *gin.Context) {
	teacherID, ok := parseIDParam(ctx, "teacherId", "teacher")
	if !ok {
		return
	}

	var req dto.IDListRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.curriculumService.ReconcileTeacherDisciplines(ctx.Request.Context(), teacherID, req.IDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      result,
		Timestamp: time.Now(),
	})
}

// AssignCurriculumSchedule enrols a student in a curriculum schedule
// @Summary Assign curriculum schedule
// @Tags curriculum
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param scheduleId path int true "Curriculum schedule ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse} "Updated student"
// @Failure 400 {object} dto.ErrorResponse "Invalid ID"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Student or schedule not found"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/students/{studentId}/curriculum-schedules/{scheduleId} [patch]
func (c *CurriculumController) AssignCurriculumSchedule(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(ctx, "scheduleId", "curriculum schedule")
	if !ok {
		return
	}

	student, err := c.curriculumService.AssignCurriculumSchedule(ctx.Request.Context(), studentID, scheduleID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}

// ChangeStudentCourse moves a student to another course
// @Summary Change student course
// @Tags curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param request body dto.ChangeCourseRequest true "Target course"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse} "Updated student"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Student or course not found"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/students/{studentId}/course [patch]
func (c *CurriculumController) ChangeStudentCourse(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}

	var req dto.ChangeCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.curriculumService.ChangeStudentCourse(ctx.Request.Context(), studentID, req.CourseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}
