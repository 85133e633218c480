package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/biograph/insights/internal/app/controllers"
	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/middleware"
)

// Controllers groups the HTTP handlers mounted by SetupRouter
type Controllers struct {
	Insights   *controllers.InsightsController
	Status     *controllers.StatusController
	Curriculum *controllers.CurriculumController
	Snapshot   *controllers.SnapshotController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	// Health check (public)
	router.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(200, dto.APIResponse{
			Data:      gin.H{"status": "ok"},
			Timestamp: time.Now(),
		})
	})

	// API version group
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.JWTAuth())

	// --- Routes for every authenticated role ---
	// Per-student access is checked by the services
	v1.GET("/insights/recommendations/:studentId", c.Insights.GetRecommendations)

	students := v1.Group("/students/:studentId")
	{
		students.GET("", c.Curriculum.GetStudent)
		students.GET("/status-history", c.Status.GetHistory)
		students.GET("/disciplines/:disciplineId/status", c.Status.GetStatus)
		students.PATCH("/disciplines/:disciplineId/status", c.Status.UpdateStatus)
	}

	v1.GET("/courses", c.Curriculum.ListCourses)
	v1.GET("/disciplines", c.Curriculum.ListDisciplines)
	v1.GET("/teachers/:teacherId", c.Curriculum.GetTeacher)

	// --- Admin routes ---
	admin := v1.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
	{
		insights := admin.Group("/insights")
		{
			insights.GET("/graph", c.Insights.GetGraph)
			insights.POST("/graduation-path/:studentId", c.Insights.GetGraduationPath)
			insights.GET("/progress/:studentId", c.Insights.GetProgress)
		}

		admin.POST("/disciplines/:disciplineId/prerequisites/:prerequisiteId", c.Curriculum.AddPrerequisite)
		admin.PUT("/disciplines/:disciplineId/courses", c.Curriculum.ReconcileDisciplineCourses)
		admin.PUT("/students/:studentId/disciplines", c.Curriculum.ReconcileStudentDisciplines)
		admin.PATCH("/students/:studentId/course", c.Curriculum.ChangeStudentCourse)
		admin.PATCH("/students/:studentId/curriculum-schedules/:scheduleId", c.Curriculum.AssignCurriculumSchedule)
		admin.PUT("/teachers/:teacherId/disciplines", c.Curriculum.ReconcileTeacherDisciplines)

		admin.POST("/snapshot/refresh", c.Snapshot.Refresh)
	}
}
