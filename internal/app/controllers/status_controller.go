package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/middleware"
	"github.com/biograph/insights/internal/pkg/helpers"
)

// StatusController handles discipline status operations
type StatusController struct {
	statusService services.StatusService
}

// NewStatusController creates a new StatusController
func NewStatusController(statusService services.StatusService) *StatusController {
	return &StatusController{
		statusService: statusService,
	}
}

// GetStatus returns one discipline status of a student
// @Summary Get discipline status
// @Tags status
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param disciplineId path int true "Discipline ID"
// @Success 200 {object} dto.APIResponse{data=dto.DisciplineStatusResponse} "Current status"
// @Failure 400 {object} dto.ErrorResponse "Invalid ID"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student or discipline not found"
// @Router /students/{studentId}/disciplines/{disciplineId}/status [get]
func (c *StatusController) GetStatus(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}
	disciplineID, ok := parseIDParam(ctx, "disciplineId", "discipline")
	if !ok {
		return
	}

	status, err := c.statusService.GetStatus(ctx.Request.Context(), studentID, disciplineID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      status,
		Timestamp: time.Now(),
	})
}

// UpdateStatus changes one discipline status of a student
// @Summary Update discipline status
// @Description Moves a discipline to pendente, cursando or concluido. Prerequisites must be completed before a discipline can start; moving backwards requires override, which is reserved to admins.
// @Tags status
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param disciplineId path int true "Discipline ID"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.DisciplineStatusResponse} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student or discipline not found"
// @Failure 409 {object} dto.ErrorResponse "Prerequisites not completed or backward move without override"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /students/{studentId}/disciplines/{disciplineId}/status [patch]
func (c *StatusController) UpdateStatus(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}
	disciplineID, ok := parseIDParam(ctx, "disciplineId", "discipline")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	status, err := c.statusService.UpdateStatus(ctx.Request.Context(), studentID, disciplineID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      status,
		Timestamp: time.Now(),
	})
}

// GetHistory lists a student's status changes
// @Summary Status history
// @Description Status changes made through this service, newest first
// @Tags status
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.StatusAuditResponse}} "History page"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 503 {object} dto.ErrorResponse "History storage not configured"
// @Router /students/{studentId}/status-history [get]
func (c *StatusController) GetHistory(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	history, err := c.statusService.GetHistory(ctx.Request.Context(), studentID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      history,
		Timestamp: time.Now(),
	})
}
