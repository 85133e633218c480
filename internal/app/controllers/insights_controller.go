package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/middleware"
)

// InsightsController serves the curriculum insight views. Responses are the
// bare shapes consumed by the dashboard charts, without the API envelope.
type InsightsController struct {
	insightsService services.InsightsService
}

// NewInsightsController creates a new InsightsController
func NewInsightsController(insightsService services.InsightsService) *InsightsController {
	return &InsightsController{
		insightsService: insightsService,
	}
}

// GetGraph returns the prerequisite graph
// @Summary Prerequisite graph
// @Description Returns every discipline as a node and every prerequisite as a link from the discipline (source) to its prerequisite (target)
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.GraphResponse "Prerequisite graph"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 409 {object} dto.ErrorResponse "Prerequisites form a cycle"
// @Failure 422 {object} dto.ErrorResponse "A prerequisite references an unknown discipline"
// @Failure 503 {object} dto.ErrorResponse "Curriculum data unavailable"
// @Router /admin/insights/graph [get]
func (c *InsightsController) GetGraph(ctx *gin.Context) {
	graph, err := c.insightsService.GetGraph(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, graph)
}

// GetRecommendations lists the disciplines a student can start now
// @Summary Recommended disciplines
// @Description Pending disciplines whose prerequisites are all completed, in ascending id order
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Success 200 {object} dto.RecommendationsResponse "Recommendations"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Students can only read their own recommendations"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /insights/recommendations/{studentId} [get]
func (c *InsightsController) GetRecommendations(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}

	recommendations, err := c.insightsService.GetRecommendations(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, recommendations)
}

// GetGraduationPath orders the disciplines a student still needs
// @Summary Graduation path
// @Description Orders the required disciplines and their missing prerequisites so that every prerequisite comes first
// @Tags insights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param request body dto.GraduationPathRequest true "Required discipline ids"
// @Success 200 {object} dto.GraduationPathResponse "Ordered path"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Student or discipline not found"
// @Router /admin/insights/graduation-path/{studentId} [post]
func (c *InsightsController) GetGraduationPath(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}

	var req dto.GraduationPathRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	path, err := c.insightsService.GetGraduationPath(ctx.Request.Context(), studentID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, path)
}

// GetProgress returns a student's curriculum map
// @Summary Student progress
// @Description Layout positions, wire statuses and labels of every discipline, keyed by discipline id
// @Tags insights
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Success 200 {object} dto.ProgressResponse "Progress map"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /admin/insights/progress/{studentId} [get]
func (c *InsightsController) GetProgress(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "studentId", "student")
	if !ok {
		return
	}

	progress, err := c.insightsService.GetProgress(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, progress)
}
