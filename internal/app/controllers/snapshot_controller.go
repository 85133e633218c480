package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/middleware"
)

// SnapshotController exposes snapshot maintenance
type SnapshotController struct {
	snapshotService services.SnapshotService
}

// NewSnapshotController creates a new SnapshotController
func NewSnapshotController(snapshotService services.SnapshotService) *SnapshotController {
	return &SnapshotController{
		snapshotService: snapshotService,
	}
}

// Refresh refetches the curriculum snapshot from the academic records API
// @Summary Refresh snapshot
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SnapshotInfoResponse} "Snapshot refreshed"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 502 {object} dto.ErrorResponse "Academic records API failed"
// @Router /admin/snapshot/refresh [post]
func (c *SnapshotController) Refresh(ctx *gin.Context) {
	info, err := c.snapshotService.Refresh(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      info,
		Timestamp: time.Now(),
	})
}
