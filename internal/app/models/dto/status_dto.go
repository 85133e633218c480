package dto

import (
	"time"

	"github.com/biograph/insights/internal/app/models"
)

// UpdateStatusRequest changes one discipline status of a student.
// Override permits moving a status backwards and is reserved to admins.
type UpdateStatusRequest struct {
	Status   string `json:"status" binding:"required,wirestatus" example:"cursando"`
	Override bool   `json:"override" example:"false"`
}

// DisciplineStatusResponse is the status of one discipline for one student
type DisciplineStatusResponse struct {
	StudentID    int64  `json:"studentId" example:"100"`
	DisciplineID int64  `json:"disciplineId" example:"2"`
	Status       string `json:"status" example:"cursando" enums:"pendente,cursando,concluido"`
}

// StatusAuditResponse is one entry of a student's status history
type StatusAuditResponse struct {
	ID             string    `json:"id" example:"2f1c0d8e-7a55-4f0b-9b3e-6c3e0f2b8a11"`
	DisciplineID   int64     `json:"disciplineId" example:"2"`
	PreviousStatus string    `json:"previousStatus" example:"pendente"`
	NewStatus      string    `json:"newStatus" example:"cursando"`
	Override       bool      `json:"override" example:"false"`
	ActorID        int64     `json:"actorId" example:"1"`
	ActorRole      string    `json:"actorRole" example:"admin"`
	CreatedAt      time.Time `json:"createdAt" example:"2025-04-23T12:01:05.123Z"`
}

// NewStatusAuditResponse converts an audit row to its API form
func NewStatusAuditResponse(a *models.StatusAudit) StatusAuditResponse {
	return StatusAuditResponse{
		ID:             a.ID.String(),
		DisciplineID:   a.DisciplineID,
		PreviousStatus: a.PreviousStatus,
		NewStatus:      a.NewStatus,
		Override:       a.Override,
		ActorID:        a.ActorID,
		ActorRole:      string(a.ActorRole),
		CreatedAt:      a.CreatedAt,
	}
}
