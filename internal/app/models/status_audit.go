package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusAudit records one accepted change of a student's discipline status.
type StatusAudit struct {
	ID             uuid.UUID `json:"id"`
	StudentID      int64     `json:"studentId"`
	DisciplineID   int64     `json:"disciplineId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Override       bool      `json:"override"`
	ActorID        int64     `json:"actorId"`
	ActorRole      RoleType  `json:"actorRole"`
	CreatedAt      time.Time `json:"createdAt"`
}
