package dto

import (
	"time"

	"github.com/biograph/insights/internal/curriculum"
)

// SnapshotInfoResponse describes the curriculum snapshot currently served
type SnapshotInfoResponse struct {
	TakenAt     time.Time `json:"takenAt" example:"2025-04-23T12:01:05.123Z"`
	Courses     int       `json:"courses" example:"3"`
	Disciplines int       `json:"disciplines" example:"42"`
	Students    int       `json:"students" example:"310"`
	Teachers    int       `json:"teachers" example:"18"`
}

// NewSnapshotInfoResponse summarizes a snapshot
func NewSnapshotInfoResponse(s *curriculum.Snapshot) SnapshotInfoResponse {
	e := s.Entities()
	return SnapshotInfoResponse{
		TakenAt:     s.TakenAt(),
		Courses:     len(e.Courses),
		Disciplines: len(e.Disciplines),
		Students:    len(e.Students),
		Teachers:    len(e.Teachers),
	}
}
