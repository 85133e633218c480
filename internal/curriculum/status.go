package curriculum

import (
	"fmt"
	"strings"
)

// Status is the progress of one student in one discipline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Wire values used by the academic records API.
const (
	WirePending    = "pendente"
	WireInProgress = "cursando"
	WireCompleted  = "concluido"
)

// ParseStatus accepts the wire values and the internal names, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case WirePending, string(StatusPending):
		return StatusPending, nil
	case WireInProgress, string(StatusInProgress):
		return StatusInProgress, nil
	case WireCompleted, string(StatusCompleted):
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Wire returns the value the academic records API expects.
func (s Status) Wire() string {
	switch s {
	case StatusInProgress:
		return WireInProgress
	case StatusCompleted:
		return WireCompleted
	default:
		return WirePending
	}
}

func (s Status) rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

// Overlay maps discipline ids to a student's status. Absent ids are pending.
// An Overlay is never mutated after construction; With returns a copy.
type Overlay struct {
	statuses map[int64]Status
}

// NewOverlay copies statuses into a new overlay, dropping pending entries.
func NewOverlay(statuses map[int64]Status) Overlay {
	m := make(map[int64]Status, len(statuses))
	for id, s := range statuses {
		if s != StatusPending && s != "" {
			m[id] = s
		}
	}
	return Overlay{statuses: m}
}

// StatusOf returns the status of a discipline, pending if absent.
func (o Overlay) StatusOf(disciplineID int64) Status {
	if s, ok := o.statuses[disciplineID]; ok {
		return s
	}
	return StatusPending
}

// Completed reports whether the discipline is completed.
func (o Overlay) Completed(disciplineID int64) bool {
	return o.StatusOf(disciplineID) == StatusCompleted
}

// With returns a new overlay with one status changed.
func (o Overlay) With(disciplineID int64, status Status) Overlay {
	m := make(map[int64]Status, len(o.statuses)+1)
	for id, s := range o.statuses {
		m[id] = s
	}
	if status == StatusPending {
		delete(m, disciplineID)
	} else {
		m[disciplineID] = status
	}
	return Overlay{statuses: m}
}

// Map returns a copy of the non-pending statuses.
func (o Overlay) Map() map[int64]Status {
	m := make(map[int64]Status, len(o.statuses))
	for id, s := range o.statuses {
		m[id] = s
	}
	return m
}

// ValidateTransition checks whether a discipline may move to the target status
// for a student whose current statuses are given by overlay.
//
// Forward moves into in_progress or completed require every prerequisite to be
// completed. Backward moves are rejected unless override is set; the
// prerequisite rule still holds for a non-pending target under override.
func ValidateTransition(g *Graph, overlay Overlay, disciplineID int64, to Status, override bool) error {
	if !g.Has(disciplineID) {
		return &UnknownDisciplineError{IDs: []int64{disciplineID}}
	}
	if to.rank() == 0 && to != StatusPending {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(to))
	}

	from := overlay.StatusOf(disciplineID)
	if from == to {
		return nil
	}
	if to.rank() < from.rank() && !override {
		return &IllegalTransitionError{DisciplineID: disciplineID, From: from, To: to}
	}
	if to == StatusPending {
		return nil
	}

	var unmet []int64
	for _, p := range g.Prerequisites(disciplineID) {
		if !overlay.Completed(p) {
			unmet = append(unmet, p)
		}
	}
	if len(unmet) > 0 {
		return &PrerequisiteNotSatisfiedError{DisciplineID: disciplineID, Target: to, Unmet: unmet}
	}
	return nil
}

// SetStatus validates the transition and returns the resulting overlay.
// The input overlay is left untouched.
func SetStatus(g *Graph, overlay Overlay, disciplineID int64, to Status, override bool) (Overlay, error) {
	if err := ValidateTransition(g, overlay, disciplineID, to, override); err != nil {
		return overlay, err
	}
	if overlay.StatusOf(disciplineID) == to {
		return overlay, nil
	}
	return overlay.With(disciplineID, to), nil
}
