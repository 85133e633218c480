package curriculum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors matched by errors.Is against the typed errors below.
var (
	ErrCyclicPrerequisite       = errors.New("cyclic prerequisite")
	ErrDanglingReference        = errors.New("dangling prerequisite reference")
	ErrPrerequisiteNotSatisfied = errors.New("prerequisite not satisfied")
	ErrUnknownDiscipline        = errors.New("unknown discipline")
	ErrUnknownStudent           = errors.New("unknown student")
	ErrIllegalTransition        = errors.New("illegal status transition")
	ErrDuplicateID              = errors.New("duplicate id")
	ErrInvalidStatus            = errors.New("invalid status")
)

// CyclicPrerequisiteError names the disciplines forming a prerequisite cycle,
// in traversal order.
type CyclicPrerequisiteError struct {
	Cycle []int64
}

func (e *CyclicPrerequisiteError) Error() string {
	return fmt.Sprintf("cyclic prerequisite: %s", joinIDs(e.Cycle, " -> "))
}

func (e *CyclicPrerequisiteError) Unwrap() error { return ErrCyclicPrerequisite }

// DanglingRef is a prerequisite edge whose target is not a known discipline.
type DanglingRef struct {
	DisciplineID   int64 `json:"disciplineId"`
	PrerequisiteID int64 `json:"prerequisiteId"`
}

// DanglingReferenceError lists every prerequisite edge pointing outside the
// discipline set.
type DanglingReferenceError struct {
	Refs []DanglingRef
}

func (e *DanglingReferenceError) Error() string {
	parts := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		parts[i] = fmt.Sprintf("%d -> %d", r.DisciplineID, r.PrerequisiteID)
	}
	return "dangling prerequisite reference: " + strings.Join(parts, ", ")
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// PrerequisiteNotSatisfiedError is returned when a status change needs
// prerequisites that the student has not completed.
type PrerequisiteNotSatisfiedError struct {
	DisciplineID int64
	Target       Status
	Unmet        []int64
}

func (e *PrerequisiteNotSatisfiedError) Error() string {
	return fmt.Sprintf("discipline %d cannot become %s: unmet prerequisites [%s]",
		e.DisciplineID, e.Target, joinIDs(e.Unmet, ", "))
}

func (e *PrerequisiteNotSatisfiedError) Unwrap() error { return ErrPrerequisiteNotSatisfied }

// UnknownDisciplineError lists discipline ids absent from the snapshot.
type UnknownDisciplineError struct {
	IDs []int64
}

func (e *UnknownDisciplineError) Error() string {
	return fmt.Sprintf("unknown discipline: [%s]", joinIDs(e.IDs, ", "))
}

func (e *UnknownDisciplineError) Unwrap() error { return ErrUnknownDiscipline }

// UnknownStudentError is returned for a student id absent from the snapshot.
type UnknownStudentError struct {
	ID int64
}

func (e *UnknownStudentError) Error() string {
	return fmt.Sprintf("unknown student: %d", e.ID)
}

func (e *UnknownStudentError) Unwrap() error { return ErrUnknownStudent }

// IllegalTransitionError is a backward status change attempted without the
// administrative override.
type IllegalTransitionError struct {
	DisciplineID int64
	From         Status
	To           Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("discipline %d: transition %s -> %s requires an administrative override",
		e.DisciplineID, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// DuplicateIDError reports an id that appears twice within one entity kind.
type DuplicateIDError struct {
	Kind Kind
	ID   int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %d", e.Kind, e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

func joinIDs(ids []int64, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, sep)
}
