package auth

import (
	"context"

	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/apperrors"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID int64
	Role   models.RoleType
	// Token is the caller's bearer token, forwarded on upstream writes.
	Token string
}

type actorKey struct{}

// WithActor stores the caller in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the caller stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// AuthorizationService decides what an actor may read or change.
type AuthorizationService struct{}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService() *AuthorizationService {
	return &AuthorizationService{}
}

// CanViewStudent allows admins and teachers, and students looking at themselves.
func (s *AuthorizationService) CanViewStudent(actor Actor, studentID int64) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return nil
	case models.RoleStudent:
		if actor.UserID == studentID {
			return nil
		}
	}
	return apperrors.NewForbiddenError("you can only access your own records")
}

// CanChangeStatus allows admins, teachers assigned to the discipline, and the
// student themself. Override is reserved to admins.
func (s *AuthorizationService) CanChangeStatus(actor Actor, snap *curriculum.Snapshot, studentID, disciplineID int64, override bool) error {
	if override && actor.Role != models.RoleAdmin {
		return apperrors.NewForbiddenError("only administrators can move a status backwards")
	}

	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if actor.UserID == studentID {
			return nil
		}
	case models.RoleTeacher:
		if t, ok := snap.Teacher(actor.UserID); ok {
			for _, id := range t.DisciplineIDs {
				if id == disciplineID {
					return nil
				}
			}
		}
		return apperrors.NewForbiddenError("you do not teach this discipline")
	}
	return apperrors.NewForbiddenError("you cannot change this student's status")
}
