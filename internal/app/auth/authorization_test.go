package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/apperrors"
)

func testSnapshot(t *testing.T) *curriculum.Snapshot {
	t.Helper()
	snap, err := curriculum.NewSnapshot(curriculum.Entities{
		Disciplines: []curriculum.Discipline{{ID: 1, Name: "Biologia Celular"}, {ID: 2, Name: "Genética"}},
		Teachers:    []curriculum.Teacher{{ID: 200, DisciplineIDs: []int64{2}}},
	}, time.Now())
	require.NoError(t, err)
	return snap
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), Actor{UserID: 5, Role: models.RoleAdmin})
	a, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(5), a.UserID)
}

func TestCanViewStudent(t *testing.T) {
	s := NewAuthorizationService()
	assert.NoError(t, s.CanViewStudent(Actor{UserID: 1, Role: models.RoleAdmin}, 100))
	assert.NoError(t, s.CanViewStudent(Actor{UserID: 200, Role: models.RoleTeacher}, 100))
	assert.NoError(t, s.CanViewStudent(Actor{UserID: 100, Role: models.RoleStudent}, 100))

	err := s.CanViewStudent(Actor{UserID: 101, Role: models.RoleStudent}, 100)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
}

func TestCanChangeStatus(t *testing.T) {
	s := NewAuthorizationService()
	snap := testSnapshot(t)

	tests := []struct {
		name     string
		actor    Actor
		disc     int64
		override bool
		allowed  bool
	}{
		{"admin", Actor{UserID: 1, Role: models.RoleAdmin}, 1, false, true},
		{"admin override", Actor{UserID: 1, Role: models.RoleAdmin}, 1, true, true},
		{"self", Actor{UserID: 100, Role: models.RoleStudent}, 1, false, true},
		{"self override", Actor{UserID: 100, Role: models.RoleStudent}, 1, true, false},
		{"other student", Actor{UserID: 101, Role: models.RoleStudent}, 1, false, false},
		{"teacher of discipline", Actor{UserID: 200, Role: models.RoleTeacher}, 2, false, true},
		{"teacher of another discipline", Actor{UserID: 200, Role: models.RoleTeacher}, 1, false, false},
		{"unknown teacher", Actor{UserID: 999, Role: models.RoleTeacher}, 2, false, false},
		{"teacher override", Actor{UserID: 200, Role: models.RoleTeacher}, 2, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CanChangeStatus(tt.actor, snap, 100, tt.disc, tt.override)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
			}
		})
	}
}
