package curriculum

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenarioEngine(t *testing.T) *Engine {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.ReplaceAll(scenarioEntities()))
	return s.Engine()
}

func TestEngine_Scenario(t *testing.T) {
	e := newScenarioEngine(t)

	rec, err := e.Recommend(100)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, rec)

	path, err := e.GraduationPath(100, []int64{4})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, path)

	g, err := e.BuildGraph()
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())
}

func TestEngine_SetStatusDoesNotMutate(t *testing.T) {
	e := newScenarioEngine(t)

	o, err := e.SetStatus(100, 2, StatusInProgress, false)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, o.StatusOf(2))

	st, err := e.StatusOf(100, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)
}

func TestEngine_SetStatusUnmet(t *testing.T) {
	s := NewStore()
	ent := scenarioEntities()
	ent.Students[0].Statuses = NewOverlay(nil)
	require.NoError(t, s.ReplaceAll(ent))
	e := s.Engine()

	_, err := e.SetStatus(100, 2, StatusCompleted, false)
	var pErr *PrerequisiteNotSatisfiedError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, []int64{1}, pErr.Unmet)
}

func TestEngine_UnknownStudent(t *testing.T) {
	e := newScenarioEngine(t)

	_, err := e.Recommend(1)
	assert.True(t, errors.Is(err, ErrUnknownStudent))

	_, err = e.Progress(1)
	assert.True(t, errors.Is(err, ErrUnknownStudent))
}

func TestEngine_StatusOfUnknownDiscipline(t *testing.T) {
	e := newScenarioEngine(t)

	_, err := e.StatusOf(100, 77)
	assert.True(t, errors.Is(err, ErrUnknownDiscipline))
}

func TestEngine_GraphErrorSurfaces(t *testing.T) {
	s := NewStore()
	ent := scenarioEntities()
	ent.Disciplines = append(ent.Disciplines, Discipline{ID: 5, PrerequisiteIDs: []int64{50}})
	require.NoError(t, s.ReplaceAll(ent))
	e := s.Engine()

	_, err := e.Recommend(100)
	assert.True(t, errors.Is(err, ErrDanglingReference))
}

func TestLevelsAndProgress(t *testing.T) {
	e := newScenarioEngine(t)
	g, err := e.BuildGraph()
	require.NoError(t, err)

	assert.Equal(t, [][]int64{{1}, {2, 3}, {4}}, Levels(g))

	p, err := e.Progress(100)
	require.NoError(t, err)
	assert.Equal(t, Position{0, 0}, p.Positions[1])
	assert.Equal(t, Position{ColumnSpacing, RowSpacing}, p.Positions[3])
	assert.Equal(t, Position{2 * ColumnSpacing, 0}, p.Positions[4])
	assert.Equal(t, StatusCompleted, p.Statuses[1])
	assert.Equal(t, StatusPending, p.Statuses[4])
	assert.Equal(t, "Biologia Molecular", p.Labels[4])
}

func TestEngine_KeepsItsSnapshot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.ReplaceAll(scenarioEntities()))
	e := s.Engine()

	s.ApplyStatus(100, 2, StatusCompleted)

	st, err := e.StatusOf(100, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)

	st, err = s.Engine().StatusOf(100, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, st)
	assert.Same(t, s.Snapshot(), s.Engine().Snapshot())
}
