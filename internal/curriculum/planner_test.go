package curriculum

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend_Scenario(t *testing.T) {
	g, err := BuildGraph(diamond())
	require.NoError(t, err)

	got := Recommend(g, NewOverlay(map[int64]Status{1: StatusCompleted}))
	assert.Equal(t, []int64{2, 3}, got)
}

func TestRecommend_RootsAndInProgress(t *testing.T) {
	g, err := BuildGraph([]Discipline{
		{ID: 5},
		{ID: 1},
		{ID: 3},
		{ID: 4, PrerequisiteIDs: []int64{5}},
	})
	require.NoError(t, err)

	got := Recommend(g, NewOverlay(map[int64]Status{1: StatusInProgress, 5: StatusCompleted}))
	assert.Equal(t, []int64{3, 4}, got)
}

func TestRecommend_NeverIncludesUnmet(t *testing.T) {
	g, err := BuildGraph(diamond())
	require.NoError(t, err)

	overlays := []Overlay{
		NewOverlay(nil),
		NewOverlay(map[int64]Status{1: StatusInProgress}),
		NewOverlay(map[int64]Status{1: StatusCompleted, 2: StatusCompleted}),
		NewOverlay(map[int64]Status{1: StatusCompleted, 2: StatusCompleted, 3: StatusCompleted}),
	}
	for _, o := range overlays {
		for _, id := range Recommend(g, o) {
			assert.Equal(t, StatusPending, o.StatusOf(id))
			for _, p := range g.Prerequisites(id) {
				assert.True(t, o.Completed(p), "discipline %d recommended with %d unmet", id, p)
			}
		}
	}
	assert.Empty(t, Recommend(g, NewOverlay(map[int64]Status{1: StatusCompleted, 2: StatusCompleted, 3: StatusCompleted, 4: StatusCompleted})))
}

func TestGraduationPath_Scenario(t *testing.T) {
	g, err := BuildGraph(diamond())
	require.NoError(t, err)
	o := NewOverlay(map[int64]Status{1: StatusCompleted})

	path, err := GraduationPath(g, o, []int64{4})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, path)

	again, err := GraduationPath(g, o, []int64{4})
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestGraduationPath_FromScratch(t *testing.T) {
	g, err := BuildGraph(diamond())
	require.NoError(t, err)

	path, err := GraduationPath(g, NewOverlay(nil), []int64{4, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, path)
}

func TestGraduationPath_RespectsPrerequisiteOrder(t *testing.T) {
	disciplines := []Discipline{
		{ID: 1},
		{ID: 2},
		{ID: 3, PrerequisiteIDs: []int64{2}},
		{ID: 4, PrerequisiteIDs: []int64{1, 3}},
		{ID: 5, PrerequisiteIDs: []int64{4}},
		{ID: 6, PrerequisiteIDs: []int64{2}},
		{ID: 7, PrerequisiteIDs: []int64{5, 6}},
	}
	g, err := BuildGraph(disciplines)
	require.NoError(t, err)
	o := NewOverlay(map[int64]Status{2: StatusCompleted})

	path, err := GraduationPath(g, o, []int64{7})
	require.NoError(t, err)

	position := make(map[int64]int, len(path))
	for i, id := range path {
		position[id] = i
	}
	for _, id := range path {
		for _, p := range g.Prerequisites(id) {
			if o.Completed(p) {
				continue
			}
			pi, ok := position[p]
			require.True(t, ok, "prerequisite %d of %d missing", p, id)
			assert.Less(t, pi, position[id])
		}
	}
	assert.NotContains(t, path, int64(2))
	assert.Equal(t, []int64{1, 3, 4, 5, 6, 7}, path)
}

func TestGraduationPath_CompletedTargetIsSkipped(t *testing.T) {
	g, err := BuildGraph(diamond())
	require.NoError(t, err)

	path, err := GraduationPath(g, NewOverlay(map[int64]Status{1: StatusCompleted, 2: StatusCompleted}), []int64{2})
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = GraduationPath(g, NewOverlay(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestGraduationPath_UnknownDiscipline(t *testing.T) {
	g, err := BuildGraph(diamond())
	require.NoError(t, err)

	_, err = GraduationPath(g, NewOverlay(nil), []int64{9, 4, 8})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDiscipline))

	var uErr *UnknownDisciplineError
	require.True(t, errors.As(err, &uErr))
	assert.Equal(t, []int64{8, 9}, uErr.IDs)
}

func TestGraduationPath_DefensiveCycleCheck(t *testing.T) {
	// newGraph skips validation, so a cyclic graph can reach the planner.
	g, err := newGraph([]Discipline{
		{ID: 1, PrerequisiteIDs: []int64{3}},
		{ID: 2, PrerequisiteIDs: []int64{1}},
		{ID: 3, PrerequisiteIDs: []int64{2}},
		{ID: 4, PrerequisiteIDs: []int64{3}},
	})
	require.NoError(t, err)

	_, err = GraduationPath(g, NewOverlay(nil), []int64{4})
	var cycErr *CyclicPrerequisiteError
	require.True(t, errors.As(err, &cycErr))
	assert.ElementsMatch(t, []int64{1, 2, 3}, cycErr.Cycle)
}
