package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selectionFixture returns candidates a, b, c where y depends on b only and
// a, c are orthogonal to the intercept, b and the noise.
func selectionFixture() ([]string, [][]float64, []float64) {
	b := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	e := []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1}
	a := []float64{1, -1, -1, 1, 1, -1, -1, 1, 1, -1, -1, 1}
	c := []float64{1, 1, -1, -1, -1, -1, 1, 1, 0, 0, 0, 0}
	y := make([]float64, len(b))
	for i := range y {
		y[i] = 2*b[i] + e[i]
	}
	return []string{"a", "b", "c"}, [][]float64{a, b, c}, y
}

func TestForwardSelect_SelectsOnlySignificant(t *testing.T) {
	names, cols, y := selectionFixture()
	sel, err := ForwardSelect(names, cols, y, DefaultEntryThreshold)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"b"}, sel.Selected); diff != "" {
		t.Fatalf("selected mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, sel.Rounds, 2)
	assert.True(t, sel.Rounds[0].Admitted)
	assert.Equal(t, "b", sel.Rounds[0].Best)
	assert.Less(t, sel.Rounds[0].BestP, 0.01)
	assert.False(t, sel.Rounds[1].Admitted)
	assert.GreaterOrEqual(t, sel.Rounds[1].BestP, DefaultEntryThreshold)
	assert.Len(t, sel.Rounds[1].Candidates, 2)
}

func TestForwardSelect_Idempotent(t *testing.T) {
	names, cols, y := selectionFixture()
	first, err := ForwardSelect(names, cols, y, DefaultEntryThreshold)
	require.NoError(t, err)
	second, err := ForwardSelect(names, cols, y, DefaultEntryThreshold)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestForwardSelect_Bounds(t *testing.T) {
	names, cols, y := selectionFixture()
	for _, thr := range []float64{1e-12, 0.05, 0.5, 1} {
		sel, err := ForwardSelect(names, cols, y, thr)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(sel.Selected), len(names))
		admitted := 0
		for _, r := range sel.Rounds {
			if r.Admitted {
				admitted++
				assert.Less(t, r.BestP, thr)
			}
		}
		assert.Equal(t, len(sel.Selected), admitted)
	}
}

func TestForwardSelect_TieBreakFirstInOrder(t *testing.T) {
	names, cols, y := selectionFixture()
	// b2 duplicates b, so both tie in round one and b2 cannot join b afterwards
	names = []string{"b", "b2", "a"}
	cols = [][]float64{cols[1], append([]float64(nil), cols[1]...), cols[0]}
	sel, err := ForwardSelect(names, cols, y, DefaultEntryThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sel.Selected)
	require.GreaterOrEqual(t, len(sel.Rounds), 2)
	var b2 CandidateP
	for _, c := range sel.Rounds[1].Candidates {
		if c.Name == "b2" {
			b2 = c
		}
	}
	assert.NotEmpty(t, b2.Err, "duplicate column must be unfittable")
}

func TestForwardSelect_InvalidThreshold(t *testing.T) {
	names, cols, y := selectionFixture()
	for _, thr := range []float64{0, -0.1, 1.5} {
		_, err := ForwardSelect(names, cols, y, thr)
		assert.Error(t, err, "threshold %v", thr)
	}
}

func TestForwardSelect_NoCandidates(t *testing.T) {
	sel, err := ForwardSelect(nil, nil, []float64{1, 2, 3}, DefaultEntryThreshold)
	require.NoError(t, err)
	assert.Empty(t, sel.Selected)
	assert.Empty(t, sel.Rounds)
}

func TestForwardSelect_PerfectFitCandidateEnters(t *testing.T) {
	names, cols, _ := selectionFixture()
	b := cols[1]
	y := make([]float64, len(b))
	for i := range y {
		y[i] = 2*b[i] + 1
	}
	sel, err := ForwardSelect(names[:2], cols[:2], y, DefaultEntryThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sel.Selected)
	require.Len(t, sel.Rounds, 1, "an exact fit ends the selection")

	rd := sel.Rounds[0]
	assert.True(t, rd.Admitted)
	assert.Equal(t, "b", rd.Best)
	assert.Equal(t, 0.0, rd.BestP)
	require.Len(t, rd.Candidates, 2)
	assert.Empty(t, rd.Candidates[0].Err, "orthogonal candidate must still be evaluated")
	assert.Greater(t, rd.Candidates[0].PValue, 0.99)
	assert.True(t, rd.Candidates[1].PerfectFit)
	assert.Empty(t, rd.Candidates[1].Err)
}

func TestForwardSelect_OrthogonalCandidatesFirstRound(t *testing.T) {
	names, cols, y := selectionFixture()
	sel, err := ForwardSelect(names, cols, y, DefaultEntryThreshold)
	require.NoError(t, err)
	for _, c := range sel.Rounds[0].Candidates {
		assert.Empty(t, c.Err, c.Name)
		assert.True(t, c.PValue >= 0 && c.PValue <= 1, "%s p=%v", c.Name, c.PValue)
	}
}
