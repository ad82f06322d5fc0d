package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitOLS_SimpleRegression(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 5, 4, 5}
	d, err := NewDesign([]string{"x"}, [][]float64{x}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{InterceptName, "x"}, d.Names)

	fit, err := FitOLS("y", y, d)
	require.NoError(t, err)
	assert.Equal(t, 5, fit.N)
	assert.Equal(t, 3.0, fit.DFResid)
	assert.Equal(t, 1.0, fit.DFModel)

	c, ok := fit.Coefficient(InterceptName)
	require.True(t, ok)
	assert.InDelta(t, 2.2, c.Estimate, 1e-9)

	slope, ok := fit.Coefficient("x")
	require.True(t, ok)
	assert.InDelta(t, 0.6, slope.Estimate, 1e-9)
	assert.InDelta(t, math.Sqrt(0.08), slope.StdErr, 1e-9)
	assert.InDelta(t, 0.6/math.Sqrt(0.08), slope.T, 1e-9)
	assert.True(t, slope.PValue > 0.1 && slope.PValue < 0.15, "p=%v", slope.PValue)
	assert.InDelta(t, slope.Estimate, (slope.CILow+slope.CIHigh)/2, 1e-9)
	assert.Less(t, slope.CILow, 0.0)

	assert.InDelta(t, 0.6, fit.RSquared, 1e-9)
	assert.InDelta(t, 1-4.0/3.0*0.4, fit.AdjRSquared, 1e-9)
	assert.InDelta(t, 4.5, fit.FStat, 1e-9)
	// a single regressor's F-test equals its two-sided t-test
	assert.InDelta(t, slope.PValue, fit.FPValue, 1e-9)
	assert.InDelta(t, -5.2598, fit.LogLikelihood, 1e-3)
	assert.InDelta(t, -2*fit.LogLikelihood+4, fit.AIC, 1e-9)
	assert.InDelta(t, 4.84/2.4, fit.DurbinWatson, 1e-9)
	assert.Nil(t, fit.Omnibus, "omnibus needs n >= 8")
	assert.Greater(t, fit.CondNo, 1.0)
}

func TestFitOLS_RecoversPlane(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3}
	noise := []float64{0.01, -0.01, 0.02, -0.02, 0.01, -0.01, 0.02, -0.02, 0.01, -0.01}
	y := make([]float64, len(a))
	for i := range y {
		y[i] = 1 + 2*a[i] - 3*b[i] + noise[i]
	}
	d, err := NewDesign([]string{"a", "b"}, [][]float64{a, b}, true)
	require.NoError(t, err)
	fit, err := FitOLS("y", y, d)
	require.NoError(t, err)

	want := map[string]float64{InterceptName: 1, "a": 2, "b": -3}
	for name, v := range want {
		c, ok := fit.Coefficient(name)
		require.True(t, ok, name)
		assert.InDelta(t, v, c.Estimate, 0.05, name)
	}
	assert.Greater(t, fit.RSquared, 0.999)
	require.NotNil(t, fit.Omnibus)
	assert.True(t, fit.Omnibus.PValue >= 0 && fit.Omnibus.PValue <= 1)
	assert.True(t, fit.JBPValue >= 0 && fit.JBPValue <= 1)
}

func TestFitOLS_Errors(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	d, err := NewDesign([]string{"x"}, [][]float64{x}, true)
	require.NoError(t, err)
	_, err = FitOLS("y", []float64{3, 5, 7, 9}, d)
	assert.ErrorIs(t, err, ErrZeroVariance, "perfect fit")

	dup, err := NewDesign([]string{"x", "x2"}, [][]float64{x, x}, true)
	require.NoError(t, err)
	_, err = FitOLS("y", []float64{1, 3, 2, 5}, dup)
	assert.ErrorIs(t, err, ErrSingular)

	small, err := NewDesign([]string{"x"}, [][]float64{{1, 2}}, true)
	require.NoError(t, err)
	_, err = FitOLS("y", []float64{1, 2}, small)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewDesign([]string{"x"}, [][]float64{{1, math.NaN()}}, true)
	assert.Error(t, err)
}

func TestDesign_Without(t *testing.T) {
	d, err := NewDesign([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}}, true)
	require.NoError(t, err)
	w := d.Without(1)
	if diff := cmp.Diff([]string{InterceptName, "b"}, w.Names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{3, 4}, w.Col(1))
	assert.True(t, w.HasConstant())
	assert.False(t, d.Without(0).HasConstant())
}

func TestVIF_Orthogonal(t *testing.T) {
	x1 := []float64{-1, 1, -1, 1}
	x2 := []float64{-1, -1, 1, 1}
	d, err := NewDesign([]string{"x1", "x2"}, [][]float64{x1, x2}, true)
	require.NoError(t, err)
	rows, err := VIF(d)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, name := range d.Names {
		assert.Equal(t, name, rows[i].Name)
		assert.InDelta(t, 1.0, rows[i].VIF, 1e-9, name)
	}
	assert.True(t, rows[0].Intercept)
	assert.False(t, rows[1].Intercept)
}

func TestVIF_Correlated(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{1.2, 1.9, 3.1, 4.2, 4.8, 6.1}
	c := []float64{5, 3, 6, 2, 4, 1}
	d, err := NewDesign([]string{"a", "b", "c"}, [][]float64{a, b, c}, true)
	require.NoError(t, err)
	rows, err := VIF(d)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{InterceptName, "a", "b", "c"}, []string{rows[0].Name, rows[1].Name, rows[2].Name, rows[3].Name})
	assert.Greater(t, rows[1].VIF, 10.0)
	assert.Greater(t, rows[2].VIF, 10.0)
	for _, r := range rows {
		assert.False(t, math.IsInf(r.VIF, 0) || math.IsNaN(r.VIF))
		assert.GreaterOrEqual(t, r.VIF, 1.0-1e-9)
	}
}

func TestVIF_PerfectCollinearity(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	d, err := NewDesign([]string{"x", "x2"}, [][]float64{x, {2, 4, 6, 8}}, false)
	require.NoError(t, err)
	_, err = VIF(d)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestFitOLS_OrthogonalRegressor(t *testing.T) {
	names, cols, y := selectionFixture()
	require.Equal(t, "a", names[0])
	d, err := NewDesign([]string{"a"}, [][]float64{cols[0]}, true)
	require.NoError(t, err)

	fit, err := FitOLS("y", y, d)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fit.RSquared, 0.0)
	assert.InDelta(t, 0.0, fit.RSquared, 1e-12)
	assert.GreaterOrEqual(t, fit.FStat, 0.0)
	assert.InDelta(t, 1.0, fit.FPValue, 1e-9)
	a, ok := fit.Coefficient("a")
	require.True(t, ok)
	assert.Greater(t, a.PValue, 0.99)
}

func TestFitOLS_PerfectFitSentinel(t *testing.T) {
	d, err := NewDesign([]string{"x"}, [][]float64{{1, 2, 3, 4}}, true)
	require.NoError(t, err)
	_, err = FitOLS("y", []float64{3, 5, 7, 9}, d)
	assert.ErrorIs(t, err, ErrPerfectFit)
	assert.ErrorIs(t, err, ErrZeroVariance)
}
