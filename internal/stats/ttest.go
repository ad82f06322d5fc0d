package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Test names reported in TestResult.Test.
const (
	TestPairedT  = "paired t-test"
	TestWilcoxon = "Wilcoxon signed-rank test"
)

// TestResult is the outcome of a two-sided paired comparison.
type TestResult struct {
	Test      string  `json:"test"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	N         int     `json:"n"`
	DF        float64 `json:"df,omitempty"`
	// NoDifference is set when every pair was identical; the test then reports p = 1.
	NoDifference bool `json:"no_difference,omitempty"`
}

// PairedTTest runs a two-sided paired t-test on x - y. Inputs must be free of NaN.
func PairedTTest(x, y []float64) (TestResult, error) {
	res := TestResult{Test: TestPairedT}
	if len(x) != len(y) {
		return res, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	n := len(x)
	res.N = n
	if n < 2 {
		return res, fmt.Errorf("paired t-test needs at least 2 pairs, got %d: %w", n, ErrInsufficientData)
	}
	d := make([]float64, n)
	allZero := true
	for i := range x {
		d[i] = x[i] - y[i]
		if d[i] != 0 {
			allZero = false
		}
	}
	res.DF = float64(n - 1)
	if allZero {
		res.Statistic, res.PValue, res.NoDifference = 0, 1, true
		return res, nil
	}
	mean, variance := stat.MeanVariance(d, nil)
	if variance <= 0 {
		return res, fmt.Errorf("paired differences are constant (%.6g): %w", mean, ErrZeroVariance)
	}
	t := mean / math.Sqrt(variance/float64(n))
	res.Statistic = t
	res.PValue = twoSidedT(t, res.DF)
	return res, nil
}

// twoSidedT returns P(|T| >= |t|) for Student's t with df degrees of freedom.
func twoSidedT(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampProb(2 * dist.Survival(math.Abs(t)))
}

func clampProb(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
