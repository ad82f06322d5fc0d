package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// CorrelationResult is a Pearson correlation with its two-sided p-value.
type CorrelationResult struct {
	R      float64 `json:"r"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// Pearson computes the linear correlation of x and y. Inputs must be free of NaN.
func Pearson(x, y []float64) (CorrelationResult, error) {
	res := CorrelationResult{N: len(x)}
	if len(x) != len(y) {
		return res, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return res, fmt.Errorf("correlation needs at least 2 pairs, got %d: %w", len(x), ErrInsufficientData)
	}
	if constant(x) || constant(y) {
		return res, fmt.Errorf("correlation with a constant column: %w", ErrZeroVariance)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return res, fmt.Errorf("correlation undefined: %w", ErrZeroVariance)
	}
	r = math.Max(-1, math.Min(1, r))
	res.R = r
	df := float64(len(x) - 2)
	switch {
	case df <= 0:
		// two points always lie on a line
		res.PValue = 1
	case 1-r*r <= 0:
		res.PValue = 0
	default:
		t := r * math.Sqrt(df/(1-r*r))
		res.PValue = twoSidedT(t, df)
	}
	return res, nil
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
