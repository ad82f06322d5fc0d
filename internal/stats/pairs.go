package stats

import (
	"fmt"
	"math"
)

// DropMissingPairs keeps positions where both x and y are present.
// It returns the retained values and the number of dropped pairs.
func DropMissingPairs(x, y []float64) (xs, ys []float64, dropped int, err error) {
	if len(x) != len(y) {
		return nil, nil, 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	xs = make([]float64, 0, len(x))
	ys = make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			dropped++
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys, dropped, nil
}
