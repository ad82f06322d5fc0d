package stats

import (
	"fmt"
	"math"
)

// FormatP renders a p-value with 4 decimals, switching to scientific notation below 0.001.
func FormatP(p float64) string {
	if math.IsNaN(p) {
		return "nan"
	}
	if p >= 0.001 {
		return fmt.Sprintf("%.4f", p)
	}
	return fmt.Sprintf("%.2e", p)
}
