package stats

import (
	"errors"
	"fmt"
)

// VIFRow is the variance inflation factor of one design column.
type VIFRow struct {
	Name string  `json:"variable"`
	VIF  float64 `json:"vif"`
	// Intercept marks the constant column; its VIF is reported but carries no
	// multicollinearity meaning.
	Intercept bool `json:"intercept,omitempty"`
}

// VIF computes 1/(1-R²) for every column of d regressed on all the others,
// in column order. A column perfectly explained by the others is an error.
func VIF(d *Design) ([]VIFRow, error) {
	_, k := d.Dims()
	if k < 2 {
		return nil, fmt.Errorf("vif needs at least 2 design columns, got %d: %w", k, ErrInsufficientData)
	}
	rows := make([]VIFRow, 0, k)
	for j := 0; j < k; j++ {
		name := d.Names[j]
		y := d.Col(j)
		others := d.Without(j)
		_, resid, err := leastSquares(others.X, y)
		if err != nil {
			return nil, fmt.Errorf("vif %s: %w", name, err)
		}
		r2, err := rSquared(y, resid, others.HasConstant())
		if err != nil {
			if errors.Is(err, ErrZeroVariance) {
				return nil, fmt.Errorf("vif %s: column has no variance: %w", name, ErrZeroVariance)
			}
			return nil, fmt.Errorf("vif %s: %w", name, err)
		}
		if 1-r2 <= 1e-12 {
			return nil, fmt.Errorf("vif %s: R² = 1, column is a linear combination of the others: %w", name, ErrDivisionByZero)
		}
		rows = append(rows, VIFRow{
			Name:      name,
			VIF:       1 / (1 - r2),
			Intercept: name == InterceptName,
		})
	}
	return rows, nil
}
