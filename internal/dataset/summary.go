package dataset

import (
	"math"

	"github.com/montanaflynn/stats"
)

// ColumnSummary holds descriptive statistics of one numeric column.
type ColumnSummary struct {
	Name    string  `json:"name"`
	N       int     `json:"n"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Describe summarizes the named columns over their non-missing values.
// Columns without any value are reported with N == 0 and zero statistics.
func (t *Table) Describe(names ...string) ([]ColumnSummary, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}
	out := make([]ColumnSummary, 0, len(names))
	for _, name := range names {
		col := t.values[t.index[NormalizeName(name)]]
		data := make(stats.Float64Data, 0, len(col))
		for _, v := range col {
			if !math.IsNaN(v) {
				data = append(data, v)
			}
		}
		s := ColumnSummary{Name: NormalizeName(name), N: len(data), Missing: len(col) - len(data)}
		if len(data) > 0 {
			s.Mean, _ = stats.Mean(data)
			s.Median, _ = stats.Median(data)
			s.Min, _ = stats.Min(data)
			s.Max, _ = stats.Max(data)
		}
		if len(data) > 1 {
			s.Std, _ = stats.StandardDeviationSample(data)
		}
		out = append(out, s)
	}
	return out, nil
}
