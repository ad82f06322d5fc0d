package stats

import (
	"errors"
	"fmt"
	"math"
)

// DefaultEntryThreshold is the p-value a candidate must beat to enter the model.
const DefaultEntryThreshold = 0.05

// CandidateP is one candidate's entry p-value within a selection round.
type CandidateP struct {
	Name   string  `json:"name"`
	PValue float64 `json:"p_value"`
	// PerfectFit marks a candidate that completes an exact fit of the response;
	// its entry p-value is 0.
	PerfectFit bool `json:"perfect_fit,omitempty"`
	// Err explains why the candidate could not be evaluated this round.
	Err string `json:"error,omitempty"`
}

// SelectionRound records every candidate evaluated in one round.
type SelectionRound struct {
	Round      int          `json:"round"`
	Candidates []CandidateP `json:"candidates"`
	Best       string       `json:"best,omitempty"`
	BestP      float64      `json:"best_p"`
	Admitted   bool         `json:"admitted"`
}

// Selection is the outcome of forward stepwise selection.
type Selection struct {
	Threshold float64          `json:"threshold"`
	Selected  []string         `json:"selected"`
	Rounds    []SelectionRound `json:"rounds"`
}

// ForwardSelect greedily admits candidate columns into an intercept model.
// Each round fits [selected + candidate] for every remaining candidate and admits
// the one with the smallest coefficient p-value if it is below threshold.
// Ties go to the earliest candidate in the given order. A candidate whose model
// cannot be fitted (singular design, too few rows) is skipped for that round.
// A candidate that makes the fit exact enters with p = 0 and ends the selection,
// since no further coefficient has a defined p-value.
func ForwardSelect(names []string, cols [][]float64, y []float64, threshold float64) (*Selection, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(cols))
	}
	if !(threshold > 0 && threshold <= 1) {
		return nil, fmt.Errorf("entry threshold must be in (0, 1], got %g", threshold)
	}
	for i, c := range cols {
		if len(c) != len(y) {
			return nil, fmt.Errorf("candidate %s: %w: %d vs %d", names[i], ErrLengthMismatch, len(c), len(y))
		}
	}
	sel := &Selection{Threshold: threshold, Selected: []string{}}
	chosen := make([]bool, len(names))
	var selCols [][]float64

	for round := 1; len(sel.Selected) < len(names); round++ {
		rd := SelectionRound{Round: round, BestP: math.Inf(1)}
		best, bestIdx := -1, -1
		for i, name := range names {
			if chosen[i] {
				continue
			}
			cand := CandidateP{Name: name, PValue: math.NaN()}
			design, err := NewDesign(append(append([]string(nil), sel.Selected...), name),
				append(append([][]float64(nil), selCols...), cols[i]), true)
			if err == nil {
				var fit *OLSResult
				fit, err = FitOLS("", y, design)
				switch {
				case err == nil:
					c, _ := fit.Coefficient(name)
					cand.PValue = c.PValue
				case errors.Is(err, ErrPerfectFit):
					cand.PValue, cand.PerfectFit, err = 0, true, nil
				}
			}
			if err != nil {
				cand.Err = err.Error()
				rd.Candidates = append(rd.Candidates, cand)
				continue
			}
			rd.Candidates = append(rd.Candidates, cand)
			if cand.PValue < rd.BestP {
				rd.BestP = cand.PValue
				best = i
				bestIdx = len(rd.Candidates) - 1
			}
		}
		if best < 0 {
			rd.BestP = math.NaN()
			sel.Rounds = append(sel.Rounds, finalizeRound(rd))
			break
		}
		rd.Best = names[best]
		if rd.BestP < threshold {
			rd.Admitted = true
			chosen[best] = true
			sel.Selected = append(sel.Selected, names[best])
			selCols = append(selCols, cols[best])
		}
		sel.Rounds = append(sel.Rounds, finalizeRound(rd))
		if !rd.Admitted || rd.Candidates[bestIdx].PerfectFit {
			break
		}
	}
	return sel, nil
}

// finalizeRound replaces non-finite p-values so the trace stays JSON-safe;
// unevaluated candidates carry their error instead.
func finalizeRound(rd SelectionRound) SelectionRound {
	for i := range rd.Candidates {
		if math.IsNaN(rd.Candidates[i].PValue) {
			rd.Candidates[i].PValue = 1
		}
	}
	if math.IsNaN(rd.BestP) || math.IsInf(rd.BestP, 0) {
		rd.BestP = 1
	}
	return rd
}
