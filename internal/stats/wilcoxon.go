package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxExactWilcoxon is the largest sample for which the exact null distribution is used.
const maxExactWilcoxon = 50

// WilcoxonSignedRank runs a two-sided Wilcoxon signed-rank test on x - y.
// Zero differences are discarded. The statistic is min(R+, R-). The exact null
// distribution is used for n <= 50 when there were no zero differences and no tied
// magnitudes; otherwise the normal approximation with tie correction (no
// continuity correction).
func WilcoxonSignedRank(x, y []float64) (TestResult, error) {
	res := TestResult{Test: TestWilcoxon}
	if len(x) != len(y) {
		return res, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	d := make([]float64, 0, len(x))
	zeros := 0
	for i := range x {
		if diff := x[i] - y[i]; diff != 0 {
			d = append(d, diff)
		} else {
			zeros++
		}
	}
	n := len(d)
	res.N = n
	if n == 0 {
		if len(x) == 0 {
			return res, fmt.Errorf("wilcoxon test needs at least 1 pair: %w", ErrInsufficientData)
		}
		res.Statistic, res.PValue, res.NoDifference = 0, 1, true
		return res, nil
	}

	abs := make([]float64, n)
	for i, v := range d {
		abs[i] = math.Abs(v)
	}
	ranks, ties := averageRanks(abs)
	var rPlus, rMinus float64
	for i, v := range d {
		if v > 0 {
			rPlus += ranks[i]
		} else {
			rMinus += ranks[i]
		}
	}
	T := math.Min(rPlus, rMinus)
	res.Statistic = T

	if n <= maxExactWilcoxon && zeros == 0 && len(ties) == 0 {
		res.PValue = clampProb(2 * signedRankCDF(n, int(math.Round(T))))
		return res, nil
	}
	nf := float64(n)
	mean := nf * (nf + 1) / 4
	variance := nf * (nf + 1) * (2*nf + 1) / 24
	for _, t := range ties {
		tf := float64(t)
		variance -= (tf*tf*tf - tf) / 48
	}
	if variance <= 0 {
		return res, fmt.Errorf("wilcoxon normal approximation: %w", ErrZeroVariance)
	}
	z := (T - mean) / math.Sqrt(variance)
	res.PValue = clampProb(2 * distuv.UnitNormal.Survival(math.Abs(z)))
	return res, nil
}

// averageRanks assigns 1-based ranks with ties sharing their average rank.
// It also returns the size of every tie group larger than one.
func averageRanks(v []float64) ([]float64, []int) {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	ranks := make([]float64, n)
	var ties []int
	for i := 0; i < n; {
		j := i
		for j+1 < n && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		if j > i {
			ties = append(ties, j-i+1)
		}
		i = j + 1
	}
	return ranks, ties
}

// signedRankCDF returns P(T+ <= t) under the null for sample size n.
func signedRankCDF(n, t int) float64 {
	maxSum := n * (n + 1) / 2
	if t < 0 {
		return 0
	}
	if t >= maxSum {
		return 1
	}
	// counts[s] = number of subsets of {1..n} summing to s
	counts := make([]float64, maxSum+1)
	counts[0] = 1
	for k := 1; k <= n; k++ {
		for s := maxSum; s >= k; s-- {
			counts[s] += counts[s-k]
		}
	}
	var below float64
	for s := 0; s <= t; s++ {
		below += counts[s]
	}
	return below / math.Pow(2, float64(n))
}
