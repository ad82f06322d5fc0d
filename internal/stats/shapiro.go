package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ShapiroResult is the outcome of a Shapiro-Wilk normality test.
type ShapiroResult struct {
	W      float64 `json:"w"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// Royston (1995) polynomial coefficients, algorithm AS R94.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilk tests x for normality. It needs 3 <= n <= 5000 non-constant values.
func ShapiroWilk(x []float64) (ShapiroResult, error) {
	n := len(x)
	res := ShapiroResult{N: n}
	if n < 3 {
		return res, fmt.Errorf("shapiro-wilk needs at least 3 values, got %d: %w", n, ErrInsufficientData)
	}
	if n > 5000 {
		return res, fmt.Errorf("shapiro-wilk supports at most 5000 values, got %d", n)
	}
	xs := append([]float64(nil), x...)
	sort.Float64s(xs)
	if xs[n-1]-xs[0] < 1e-19 {
		return res, fmt.Errorf("shapiro-wilk on constant sample: %w", ErrZeroVariance)
	}

	a := swilkCoefficients(n)
	var mean float64
	for _, v := range xs {
		mean += v
	}
	mean /= float64(n)
	var ssq, num float64
	for _, v := range xs {
		ssq += (v - mean) * (v - mean)
	}
	for i := 0; i < n/2; i++ {
		num += a[i] * (xs[n-1-i] - xs[i])
	}
	w := num * num / ssq
	if w > 1 {
		w = 1
	}
	res.W = w
	res.PValue = swilkPValue(w, n)
	return res, nil
}

// swilkCoefficients returns the first n/2 positive weights a_i.
func swilkCoefficients(n int) []float64 {
	n2 := n / 2
	a := make([]float64, n2)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}
	an25 := float64(n) + 0.25
	m := make([]float64, n2)
	var summ2 float64
	for i := 0; i < n2; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(float64(n))
	a1 := poly(swC1, rsn) - m[0]/ssumm2

	i1 := 1
	var fac float64
	if n > 5 {
		i1 = 2
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := i1; i < n2; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

func swilkPValue(w float64, n int) float64 {
	if n == 3 {
		const pi6 = 6 / math.Pi
		const stqr = math.Pi / 3
		p := pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return clampProb(p)
	}
	w1 := 1 - w
	if w1 <= 0 {
		return 1
	}
	y := math.Log(w1)
	xx := math.Log(float64(n))
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, float64(n))
		if y >= gamma {
			return 1e-19
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, float64(n))
		s = math.Exp(poly(swC4, float64(n)))
	} else {
		m = poly(swC5, xx)
		s = math.Exp(poly(swC6, xx))
	}
	return clampProb(distuv.UnitNormal.Survival((y - m) / s))
}

// poly evaluates c[0] + c[1]x + c[2]x² + ...
func poly(c []float64, x float64) float64 {
	var r float64
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}
