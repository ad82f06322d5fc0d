package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// residualDiagnostics fills skew, kurtosis, Jarque-Bera, Durbin-Watson and,
// for n >= 8, the omnibus normality test.
func residualDiagnostics(res *OLSResult, resid []float64, ssr float64) {
	n := float64(len(resid))
	skew, kurt := moments(resid)
	res.Skew = skew
	res.Kurtosis = kurt
	chi2 := distuv.ChiSquared{K: 2}
	res.JarqueBera = n / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	res.JBPValue = chi2.Survival(res.JarqueBera)

	var dw float64
	for i := 1; i < len(resid); i++ {
		d := resid[i] - resid[i-1]
		dw += d * d
	}
	res.DurbinWatson = dw / ssr

	if len(resid) >= 8 {
		zs := skewZ(skew, n)
		zk := kurtosisZ(kurt, n)
		if !math.IsNaN(zs) && !math.IsNaN(zk) {
			k2 := zs*zs + zk*zk
			res.Omnibus = &OmnibusResult{Statistic: k2, PValue: chi2.Survival(k2)}
		}
	}
}

// moments returns the biased sample skewness and (Pearson, non-excess) kurtosis.
func moments(x []float64) (skew, kurt float64) {
	n := float64(len(x))
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= n
	var m2, m3, m4 float64
	for _, v := range x {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return 0, 3
	}
	return m3 / math.Pow(m2, 1.5), m4 / (m2 * m2)
}

// skewZ is D'Agostino's transformation of sample skewness to a standard normal.
func skewZ(b2, n float64) float64 {
	y := b2 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	if y == 0 {
		y = 1
	}
	return delta * math.Log(y/alpha+math.Sqrt((y/alpha)*(y/alpha)+1))
}

// kurtosisZ is Anscombe and Glynn's transformation of sample kurtosis to a standard normal.
func kurtosisZ(b2, n float64) float64 {
	e := 3 * (n - 1) / (n + 1)
	varb2 := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (b2 - e) / math.Sqrt(varb2)
	sqrtbeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtbeta1*(2/sqrtbeta1+math.Sqrt(1+4/(sqrtbeta1*sqrtbeta1)))
	term1 := 1 - 2/(9*a)
	denom := 1 + x*math.Sqrt(2/(a-4))
	if denom == 0 {
		return math.NaN()
	}
	term2 := math.Copysign(math.Cbrt(math.Abs((1-2/a)/denom)), denom)
	return (term1 - term2) / math.Sqrt(2/(9*a))
}
