package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InterceptName labels the constant column added by NewDesign.
const InterceptName = "const"

// rankTol is the relative size below which a diagonal entry of R counts as zero.
const rankTol = 1e-10

// Design is a named regressor matrix, one column per regressor.
type Design struct {
	Names []string
	X     *mat.Dense
}

// NewDesign stacks equal-length columns into a design matrix, optionally
// prepending an intercept column named "const".
func NewDesign(names []string, cols [][]float64, intercept bool) (*Design, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(cols))
	}
	n := -1
	for i, c := range cols {
		if n >= 0 && len(c) != n {
			return nil, fmt.Errorf("column %s: %w: %d vs %d", names[i], ErrLengthMismatch, len(c), n)
		}
		n = len(c)
	}
	k := len(cols)
	if intercept {
		k++
	}
	if k == 0 || n <= 0 {
		return nil, fmt.Errorf("empty design: %w", ErrInsufficientData)
	}
	x := mat.NewDense(n, k, nil)
	var out []string
	j := 0
	if intercept {
		for i := 0; i < n; i++ {
			x.Set(i, 0, 1)
		}
		out = append(out, InterceptName)
		j = 1
	}
	for c, col := range cols {
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("column %s row %d is not finite", names[c], i)
			}
			x.Set(i, j, v)
		}
		out = append(out, names[c])
		j++
	}
	return &Design{Names: out, X: x}, nil
}

// Dims returns observations and regressors.
func (d *Design) Dims() (n, k int) { return d.X.Dims() }

// Col returns a copy of regressor j.
func (d *Design) Col(j int) []float64 { return mat.Col(nil, j, d.X) }

// Without returns the design minus column j.
func (d *Design) Without(j int) *Design {
	n, k := d.X.Dims()
	x := mat.NewDense(n, k-1, nil)
	var names []string
	c := 0
	for src := 0; src < k; src++ {
		if src == j {
			continue
		}
		x.SetCol(c, mat.Col(nil, src, d.X))
		names = append(names, d.Names[src])
		c++
	}
	return &Design{Names: names, X: x}
}

// HasConstant reports whether any column is a non-zero constant.
func (d *Design) HasConstant() bool {
	n, k := d.X.Dims()
	for j := 0; j < k; j++ {
		v0 := d.X.At(0, j)
		if v0 == 0 {
			continue
		}
		same := true
		for i := 1; i < n; i++ {
			if d.X.At(i, j) != v0 {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// Coefficient is one row of a regression coefficient table.
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"coef"`
	StdErr   float64 `json:"std_err"`
	T        float64 `json:"t"`
	PValue   float64 `json:"p_value"`
	CILow    float64 `json:"ci_low"`
	CIHigh   float64 `json:"ci_high"`
}

// OmnibusResult is D'Agostino's K² test on residuals.
type OmnibusResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
}

// OLSResult summarizes an ordinary least squares fit.
type OLSResult struct {
	Response      string         `json:"response"`
	Coefficients  []Coefficient  `json:"coefficients"`
	N             int            `json:"n"`
	DFModel       float64        `json:"df_model"`
	DFResid       float64        `json:"df_resid"`
	RSquared      float64        `json:"r_squared"`
	AdjRSquared   float64        `json:"adj_r_squared"`
	FStat         float64        `json:"f_statistic"`
	FPValue       float64        `json:"f_p_value"`
	LogLikelihood float64        `json:"log_likelihood"`
	AIC           float64        `json:"aic"`
	BIC           float64        `json:"bic"`
	Omnibus       *OmnibusResult `json:"omnibus,omitempty"`
	Skew          float64        `json:"skew"`
	Kurtosis      float64        `json:"kurtosis"`
	JarqueBera    float64        `json:"jarque_bera"`
	JBPValue      float64        `json:"jb_p_value"`
	DurbinWatson  float64        `json:"durbin_watson"`
	CondNo        float64        `json:"cond_no"`
	Residuals     []float64      `json:"-"`
}

// Coefficient looks up a coefficient row by regressor name.
func (r *OLSResult) Coefficient(name string) (Coefficient, bool) {
	for _, c := range r.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// leastSquares solves min ||Xb - y|| by QR and returns b and the residuals.
func leastSquares(x *mat.Dense, y []float64) ([]float64, []float64, error) {
	n, k := x.Dims()
	if len(y) != n {
		return nil, nil, fmt.Errorf("response: %w: %d vs %d", ErrLengthMismatch, len(y), n)
	}
	if n < k {
		return nil, nil, fmt.Errorf("%d observations for %d regressors: %w", n, k, ErrInsufficientData)
	}
	var qr mat.QR
	qr.Factorize(x)
	var r mat.Dense
	qr.RTo(&r)
	var maxDiag float64
	for j := 0; j < k; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	for j := 0; j < k; j++ {
		if math.Abs(r.At(j, j)) <= rankTol*maxDiag {
			return nil, nil, ErrSingular
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, yv); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	var fitted mat.VecDense
	fitted.MulVec(x, &b)
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = y[i] - fitted.AtVec(i)
	}
	return mat.Col(nil, 0, &b), resid, nil
}

// rSquared returns the coefficient of determination, centred when the
// regressors contain a constant and uncentred otherwise.
func rSquared(y, resid []float64, centred bool) (float64, error) {
	var ssr, tss, mean float64
	if centred {
		for _, v := range y {
			mean += v
		}
		mean /= float64(len(y))
	}
	for i, v := range y {
		ssr += resid[i] * resid[i]
		tss += (v - mean) * (v - mean)
	}
	if tss == 0 {
		return 0, fmt.Errorf("total sum of squares is zero: %w", ErrZeroVariance)
	}
	// an orthogonal regressor leaves ssr == tss up to rounding
	return math.Max(0, 1-ssr/tss), nil
}

// FitOLS regresses y on the design and computes inference statistics.
func FitOLS(response string, y []float64, d *Design) (*OLSResult, error) {
	n, k := d.Dims()
	if n <= k {
		return nil, fmt.Errorf("%d observations for %d regressors: %w", n, k, ErrInsufficientData)
	}
	beta, resid, err := leastSquares(d.X, y)
	if err != nil {
		return nil, err
	}
	var xtx, inv mat.Dense
	xtx.Mul(d.X.T(), d.X)
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var ssr, yy float64
	for i, e := range resid {
		ssr += e * e
		yy += y[i] * y[i]
	}
	// residuals at rounding level mean the response is an exact linear combination
	if ssr <= 1e-20*yy {
		return nil, ErrPerfectFit
	}
	hasConst := d.HasConstant()
	r2, err := rSquared(y, resid, hasConst)
	if err != nil {
		return nil, err
	}
	kConst := 0.0
	if hasConst {
		kConst = 1
	}
	nf := float64(n)
	res := &OLSResult{
		Response:  response,
		N:         n,
		DFResid:   nf - float64(k),
		DFModel:   float64(k) - kConst,
		RSquared:  r2,
		Residuals: resid,
	}
	res.AdjRSquared = 1 - (nf-kConst)/res.DFResid*(1-r2)

	sigma2 := ssr / res.DFResid
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: res.DFResid}
	q := tdist.Quantile(0.975)
	for j := 0; j < k; j++ {
		se := math.Sqrt(sigma2 * inv.At(j, j))
		c := Coefficient{Name: d.Names[j], Estimate: beta[j], StdErr: se}
		c.T = beta[j] / se
		c.PValue = twoSidedT(c.T, res.DFResid)
		c.CILow = beta[j] - q*se
		c.CIHigh = beta[j] + q*se
		res.Coefficients = append(res.Coefficients, c)
	}

	if res.DFModel > 0 && r2 > 0 && r2 < 1 {
		res.FStat = (r2 / res.DFModel) / ((1 - r2) / res.DFResid)
		res.FPValue = distuv.F{D1: res.DFModel, D2: res.DFResid}.Survival(res.FStat)
	} else {
		res.FPValue = 1
	}
	res.LogLikelihood = -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	res.AIC = -2*res.LogLikelihood + 2*float64(k)
	res.BIC = -2*res.LogLikelihood + math.Log(nf)*float64(k)
	res.CondNo = mat.Cond(d.X, 2)
	residualDiagnostics(res, resid, ssr)
	return res, nil
}
