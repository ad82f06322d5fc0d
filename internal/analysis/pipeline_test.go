package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/KaramelBytes/fatigue-cli/internal/dataset"
	"github.com/KaramelBytes/fatigue-cli/internal/stats"
)

var studyColumns = []string{"PVT Pre", "PVT Post", "PVT Avr", "KSS Pre", "KSS Post", "SP Pre", "SP Post", "Flight Hours"}

// studyValues builds a deterministic synthetic cohort with the study's column layout.
func studyValues(n int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	cols := make([][]float64, len(studyColumns))
	for i := range cols {
		cols[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		pre := 250 + 20*rng.NormFloat64()
		hours := 2 + 6*rng.Float64()
		kssPre := 3 + rng.NormFloat64()
		spPre := 2 + 0.8*rng.NormFloat64()
		post := pre + 15 + 4*hours + 10*rng.NormFloat64()
		cols[0][i] = pre
		cols[1][i] = post
		cols[2][i] = (pre+post)/2 + 3*rng.NormFloat64()
		cols[3][i] = kssPre
		cols[4][i] = kssPre + 1.5 + 0.7*rng.NormFloat64()
		cols[5][i] = spPre
		cols[6][i] = spPre + 1 + 0.6*rng.NormFloat64()
		cols[7][i] = hours
	}
	return cols
}

func studyTable(t *testing.T, n int, mutate func(cols [][]float64)) *dataset.Table {
	t.Helper()
	cols := studyValues(n)
	if mutate != nil {
		mutate(cols)
	}
	tbl, err := dataset.FromColumns("study.xlsx", studyColumns, cols)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return tbl
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func TestRun_DefaultPlan(t *testing.T) {
	tbl := studyTable(t, 40, nil)
	rep, err := Run(tbl, DefaultPlan(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.RunID == "" || rep.Rows != 40 || rep.ModelRows != 40 {
		t.Fatalf("unexpected header: id=%q rows=%d model=%d", rep.RunID, rep.Rows, rep.ModelRows)
	}
	if len(rep.Descriptives) != 8 {
		t.Fatalf("expected 8 descriptive rows, got %d", len(rep.Descriptives))
	}

	pc := rep.Primary
	if pc == nil {
		t.Fatalf("missing paired comparison")
	}
	wantTest := stats.TestWilcoxon
	if pc.ShapiroPre.PValue > rep.Alpha && pc.ShapiroPost.PValue > rep.Alpha {
		wantTest = stats.TestPairedT
	}
	if pc.Result.Test != wantTest || pc.Normal != (wantTest == stats.TestPairedT) {
		t.Fatalf("gate picked %q (normal=%v), want %q", pc.Result.Test, pc.Normal, wantTest)
	}
	if pc.Result.PValue >= 0.001 {
		t.Fatalf("post should differ clearly from pre, p=%v", pc.Result.PValue)
	}

	if len(rep.Fixed) != 2 || rep.Fixed[0].Pair.Label != "KSS" || rep.Fixed[1].Pair.Label != "SP" {
		t.Fatalf("fixed tests out of order: %+v", rep.Fixed)
	}
	for _, ft := range rep.Fixed {
		if ft.Result.Test != stats.TestPairedT {
			t.Fatalf("%s: fixed pairs are always t-tests, got %s", ft.Pair.Label, ft.Result.Test)
		}
	}

	gotOthers := []string{}
	for _, c := range rep.Correlations {
		gotOthers = append(gotOthers, c.Other)
		if c.Reference != "pvt_post" || c.R < -1 || c.R > 1 {
			t.Fatalf("bad correlation %+v", c)
		}
	}
	if !reflect.DeepEqual(gotOthers, []string{"kss_post", "sp_post", "pvt_avr"}) {
		t.Fatalf("correlation order: %v", gotOthers)
	}

	m := rep.Regression
	wantNames := []string{"const", "pvt_pre", "pvt_avr", "kss_post", "sp_post", "flight_hours"}
	var coefNames, vifNames []string
	for _, c := range m.Coefficients {
		coefNames = append(coefNames, c.Name)
		if !finite(c.Estimate) || !finite(c.StdErr) || c.PValue < 0 || c.PValue > 1 {
			t.Fatalf("bad coefficient %+v", c)
		}
	}
	for _, v := range rep.VIF {
		vifNames = append(vifNames, v.Name)
		if !finite(v.VIF) || v.VIF < 1-1e-9 {
			t.Fatalf("bad vif %+v", v)
		}
	}
	if !reflect.DeepEqual(coefNames, wantNames) || !reflect.DeepEqual(vifNames, wantNames) {
		t.Fatalf("design order mismatch: coef=%v vif=%v", coefNames, vifNames)
	}
	if !rep.VIF[0].Intercept {
		t.Fatalf("intercept row must be flagged")
	}
	if m.N != 40 || m.DFResid != 34 || m.DFModel != 5 {
		t.Fatalf("dof mismatch: n=%d resid=%v model=%v", m.N, m.DFResid, m.DFModel)
	}

	sel := rep.Selection
	if len(sel.Selected) == 0 || len(sel.Selected) > 5 {
		t.Fatalf("unexpected selection %v", sel.Selected)
	}
	for _, name := range sel.Selected {
		if name == "const" {
			t.Fatalf("intercept must never be a candidate")
		}
	}
	if len(sel.Rounds) > 6 {
		t.Fatalf("selection must terminate within len(candidates)+1 rounds, got %d", len(sel.Rounds))
	}
}

func TestRun_Deterministic(t *testing.T) {
	tbl := studyTable(t, 30, nil)
	a, err := Run(tbl, DefaultPlan(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := Run(tbl, DefaultPlan(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	a.RunID, b.RunID = "", ""
	a.Regression.Residuals, b.Regression.Residuals = nil, nil
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs on the same table differ")
	}
}

func TestRun_MissingColumns(t *testing.T) {
	tbl, err := dataset.FromColumns("x", []string{"pvt_pre", "kss_pre", "other"}, [][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}})
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	_, err = Run(tbl, DefaultPlan(), nil)
	var mc *dataset.MissingColumnsError
	if !errors.As(err, &mc) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	want := []string{"pvt_post", "kss_post", "sp_pre", "sp_post", "pvt_avr", "flight_hours"}
	if !reflect.DeepEqual(mc.Missing, want) {
		t.Fatalf("missing=%v want %v", mc.Missing, want)
	}
	if !strings.Contains(err.Error(), "missing columns: pvt_post") {
		t.Fatalf("message should name absent columns: %v", err)
	}
}

func TestRun_ListwiseMaskShared(t *testing.T) {
	tbl := studyTable(t, 40, func(cols [][]float64) {
		cols[7][3] = math.NaN()  // flight_hours
		cols[4][10] = math.NaN() // kss_post
		cols[5][20] = math.NaN() // sp_pre: not a regression column
	})
	rep, err := Run(tbl, DefaultPlan(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.ModelRows != 38 || rep.Regression.N != 38 {
		t.Fatalf("listwise mask: model rows %d, regression n %d, want 38", rep.ModelRows, rep.Regression.N)
	}
	// per-pair drop: the SP test loses only row 20, KSS only row 10
	if rep.Fixed[0].Result.N != 39 || rep.Fixed[1].Result.N != 39 {
		t.Fatalf("per-pair drop: kss n=%d sp n=%d", rep.Fixed[0].Result.N, rep.Fixed[1].Result.N)
	}
	if rep.Primary.Dropped != 0 || rep.Primary.Result.N != 40 {
		t.Fatalf("primary pair has no missing values, n=%d", rep.Primary.Result.N)
	}
	if len(rep.Warnings) == 0 {
		t.Fatalf("dropped rows should be reported as warnings")
	}
}

func TestRun_WarningsFollowPipelineOrder(t *testing.T) {
	tbl := studyTable(t, 40, func(cols [][]float64) {
		cols[1][5] = math.NaN()  // pvt_post: primary pair and regression response
		cols[3][10] = math.NaN() // kss_pre: fixed pair only
	})
	rep, err := Run(tbl, DefaultPlan(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Warnings) != 3 {
		t.Fatalf("warnings: %v", rep.Warnings)
	}
	for i, want := range []string{"PVT", "KSS", "regression"} {
		if !strings.Contains(rep.Warnings[i], want) {
			t.Fatalf("warning %d should mention %s: %v", i, want, rep.Warnings)
		}
	}
	if rep.Primary.ShapiroPre.N != 39 || rep.Primary.ShapiroPost.N != 39 {
		t.Fatalf("normality runs on retained pairs, n=%d/%d", rep.Primary.ShapiroPre.N, rep.Primary.ShapiroPost.N)
	}
	var normality string
	for _, line := range strings.Split(rep.Markdown(), "\n") {
		if strings.Contains(line, "normality") {
			normality = line
		}
	}
	if strings.Count(normality, "(n=39)") != 2 {
		t.Fatalf("normality line should state both sample sizes: %q", normality)
	}
}

func TestRun_ZeroVarianceIsStepError(t *testing.T) {
	tbl := studyTable(t, 30, func(cols [][]float64) {
		for i := range cols[6] {
			cols[6][i] = 4 // sp_post constant
		}
	})
	_, err := Run(tbl, DefaultPlan(), nil)
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if se.Step != StepCorrelations {
		t.Fatalf("expected failure in %q, got %q", StepCorrelations, se.Step)
	}
	if !errors.Is(err, stats.ErrZeroVariance) {
		t.Fatalf("expected ErrZeroVariance, got %v", err)
	}
}

func TestRun_FixedPairWithoutValidPairs(t *testing.T) {
	tbl := studyTable(t, 20, func(cols [][]float64) {
		for i := range cols[3] {
			cols[3][i] = math.NaN() // kss_pre
		}
	})
	_, err := Run(tbl, DefaultPlan(), nil)
	var se *StepError
	if !errors.As(err, &se) || se.Step != StepFixedPairs {
		t.Fatalf("expected fixed pair step error, got %v", err)
	}
	if !errors.Is(err, stats.ErrInsufficientData) || !strings.Contains(err.Error(), "KSS") {
		t.Fatalf("error should name the pair and be insufficient data: %v", err)
	}
}

func TestRun_CollinearPredictorsAreSingular(t *testing.T) {
	tbl := studyTable(t, 30, func(cols [][]float64) {
		for i := range cols[2] {
			cols[2][i] = 2 * cols[0][i] // pvt_avr = 2 * pvt_pre
		}
	})
	_, err := Run(tbl, DefaultPlan(), nil)
	var se *StepError
	if !errors.As(err, &se) || se.Step != StepRegression {
		t.Fatalf("expected regression step error, got %v", err)
	}
	if !errors.Is(err, stats.ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestPlan_ValidateAndColumns(t *testing.T) {
	p := DefaultPlan()
	if err := p.Validate(); err != nil {
		t.Fatalf("default plan invalid: %v", err)
	}
	// sp_post appears as a pair member and a correlation target but is listed once
	want := []string{"pvt_pre", "pvt_post", "kss_pre", "kss_post", "sp_pre", "sp_post", "pvt_avr", "flight_hours"}
	if got := p.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns()=%v want %v", got, want)
	}

	bad := DefaultPlan()
	bad.Alpha = 0
	bad.Predictors = append(bad.Predictors, "pvt_post")
	err := bad.Validate()
	if err == nil || !strings.Contains(err.Error(), "alpha") || !strings.Contains(err.Error(), "also the response") {
		t.Fatalf("expected alpha and response errors, got %v", err)
	}
}

func TestPlan_Normalize(t *testing.T) {
	p := Plan{Alpha: 0.05, Primary: Pair{Pre: " PVT Pre", Post: "PVT Post "}, Response: "PVT Post", Predictors: []string{"Flight Hours"}}
	n := p.Normalize()
	if n.Primary.Pre != "pvt_pre" || n.Primary.Post != "pvt_post" || n.Predictors[0] != "flight_hours" {
		t.Fatalf("normalize failed: %+v", n)
	}
	if p.Predictors[0] != "Flight Hours" {
		t.Fatalf("Normalize must not mutate the receiver")
	}
}

func TestRender_Formats(t *testing.T) {
	rep, err := Run(studyTable(t, 25, nil), DefaultPlan(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	text, err := Render(rep, FormatText)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	for _, want := range []string{"PVT pre vs post", "Shapiro-Wilk pvt_pre", "r(pvt_post, kss_post)", "OLS regression: pvt_post", "const (intercept)", "Selected features:"} {
		if !strings.Contains(string(text), want) {
			t.Fatalf("text output missing %q:\n%s", want, text)
		}
	}

	md, err := Render(rep, "markdown")
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	for _, want := range []string{"[DATASET SUMMARY]", "[PAIRED TESTS]", "[CORRELATIONS]", "[REGRESSION] pvt_post", "| const |", "[VIF]", "[FORWARD SELECTION]"} {
		if !strings.Contains(string(md), want) {
			t.Fatalf("markdown output missing %q:\n%s", want, md)
		}
	}

	js, err := Render(rep, FormatJSON)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(js, &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	for _, key := range []string{"run_id", "paired_comparison", "fixed_paired_tests", "correlations", "regression", "vif", "forward_selection"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("json missing key %q", key)
		}
	}

	if _, err := Render(rep, "html"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestRender_CorrelationThreeDecimals(t *testing.T) {
	rep := &Report{Name: "x", Correlations: []Correlation{{Reference: "a", Other: "b", CorrelationResult: stats.CorrelationResult{R: 0.123456, N: 10}}}}
	if !strings.Contains(rep.Text(), "r(a, b) = 0.123") || !strings.Contains(rep.Markdown(), "r=0.123 ") {
		t.Fatalf("correlations must render with 3 decimals")
	}
}
