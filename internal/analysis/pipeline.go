package analysis

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/fatigue-cli/internal/dataset"
	"github.com/KaramelBytes/fatigue-cli/internal/stats"
)

// PairedComparison is the normality-gated pre/post comparison.
type PairedComparison struct {
	Pair        Pair                `json:"pair"`
	ShapiroPre  stats.ShapiroResult `json:"shapiro_pre"`
	ShapiroPost stats.ShapiroResult `json:"shapiro_post"`
	// Normal is true when both Shapiro-Wilk p-values exceed alpha.
	Normal  bool             `json:"normal"`
	Result  stats.TestResult `json:"result"`
	Dropped int              `json:"dropped_pairs"`
}

// FixedPairTest is an ungated paired t-test.
type FixedPairTest struct {
	Pair    Pair             `json:"pair"`
	Result  stats.TestResult `json:"result"`
	Dropped int              `json:"dropped_pairs"`
}

// Correlation is one reference/other Pearson coefficient.
type Correlation struct {
	Reference string `json:"reference"`
	Other     string `json:"other"`
	stats.CorrelationResult
	Dropped int `json:"dropped_pairs"`
}

// Report is the structured outcome of one pipeline run, in pipeline order.
type Report struct {
	RunID        string                  `json:"run_id"`
	Name         string                  `json:"name"`
	Sheet        string                  `json:"sheet,omitempty"`
	Rows         int                     `json:"rows"`
	Alpha        float64                 `json:"alpha"`
	Descriptives []dataset.ColumnSummary `json:"descriptives"`
	Primary      *PairedComparison       `json:"paired_comparison"`
	Fixed        []FixedPairTest         `json:"fixed_paired_tests"`
	Correlations []Correlation           `json:"correlations"`
	// ModelRows is the size of the listwise mask shared by regression, VIF and selection.
	ModelRows  int              `json:"model_rows"`
	Regression *stats.OLSResult `json:"regression"`
	VIF        []stats.VIFRow   `json:"vif"`
	Selection  *stats.Selection `json:"forward_selection"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Run executes the fixed pipeline on t. Every column the plan names is validated
// before any computation; the first failing step aborts the run with a *StepError.
func Run(t *dataset.Table, plan Plan, log *zap.SugaredLogger) (*Report, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	plan = plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if err := t.Require(plan.Columns()...); err != nil {
		return nil, err
	}
	rep := &Report{
		RunID:    uuid.NewString(),
		Name:     t.Name,
		Sheet:    t.Sheet,
		Rows:     t.Rows,
		Alpha:    plan.Alpha,
		Warnings: append([]string(nil), t.Warnings...),
	}
	log = log.With("run_id", rep.RunID)
	log.Infow("analysis started", "name", t.Name, "rows", t.Rows, "columns", len(t.Columns))

	desc, err := t.Describe(plan.Columns()...)
	if err != nil {
		return nil, stepErr(StepDescribe, err)
	}
	rep.Descriptives = desc

	if rep.Primary, err = comparePrimary(t, plan.Primary, plan.Alpha, log); err != nil {
		return nil, stepErr(StepPrimary, err)
	}
	if rep.Primary.Dropped > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: dropped %d incomplete pair(s)", pairLabel(plan.Primary), rep.Primary.Dropped))
	}
	for _, fp := range plan.FixedPairs {
		ft, err := compareFixed(t, fp)
		if err != nil {
			return nil, stepErr(StepFixedPairs, err)
		}
		if ft.Dropped > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: dropped %d incomplete pair(s)", pairLabel(fp), ft.Dropped))
		}
		rep.Fixed = append(rep.Fixed, ft)
	}
	log.Debugw("paired tests done", "primary", rep.Primary.Result.Test, "fixed", len(rep.Fixed))

	for _, other := range plan.CorrWith {
		c, err := correlate(t, plan.CorrReference, other)
		if err != nil {
			return nil, stepErr(StepCorrelations, err)
		}
		rep.Correlations = append(rep.Correlations, c)
	}

	// One listwise mask for every step that touches the design matrix.
	modelCols := append([]string{plan.Response}, plan.Predictors...)
	rows, err := t.CompleteRows(modelCols...)
	if err != nil {
		return nil, stepErr(StepRegression, err)
	}
	rep.ModelRows = len(rows)
	if dropped := t.Rows - len(rows); dropped > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("regression: dropped %d row(s) with missing values", dropped))
	}
	sub, err := t.Subset(rows, modelCols...)
	if err != nil {
		return nil, stepErr(StepRegression, err)
	}
	y, preds := sub[0], sub[1:]
	design, err := stats.NewDesign(plan.Predictors, preds, true)
	if err != nil {
		return nil, stepErr(StepRegression, err)
	}
	if rep.Regression, err = stats.FitOLS(plan.Response, y, design); err != nil {
		return nil, stepErr(StepRegression, err)
	}
	log.Debugw("regression fitted", "n", rep.Regression.N, "r2", rep.Regression.RSquared)

	if rep.VIF, err = stats.VIF(design); err != nil {
		return nil, stepErr(StepVIF, err)
	}
	if rep.Selection, err = stats.ForwardSelect(plan.Predictors, preds, y, plan.Alpha); err != nil {
		return nil, stepErr(StepSelection, err)
	}
	log.Infow("analysis finished", "selected", rep.Selection.Selected)
	return rep, nil
}

func pairColumns(t *dataset.Table, p Pair) ([]float64, []float64, int, error) {
	pre, err := t.Column(p.Pre)
	if err != nil {
		return nil, nil, 0, err
	}
	post, err := t.Column(p.Post)
	if err != nil {
		return nil, nil, 0, err
	}
	return stats.DropMissingPairs(pre, post)
}

func comparePrimary(t *dataset.Table, p Pair, alpha float64, log *zap.SugaredLogger) (*PairedComparison, error) {
	pre, post, dropped, err := pairColumns(t, p)
	if err != nil {
		return nil, err
	}
	pc := &PairedComparison{Pair: p, Dropped: dropped}
	if pc.ShapiroPre, err = stats.ShapiroWilk(pre); err != nil {
		return nil, fmt.Errorf("%s normality: %w", p.Pre, err)
	}
	if pc.ShapiroPost, err = stats.ShapiroWilk(post); err != nil {
		return nil, fmt.Errorf("%s normality: %w", p.Post, err)
	}
	pc.Normal = pc.ShapiroPre.PValue > alpha && pc.ShapiroPost.PValue > alpha
	if pc.Normal {
		pc.Result, err = stats.PairedTTest(pre, post)
	} else {
		pc.Result, err = stats.WilcoxonSignedRank(pre, post)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pairLabel(p), err)
	}
	log.Debugw("normality gate", "pair", pairLabel(p),
		"shapiro_pre_p", pc.ShapiroPre.PValue, "shapiro_post_p", pc.ShapiroPost.PValue, "test", pc.Result.Test)
	return pc, nil
}

func compareFixed(t *dataset.Table, p Pair) (FixedPairTest, error) {
	pre, post, dropped, err := pairColumns(t, p)
	if err != nil {
		return FixedPairTest{}, err
	}
	res, err := stats.PairedTTest(pre, post)
	if err != nil {
		return FixedPairTest{}, fmt.Errorf("%s: %w", pairLabel(p), err)
	}
	return FixedPairTest{Pair: p, Result: res, Dropped: dropped}, nil
}

func correlate(t *dataset.Table, ref, other string) (Correlation, error) {
	x, err := t.Column(ref)
	if err != nil {
		return Correlation{}, err
	}
	y, err := t.Column(other)
	if err != nil {
		return Correlation{}, err
	}
	xs, ys, dropped, err := stats.DropMissingPairs(x, y)
	if err != nil {
		return Correlation{}, err
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil {
		return Correlation{}, fmt.Errorf("%s vs %s: %w", ref, other, err)
	}
	if math.IsNaN(r.R) {
		return Correlation{}, fmt.Errorf("%s vs %s: %w", ref, other, stats.ErrZeroVariance)
	}
	return Correlation{Reference: ref, Other: other, CorrelationResult: r, Dropped: dropped}, nil
}

func pairLabel(p Pair) string {
	if p.Label != "" {
		return p.Label
	}
	return p.Pre + "/" + p.Post
}
