package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/fatigue-cli/internal/dataset"
	"github.com/KaramelBytes/fatigue-cli/internal/stats"
)

// Pair names a pre/post column pair.
type Pair struct {
	Label string `json:"label"`
	Pre   string `json:"pre"`
	Post  string `json:"post"`
}

// Plan assigns dataset columns to pipeline roles.
type Plan struct {
	// Alpha gates the normality check and is the forward-selection entry threshold.
	Alpha float64 `json:"alpha"`
	// Primary is compared with a normality-gated paired test.
	Primary Pair `json:"primary"`
	// FixedPairs are always compared with a paired t-test.
	FixedPairs []Pair `json:"fixed_pairs"`
	// CorrReference is correlated with every column in CorrWith.
	CorrReference string   `json:"corr_reference"`
	CorrWith      []string `json:"corr_with"`
	// Response is regressed on Predictors (plus intercept).
	Response   string   `json:"response"`
	Predictors []string `json:"predictors"`
}

// DefaultPlan reproduces the fatigue study layout.
func DefaultPlan() Plan {
	return Plan{
		Alpha:   stats.DefaultEntryThreshold,
		Primary: Pair{Label: "PVT", Pre: "pvt_pre", Post: "pvt_post"},
		FixedPairs: []Pair{
			{Label: "KSS", Pre: "kss_pre", Post: "kss_post"},
			{Label: "SP", Pre: "sp_pre", Post: "sp_post"},
		},
		CorrReference: "pvt_post",
		CorrWith:      []string{"kss_post", "sp_post", "pvt_avr"},
		Response:      "pvt_post",
		Predictors:    []string{"pvt_pre", "pvt_avr", "kss_post", "sp_post", "flight_hours"},
	}
}

// Normalize applies the dataset column-name convention to every role.
func (p Plan) Normalize() Plan {
	norm := func(p Pair) Pair {
		return Pair{Label: p.Label, Pre: dataset.NormalizeName(p.Pre), Post: dataset.NormalizeName(p.Post)}
	}
	out := p
	out.Primary = norm(p.Primary)
	out.FixedPairs = make([]Pair, len(p.FixedPairs))
	for i, fp := range p.FixedPairs {
		out.FixedPairs[i] = norm(fp)
	}
	out.CorrReference = dataset.NormalizeName(p.CorrReference)
	out.CorrWith = normalizeAll(p.CorrWith)
	out.Response = dataset.NormalizeName(p.Response)
	out.Predictors = normalizeAll(p.Predictors)
	return out
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = dataset.NormalizeName(s)
	}
	return out
}

// Validate checks the plan is internally consistent.
func (p Plan) Validate() error {
	var errs []error
	if !(p.Alpha > 0 && p.Alpha < 1) {
		errs = append(errs, fmt.Errorf("alpha must be in (0, 1), got %g", p.Alpha))
	}
	if p.Primary.Pre == "" || p.Primary.Post == "" {
		errs = append(errs, errors.New("primary pair needs both pre and post columns"))
	}
	for i, fp := range p.FixedPairs {
		if fp.Pre == "" || fp.Post == "" {
			errs = append(errs, fmt.Errorf("fixed pair %d needs both pre and post columns", i+1))
		}
	}
	if p.Response == "" {
		errs = append(errs, errors.New("response column is required"))
	}
	if len(p.Predictors) == 0 {
		errs = append(errs, errors.New("at least one predictor is required"))
	}
	seen := map[string]bool{}
	for _, pr := range p.Predictors {
		if pr == p.Response {
			errs = append(errs, fmt.Errorf("predictor %s is also the response", pr))
		}
		if seen[pr] {
			errs = append(errs, fmt.Errorf("predictor %s listed twice", pr))
		}
		seen[pr] = true
	}
	if len(p.CorrWith) > 0 && p.CorrReference == "" {
		errs = append(errs, errors.New("correlations need a reference column"))
	}
	return errors.Join(errs...)
}

// Columns lists every column the plan touches, de-duplicated, in pipeline order.
func (p Plan) Columns() []string {
	var out []string
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, n := range names {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	add(p.Primary.Pre, p.Primary.Post)
	for _, fp := range p.FixedPairs {
		add(fp.Pre, fp.Post)
	}
	add(p.CorrReference)
	add(p.CorrWith...)
	add(p.Response)
	add(p.Predictors...)
	return out
}
