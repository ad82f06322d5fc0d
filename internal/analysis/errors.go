package analysis

import "fmt"

// Pipeline step names used in StepError and logs.
const (
	StepLoad         = "load"
	StepDescribe     = "describe"
	StepPrimary      = "paired comparison"
	StepFixedPairs   = "fixed paired tests"
	StepCorrelations = "correlations"
	StepRegression   = "regression"
	StepVIF          = "vif"
	StepSelection    = "forward selection"
)

// StepError reports which pipeline step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
