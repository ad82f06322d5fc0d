// Package stats implements the hypothesis tests and regression routines used by
// the fatigue analysis: Shapiro-Wilk, paired t, Wilcoxon signed-rank, Pearson
// correlation, ordinary least squares with a conventional summary, variance
// inflation factors and forward stepwise selection.
//
// Every routine rejects degenerate input with one of the sentinel errors below
// instead of returning NaN or Inf.
package stats

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData indicates too few observations for the requested computation.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrZeroVariance indicates a sample (or residual) with no variability.
	ErrZeroVariance = errors.New("zero variance")
	// ErrPerfectFit indicates a response reproduced exactly by the regressors.
	ErrPerfectFit = fmt.Errorf("residual variance is zero (perfect fit): %w", ErrZeroVariance)
	// ErrSingular indicates a rank-deficient design matrix.
	ErrSingular = errors.New("singular design matrix")
	// ErrDivisionByZero indicates a ratio whose denominator vanished, e.g. VIF with R² = 1.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrLengthMismatch indicates paired inputs of different lengths.
	ErrLengthMismatch = errors.New("length mismatch")
)
