package models

import (
	"errors"
	"fmt"

	mat_ "github.com/aouyang1/go-pricecast/mat"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidOrder     = errors.New("autoregressive order must be at least 1")
	ErrNegativeDiff     = errors.New("negative differencing order")
	ErrInsufficientLags = errors.New("not enough lagged values for the autoregressive order")
)

// AutoRegressionOptions configures an AR(P) model fit on the D-th differences of a series
type AutoRegressionOptions struct {
	P            int  `json:"p"`
	D            int  `json:"d"`
	FitIntercept bool `json:"fit_intercept"`
}

// Validate runs basic validation on autoregression options
func (a *AutoRegressionOptions) Validate() (*AutoRegressionOptions, error) {
	if a == nil {
		a = NewDefaultAutoRegressionOptions()
	}
	if a.P < 1 {
		return nil, ErrInvalidOrder
	}
	if a.D < 0 {
		return nil, ErrNegativeDiff
	}
	return a, nil
}

func NewDefaultAutoRegressionOptions() *AutoRegressionOptions {
	return &AutoRegressionOptions{
		P:            5,
		D:            1,
		FitIntercept: true,
	}
}

// AutoRegression treats each design matrix row as a chronological history of the series, oldest
// first, and the target as the next value. The rows are differenced D times, the last P
// differences regress the next difference with OLS and predictions are integrated back to the
// original level.
type AutoRegression struct {
	opt *AutoRegressionOptions
	ols *OLSRegression
}

func NewAutoRegression(opt *AutoRegressionOptions) (*AutoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	ols, err := NewOLSRegression(&OLSOptions{FitIntercept: opt.FitIntercept})
	if err != nil {
		return nil, err
	}
	return &AutoRegression{opt: opt, ols: ols}, nil
}

// MinLags is the smallest history length a row must carry
func (a *AutoRegression) MinLags() int {
	return a.opt.P + a.opt.D
}

func (a *AutoRegression) Fit(x, y mat.Matrix) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	if n < a.MinLags() {
		return fmt.Errorf("rows have %d lags, need %d, %w", n, a.MinLags(), ErrInsufficientLags)
	}
	if m == 0 {
		return ErrNoObservations
	}

	features := make([][]float64, m)
	target := make([]float64, m)
	history := make([]float64, n+1)
	for i := 0; i < m; i++ {
		mat.Row(history[:n], i, x)
		history[n] = y.At(i, 0)

		diffs := difference(history, a.opt.D)
		last := len(diffs) - 1
		features[i] = diffs[last-a.opt.P : last]
		target[i] = diffs[last]
	}

	xMx, err := mat_.NewDenseFromArray(features)
	if err != nil {
		return err
	}
	return a.ols.Fit(xMx, mat_.NewColumn(target))
}

func (a *AutoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if !a.ols.fitted {
		return nil, ErrNotFitted
	}
	m, n := x.Dims()
	if n < a.MinLags() {
		return nil, fmt.Errorf("rows have %d lags, need %d, %w", n, a.MinLags(), ErrInsufficientLags)
	}

	features := make([][]float64, m)
	levels := make([][]float64, m)
	for i := 0; i < m; i++ {
		history := mat.Row(nil, i, x)
		diffs := difference(history, a.opt.D)
		features[i] = diffs[len(diffs)-a.opt.P:]
		levels[i] = lastLevels(history, a.opt.D)
	}

	xMx, err := mat_.NewDenseFromArray(features)
	if err != nil {
		return nil, err
	}
	next, err := a.ols.Predict(xMx)
	if err != nil {
		return nil, err
	}

	for i := range next {
		// the next value at each differencing level is the last value plus the next higher
		// order difference
		for d := a.opt.D - 1; d >= 0; d-- {
			next[i] += levels[i][d]
		}
	}
	return next, nil
}

func (a *AutoRegression) Score(x, y mat.Matrix) (float64, error) {
	return predictScore(a, x, y)
}

// Intercept returns the intercept of the differenced regression
func (a *AutoRegression) Intercept() float64 {
	return a.ols.Intercept()
}

// Coef returns the differenced lag weights, oldest lag first
func (a *AutoRegression) Coef() []float64 {
	return a.ols.Coef()
}

// difference applies d rounds of first differencing
func difference(y []float64, d int) []float64 {
	res := make([]float64, len(y))
	copy(res, y)
	for k := 0; k < d; k++ {
		for i := 0; i < len(res)-1; i++ {
			res[i] = res[i+1] - res[i]
		}
		res = res[:len(res)-1]
	}
	return res
}

// lastLevels returns the last value of the series at each differencing order below d
func lastLevels(y []float64, d int) []float64 {
	levels := make([]float64, d)
	curr := y
	for k := 0; k < d; k++ {
		levels[k] = curr[len(curr)-1]
		curr = difference(curr, 1)
	}
	return levels
}
