package models

import (
	"errors"
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-pricecast/mat"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultLambda     = 1.0
	DefaultIterations = 1000
	DefaultTolerance  = 1e-4
)

var (
	ErrNegativeLambda     = errors.New("negative lambda")
	ErrNegativeIterations = errors.New("negative iterations")
	ErrNegativeTolerance  = errors.New("negative tolerance")
	ErrNoLambdas          = errors.New("no lambdas provided to fit with")
)

// LassoOptions configures a single lambda lasso fit
type LassoOptions struct {
	// Lambda is the L1 penalty. 0 converges to ordinary least squares.
	Lambda float64

	// Iterations caps the number of full coordinate sweeps
	Iterations int

	// Tolerance stops the sweeps once the largest coefficient update falls below
	// Tolerance times the largest coefficient
	Tolerance float64

	// FitIntercept prepends a constant column. The intercept is penalized like any other
	// coefficient.
	FitIntercept bool
}

// Validate runs basic validation on Lasso options
func (l *LassoOptions) Validate() (*LassoOptions, error) {
	if l == nil {
		l = NewDefaultLassoOptions()
	}
	if err := validateDescent(l.Lambda, l.Iterations, l.Tolerance); err != nil {
		return nil, err
	}
	cp := *l
	return &cp, nil
}

// NewDefaultLassoOptions returns a default set of Lasso Regression options
func NewDefaultLassoOptions() *LassoOptions {
	return &LassoOptions{
		Lambda:       DefaultLambda,
		Iterations:   DefaultIterations,
		Tolerance:    DefaultTolerance,
		FitIntercept: true,
	}
}

func validateDescent(lambda float64, iterations int, tolerance float64) error {
	if lambda < 0 {
		return ErrNegativeLambda
	}
	if iterations < 0 {
		return ErrNegativeIterations
	}
	if tolerance < 0 {
		return ErrNegativeTolerance
	}
	return nil
}

// descentSystem is the column-major form of a design matrix solved by coordinate descent. It is
// read only once built, so one system serves every lambda of a sweep concurrently.
type descentSystem struct {
	cols [][]float64
	// squared norm of each column
	norms []float64
	y     []float64
}

func newDescentSystem(x, y mat.Matrix) *descentSystem {
	_, n := x.Dims()
	s := &descentSystem{
		cols:  make([][]float64, n),
		norms: make([]float64, n),
		y:     mat.Col(nil, 0, y),
	}
	for j := 0; j < n; j++ {
		s.cols[j] = mat.Col(nil, j, x)
		s.norms[j] = floats.Dot(s.cols[j], s.cols[j])
	}
	return s
}

// solve runs cyclic coordinate descent for lambda and returns the coefficients together with the
// in-sample coefficient of determination
func (s *descentSystem) solve(lambda float64, iterations int, tolerance float64) ([]float64, float64) {
	beta := make([]float64, len(s.cols))
	residual := make([]float64, len(s.y))
	copy(residual, s.y)

	for i := 0; i < iterations; i++ {
		var maxCoef, maxUpdate float64
		for j, col := range s.cols {
			// constant zero columns carry no signal
			if s.norms[j] == 0 {
				continue
			}
			// coefficients zeroed by the first sweep stay out of the active set
			if i != 0 && beta[j] == 0 {
				continue
			}
			next := softThreshold(floats.Dot(col, residual)/s.norms[j]+beta[j], lambda/s.norms[j])
			if delta := next - beta[j]; delta != 0 {
				floats.AddScaled(residual, -delta, col)
				maxUpdate = math.Max(maxUpdate, math.Abs(delta))
			}
			maxCoef = math.Max(maxCoef, math.Abs(next))
			beta[j] = next
		}
		if maxUpdate == 0 || maxUpdate < tolerance*maxCoef {
			break
		}
	}

	fitted := make([]float64, len(s.y))
	floats.SubTo(fitted, s.y, residual)
	score := stat.RSquaredFrom(fitted, s.y, nil)
	if math.IsNaN(score) {
		score = 1.0
	}
	return beta, score
}

func softThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}

// lassoDesign checks the training inputs and prepends the intercept column when requested
func lassoDesign(x, y mat.Matrix, fitIntercept bool) (mat.Matrix, error) {
	if x == nil {
		return nil, ErrNoTrainingMatrix
	}
	if y == nil {
		return nil, ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return nil, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	if fitIntercept {
		x = mat_.WithIntercept(x)
	}
	return x, nil
}

// splitIntercept separates the leading intercept coefficient from the feature coefficients
func splitIntercept(beta []float64, fitIntercept bool) (float64, []float64) {
	if fitIntercept {
		return beta[0], beta[1:]
	}
	return 0, beta
}

func linearPredict(x mat.Matrix, intercept float64, coef []float64) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(coef), ErrFeatureLenMismatch)
	}
	var res mat.VecDense
	res.MulVec(x, mat.NewVecDense(n, coef))
	out := make([]float64, m)
	for i := range out {
		out[i] = res.AtVec(i) + intercept
	}
	return out, nil
}

// LassoRegression computes the lasso regression using coordinate descent. lambda = 0 converges to OLS
type LassoRegression struct {
	opt *LassoOptions

	coef      []float64
	intercept float64
	fitted    bool
}

// NewLassoRegression initializes a Lasso model ready for fitting
func NewLassoRegression(opt *LassoOptions) (*LassoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoRegression{opt: opt}, nil
}

// Fit the model according to the given training data
func (l *LassoRegression) Fit(x, y mat.Matrix) error {
	if l.opt == nil {
		return ErrNoOptions
	}
	design, err := lassoDesign(x, y, l.opt.FitIntercept)
	if err != nil {
		return err
	}
	beta, _ := newDescentSystem(design, y).solve(l.opt.Lambda, l.opt.Iterations, l.opt.Tolerance)
	l.intercept, l.coef = splitIntercept(beta, l.opt.FitIntercept)
	l.fitted = true
	return nil
}

// Predict using the Lasso model
func (l *LassoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if !l.fitted {
		return nil, ErrNotFitted
	}
	return linearPredict(x, l.intercept, l.coef)
}

// Score computes the coefficient of determination of the prediction
func (l *LassoRegression) Score(x, y mat.Matrix) (float64, error) {
	return predictScore(l, x, y)
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (l *LassoRegression) Intercept() float64 {
	return l.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (l *LassoRegression) Coef() []float64 {
	return l.coef
}

// LassoAutoOptions configures a lasso fit that sweeps Lambdas and keeps the best in-sample score
type LassoAutoOptions struct {
	// Lambdas are the candidate L1 penalties
	Lambdas []float64

	Iterations int
	Tolerance  float64

	FitIntercept bool

	// Parallelization bounds how many lambdas are solved at once. 0 solves them all at once.
	Parallelization int
}

// Validate runs basic validation on Lasso Auto options. Defaults are filled on a copy.
func (l *LassoAutoOptions) Validate() (*LassoAutoOptions, error) {
	if l == nil {
		l = NewDefaultLassoAutoOptions()
	}
	if len(l.Lambdas) == 0 {
		return nil, ErrNoLambdas
	}
	for _, lambda := range l.Lambdas {
		if err := validateDescent(lambda, l.Iterations, l.Tolerance); err != nil {
			return nil, err
		}
	}
	cp := *l
	if cp.Parallelization <= 0 || cp.Parallelization > len(cp.Lambdas) {
		cp.Parallelization = len(cp.Lambdas)
	}
	return &cp, nil
}

// NewDefaultLassoAutoOptions returns a default set of Lasso Auto Regression options
func NewDefaultLassoAutoOptions() *LassoAutoOptions {
	return &LassoAutoOptions{
		Lambdas:         []float64{DefaultLambda},
		Iterations:      DefaultIterations,
		Tolerance:       DefaultTolerance,
		FitIntercept:    true,
		Parallelization: 1,
	}
}

// LassoAutoRegression picks the lambda with the highest in-sample R2, preferring the smaller lambda
// on ties
type LassoAutoRegression struct {
	opt *LassoAutoOptions

	coef      []float64
	intercept float64
	lambda    float64
	fitted    bool
}

// NewLassoAutoRegression initializes a Lasso model ready for fitting using automated lambda selection
func NewLassoAutoRegression(opt *LassoAutoOptions) (*LassoAutoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoAutoRegression{opt: opt}, nil
}

type lassoCandidate struct {
	beta  []float64
	score float64
}

// Fit the model according to the given training data
func (l *LassoAutoRegression) Fit(x, y mat.Matrix) error {
	if l.opt == nil {
		return ErrNoOptions
	}
	design, err := lassoDesign(x, y, l.opt.FitIntercept)
	if err != nil {
		return err
	}
	sys := newDescentSystem(design, y)

	candidates := make([]lassoCandidate, len(l.opt.Lambdas))
	var g errgroup.Group
	g.SetLimit(l.opt.Parallelization)
	for i, lambda := range l.opt.Lambdas {
		g.Go(func() error {
			beta, score := sys.solve(lambda, l.opt.Iterations, l.opt.Tolerance)
			candidates[i] = lassoCandidate{beta: beta, score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	best := -1
	for i, c := range candidates {
		if best == -1 || c.score > candidates[best].score ||
			(c.score == candidates[best].score && l.opt.Lambdas[i] < l.opt.Lambdas[best]) {
			best = i
		}
	}
	l.intercept, l.coef = splitIntercept(candidates[best].beta, l.opt.FitIntercept)
	l.lambda = l.opt.Lambdas[best]
	l.fitted = true
	return nil
}

// Predict using the Lasso model
func (l *LassoAutoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if !l.fitted {
		return nil, ErrNotFitted
	}
	return linearPredict(x, l.intercept, l.coef)
}

// Score computes the coefficient of determination of the prediction
func (l *LassoAutoRegression) Score(x, y mat.Matrix) (float64, error) {
	return predictScore(l, x, y)
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (l *LassoAutoRegression) Intercept() float64 {
	if l == nil {
		return 0.0
	}
	return l.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (l *LassoAutoRegression) Coef() []float64 {
	if l == nil {
		return nil
	}
	return l.coef
}

// Lambda returns the regularization parameter of the best fit
func (l *LassoAutoRegression) Lambda() float64 {
	if l == nil {
		return 0.0
	}
	return l.lambda
}
