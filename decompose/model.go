// Package decompose fits a structural time series model: a piecewise linear trend with
// changepoints, Fourier seasonality and external regressors, solved jointly with lasso
// regression. Rows carry no timestamps of their own so they are placed on a synthetic regular
// grid. Training rows start at Options.Start and predicted rows continue the grid after the
// training window.
package decompose

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	mat_ "github.com/aouyang1/go-pricecast/mat"
	"github.com/aouyang1/go-pricecast/models"
	"github.com/aouyang1/go-pricecast/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrNoComponents = errors.New("no trend, seasonality or regressor columns to fit")

type changepoint struct {
	Name string
	T    time.Time
}

// Components splits a prediction into its additive parts. Trend includes the intercept.
type Components struct {
	Trend       []float64
	Seasonality []float64
	Regression  []float64
}

// Model is a decomposition regression implementing models.Model
type Model struct {
	opt *Options

	trainStart   time.Time
	trainEnd     time.Time
	nTrain       int
	nRegressors  int
	changepoints []changepoint
	seasonality  []SeasonalityConfig

	labels    []Label
	intercept float64
	coef      []float64
	fitted    bool

	residual []float64
	outliers []int
}

func New(opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Model{opt: opt}, nil
}

// times places n rows on the synthetic grid beginning offset intervals after the start
func (m *Model) times(offset, n int) []time.Time {
	t := make([]time.Time, n)
	for i := range t {
		t[i] = m.opt.Start.Add(m.opt.Interval * time.Duration(offset+i))
	}
	return t
}

func (m *Model) generateChangepoints() []changepoint {
	n := m.opt.NumChangepoints
	window := m.trainEnd.Sub(m.trainStart)
	chpts := make([]changepoint, 0, n)
	for i := 0; i < n; i++ {
		offset := time.Duration(window.Nanoseconds() / int64(n+1) * int64(i+1))
		chpts = append(chpts, changepoint{
			Name: "auto_" + strconv.Itoa(i),
			T:    m.trainStart.Add(offset),
		})
	}
	return chpts
}

// activeSeasonality drops configs whose period is longer than the training window
func (m *Model) activeSeasonality() []SeasonalityConfig {
	window := m.trainEnd.Sub(m.trainStart)
	var res []SeasonalityConfig
	for _, s := range m.opt.Seasonality {
		if s.Period > window {
			continue
		}
		res = append(res, s)
	}
	return res
}

// design generates the labeled columns for each timestamp. regressors holds one row per
// timestamp.
func (m *Model) design(t []time.Time, regressors [][]float64) ([]Label, [][]float64) {
	var labels []Label
	var cols [][]float64

	if m.opt.Growth {
		span := m.trainEnd.Sub(m.trainStart).Seconds()
		growth := make([]float64, len(t))
		for i, tPnt := range t {
			growth[i] = tPnt.Sub(m.trainStart).Seconds() / span
		}
		labels = append(labels, NewGrowth(GrowthLinear))
		cols = append(cols, growth)
	}

	for _, chpt := range m.changepoints {
		delta := m.trainEnd.Sub(chpt.T).Seconds()
		bias := make([]float64, len(t))
		slope := make([]float64, len(t))
		for i, tPnt := range t {
			if tPnt.Before(chpt.T) {
				continue
			}
			bias[i] = 1.0
			slope[i] = tPnt.Sub(chpt.T).Seconds() / delta
		}
		labels = append(labels,
			NewChangepoint(chpt.Name, ChangepointCompBias),
			NewChangepoint(chpt.Name, ChangepointCompSlope),
		)
		cols = append(cols, bias, slope)
	}

	for _, seas := range m.seasonality {
		period := seas.Period.Seconds()
		phase := make([]float64, len(t))
		for i, tPnt := range t {
			phase[i] = math.Mod(float64(tPnt.Unix()), period)
		}
		for order := 1; order <= seas.Orders; order++ {
			sinFeat, cosFeat := fourierComponent(phase, order, period)
			labels = append(labels,
				NewSeasonality(seas.Name, FourierCompSin, order),
				NewSeasonality(seas.Name, FourierCompCos, order),
			)
			cols = append(cols, sinFeat, cosFeat)
		}
	}

	for j := 0; j < m.nRegressors; j++ {
		reg := make([]float64, len(t))
		for i := range t {
			reg[i] = regressors[i][j]
		}
		labels = append(labels, NewRegressor(j))
		cols = append(cols, reg)
	}

	rows := make([][]float64, len(t))
	for i := range rows {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		rows[i] = row
	}
	return labels, rows
}

func fourierComponent(phase []float64, order int, period float64) ([]float64, []float64) {
	omega := 2.0 * math.Pi * float64(order) / period
	sinFeat := make([]float64, len(phase))
	cosFeat := make([]float64, len(phase))
	for i, p := range phase {
		rad := omega * p
		sinFeat[i] = math.Sin(rad)
		cosFeat[i] = math.Cos(rad)
	}
	return sinFeat, cosFeat
}

// Fit places the rows of x on the synthetic grid and fits trend, seasonality and x as regressors
// against y. Rows flagged as outliers are dropped and the model refit.
func (m *Model) Fit(x, y mat.Matrix) error {
	if m.opt == nil {
		return models.ErrNoOptions
	}
	if x == nil {
		return models.ErrNoTrainingMatrix
	}
	if y == nil {
		return models.ErrNoTargetMatrix
	}
	rows, nReg := x.Dims()
	ym, _ := y.Dims()
	if ym != rows {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", rows, ym, models.ErrTargetLenMismatch)
	}
	if rows < 2 {
		return ErrInsufficientTrainingData
	}

	m.fitted = false
	m.nTrain = rows
	m.nRegressors = nReg
	t := m.times(0, rows)
	m.trainStart, m.trainEnd = t[0], t[rows-1]
	m.changepoints = m.generateChangepoints()
	m.seasonality = m.activeSeasonality()

	labels, design := m.design(t, mat_.ToArray(x))
	if len(labels) == 0 {
		return ErrNoComponents
	}
	m.labels = labels
	target := mat.Col(nil, 0, y)

	numPasses := 0
	if m.opt.Outlier != nil {
		numPasses = m.opt.Outlier.NumPasses
	}

	removed := make([]bool, rows)
	var residual []float64
	for pass := 0; pass <= numPasses; pass++ {
		if err := m.fitRows(design, target, removed); err != nil {
			return err
		}

		predicted, err := m.infer(design)
		if err != nil {
			return err
		}
		residual = make([]float64, rows)
		for i := range residual {
			if removed[i] {
				residual[i] = math.NaN()
				continue
			}
			residual[i] = target[i] - predicted[i]
		}

		if m.opt.Outlier == nil {
			break
		}
		outlierIdxs := stats.DetectOutliers(
			residual,
			m.opt.Outlier.LowerPercentile,
			m.opt.Outlier.UpperPercentile,
			m.opt.Outlier.TukeyFactor,
		)
		// no more outliers detected so break early
		if len(outlierIdxs) == 0 || remaining(removed)-len(outlierIdxs) < 2 {
			break
		}
		for _, idx := range outlierIdxs {
			removed[idx] = true
		}
	}

	m.residual = residual
	m.outliers = m.outliers[:0]
	for i, r := range removed {
		if r {
			m.outliers = append(m.outliers, i)
		}
	}
	return nil
}

func remaining(removed []bool) int {
	var n int
	for _, r := range removed {
		if !r {
			n++
		}
	}
	return n
}

func (m *Model) fitRows(design [][]float64, target []float64, removed []bool) error {
	xRows := make([][]float64, 0, len(design))
	yRows := make([]float64, 0, len(target))
	for i := range design {
		if removed[i] {
			continue
		}
		xRows = append(xRows, design[i])
		yRows = append(yRows, target[i])
	}
	xMx, err := mat_.NewDenseFromArray(xRows)
	if err != nil {
		return err
	}

	lasso, err := models.NewLassoAutoRegression(m.opt.lassoOptions())
	if err != nil {
		return err
	}
	if err := lasso.Fit(xMx, mat_.NewColumn(yRows)); err != nil {
		return fmt.Errorf("unable to fit decomposition, %w", err)
	}
	m.intercept = lasso.Intercept()
	m.coef = lasso.Coef()
	m.fitted = true
	return nil
}

func (m *Model) infer(design [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, models.ErrNotFitted
	}
	res := make([]float64, len(design))
	for i, row := range design {
		res[i] = m.intercept + floats.Dot(m.coef, row)
	}
	return res, nil
}

// regressorRows validates x against the fitted regressors and places it after the training window
func (m *Model) regressorRows(x mat.Matrix) ([]time.Time, [][]float64, error) {
	if x == nil {
		return nil, nil, models.ErrNoDesignMatrix
	}
	if !m.fitted {
		return nil, nil, models.ErrNotFitted
	}
	rows, n := x.Dims()
	if n != m.nRegressors {
		return nil, nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, m.nRegressors, models.ErrFeatureLenMismatch)
	}
	return m.times(m.nTrain, rows), mat_.ToArray(x), nil
}

// Predict returns one value per row of x. Rows are treated as the steps immediately following the
// training window.
func (m *Model) Predict(x mat.Matrix) ([]float64, error) {
	t, regressors, err := m.regressorRows(x)
	if err != nil {
		return nil, err
	}
	_, design := m.design(t, regressors)
	return m.infer(design)
}

// Components returns the additive trend, seasonality and regression parts of Predict
func (m *Model) Components(x mat.Matrix) (Components, error) {
	t, regressors, err := m.regressorRows(x)
	if err != nil {
		return Components{}, err
	}
	labels, design := m.design(t, regressors)

	comp := Components{
		Trend:       make([]float64, len(design)),
		Seasonality: make([]float64, len(design)),
		Regression:  make([]float64, len(design)),
	}
	for i, row := range design {
		comp.Trend[i] = m.intercept
		for j, label := range labels {
			v := m.coef[j] * row[j]
			switch label.Type() {
			case LabelTypeGrowth, LabelTypeChangepoint:
				comp.Trend[i] += v
			case LabelTypeSeasonality:
				comp.Seasonality[i] += v
			case LabelTypeRegressor:
				comp.Regression[i] += v
			}
		}
	}
	return comp, nil
}

// Score computes the coefficient of determination of the prediction
func (m *Model) Score(x, y mat.Matrix) (float64, error) {
	if y == nil {
		return 0.0, models.ErrNoTargetMatrix
	}
	res, err := m.Predict(x)
	if err != nil {
		return 0.0, err
	}
	ySlice := mat.Col(nil, 0, y)
	if len(ySlice) != len(res) {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", len(res), len(ySlice), models.ErrTargetLenMismatch)
	}
	score := stat.RSquaredFrom(res, ySlice, nil)
	if math.IsNaN(score) {
		score = 1.0
	}
	return score, nil
}

// Labels returns the generated column labels in coefficient order
func (m *Model) Labels() []Label {
	labels := make([]Label, len(m.labels))
	copy(labels, m.labels)
	return labels
}

// Coefficients returns the fitted coefficient keyed by label
func (m *Model) Coefficients() (map[string]float64, error) {
	if !m.fitted {
		return nil, models.ErrNotFitted
	}
	res := make(map[string]float64, len(m.labels))
	for i, label := range m.labels {
		res[label.String()] = m.coef[i]
	}
	return res, nil
}

func (m *Model) Intercept() float64 {
	return m.intercept
}

// Residuals returns the training residuals. Rows removed as outliers are NaN.
func (m *Model) Residuals() []float64 {
	return m.residual
}

// Outliers returns the indices of training rows removed as outliers
func (m *Model) Outliers() []int {
	return m.outliers
}
