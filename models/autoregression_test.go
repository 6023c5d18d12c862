package models

import (
	"testing"

	mat_ "github.com/aouyang1/go-pricecast/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// lagRows slides a window of size lags over y returning each window and the value that follows it
func lagRows(y []float64, lags int) (*mat.Dense, *mat.Dense) {
	var rows [][]float64
	var target []float64
	for i := 0; i+lags < len(y); i++ {
		rows = append(rows, y[i:i+lags])
		target = append(target, y[i+lags])
	}
	x, _ := mat_.NewDenseFromArray(rows)
	return x, mat_.NewColumn(target)
}

func TestAutoRegression(t *testing.T) {
	linear := make([]float64, 30)
	for i := range linear {
		linear[i] = 100 + 2*float64(i)
	}

	decay := make([]float64, 30)
	decay[0] = 10
	for i := 1; i < len(decay); i++ {
		decay[i] = 0.5*decay[i-1] + 1
	}

	quadratic := make([]float64, 30)
	for i := range quadratic {
		quadratic[i] = float64(i * i)
	}

	testData := map[string]struct {
		y    []float64
		opt  *AutoRegressionOptions
		lags int
		next []float64
		coef []float64
	}{
		"linear trend differenced": {
			y:    linear,
			opt:  &AutoRegressionOptions{P: 2, D: 1, FitIntercept: true},
			lags: 4,
			next: []float64{100 + 2*4, 100 + 2*5},
		},
		"decaying level": {
			y:    decay,
			opt:  &AutoRegressionOptions{P: 1, D: 0, FitIntercept: true},
			lags: 3,
			coef: []float64{0.5},
		},
		"quadratic twice differenced": {
			y:    quadratic,
			opt:  &AutoRegressionOptions{P: 1, D: 2, FitIntercept: true},
			lags: 5,
			next: []float64{25, 36},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, y := lagRows(td.y, td.lags)

			model, err := NewAutoRegression(td.opt)
			require.Nil(t, err)
			require.Nil(t, model.Fit(x, y))

			res, err := model.Predict(x)
			require.Nil(t, err)
			assert.InDeltaSlice(t, mat.Col(nil, 0, y), res, 1e-6)
			if td.next != nil {
				assert.InDeltaSlice(t, td.next, res[:len(td.next)], 1e-6)
			}
			if td.coef != nil {
				assert.InDeltaSlice(t, td.coef, model.Coef(), 1e-6)
			}
		})
	}
}

func TestAutoRegressionErrors(t *testing.T) {
	_, err := NewAutoRegression(&AutoRegressionOptions{P: 0})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewAutoRegression(&AutoRegressionOptions{P: 1, D: -1})
	assert.ErrorIs(t, err, ErrNegativeDiff)

	model, err := NewAutoRegression(&AutoRegressionOptions{P: 3, D: 1})
	require.Nil(t, err)

	x, y := lagRows([]float64{1, 2, 3, 4, 5, 6}, 2)
	assert.ErrorIs(t, model.Fit(x, y), ErrInsufficientLags)

	_, err = model.Predict(x)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestDifference(t *testing.T) {
	y := []float64{1, 4, 9, 16}
	assert.Equal(t, []float64{1, 4, 9, 16}, difference(y, 0))
	assert.Equal(t, []float64{3, 5, 7}, difference(y, 1))
	assert.Equal(t, []float64{2, 2}, difference(y, 2))
	assert.Equal(t, []float64{16, 7}, lastLevels(y, 2))
}
