// Package stats computes evaluation scores and diagnostics for fitted models
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoValues       = errors.New("no values to score")
)

// Scores tracks the evaluation scores of a set of predictions
type Scores struct {
	MAE  float64 `json:"mean_absolute_error"`
	MSE  float64 `json:"mean_squared_error"`
	RMSE float64 `json:"root_mean_squared_error"`
	MAPE float64 `json:"mean_absolute_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates every score given the predicted and actual input slice values
func NewScores(predicted, actual []float64) (*Scores, error) {
	mae, err := MAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MAE:  mae,
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAPE: mape,
		R2:   rs,
	}, nil
}

// pairs calls fn for every index where neither value is NaN and returns how many were visited
func pairs(predicted, actual []float64, fn func(p, a float64)) (int, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	var cnt int
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		fn(predicted[i], actual[i])
		cnt++
	}
	if cnt == 0 {
		return 0, ErrNoValues
	}
	return cnt, nil
}

// MAE computes the mean absolute error. A score of 0 means a perfect match with no errors.
func MAE(predicted, actual []float64) (float64, error) {
	mae := 0.0
	cnt, err := pairs(predicted, actual, func(p, a float64) {
		mae += math.Abs(a - p)
	})
	if err != nil {
		return 0, err
	}
	return mae / float64(cnt), nil
}

// MSE computes the mean squared error. This is the same as mean((y-yhat)^2).
// A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	mse := 0.0
	cnt, err := pairs(predicted, actual, func(p, a float64) {
		mse += math.Pow(a-p, 2.0)
	})
	if err != nil {
		return 0, err
	}
	return mse / float64(cnt), nil
}

// MAPE calculates the mean absolute percent error as a fraction, mean(abs((y-yhat)/y)). Zero
// actual values are skipped.
func MAPE(predicted, actual []float64) (float64, error) {
	mape := 0.0
	var nonZero int
	_, err := pairs(predicted, actual, func(p, a float64) {
		if a == 0 {
			return
		}
		mape += math.Abs((a - p) / a)
		nonZero++
	})
	if err != nil {
		return 0, err
	}
	if nonZero == 0 {
		return 0, nil
	}
	return mape / float64(nonZero), nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship
func RSquared(predicted, actual []float64) (float64, error) {
	predictCopy := make([]float64, 0, len(predicted))
	actualCopy := make([]float64, 0, len(actual))
	_, err := pairs(predicted, actual, func(p, a float64) {
		predictCopy = append(predictCopy, p)
		actualCopy = append(actualCopy, a)
	})
	if err != nil {
		return 0, err
	}
	r2 := stat.RSquaredFrom(predictCopy, actualCopy, nil)
	if math.IsNaN(r2) {
		return 1.0, nil
	}
	return r2, nil
}
