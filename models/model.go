// Package models is a collection of regression fitting implementations used by the model adapters.
// Linear models solve with QR factorization or coordinate descent, tree models use CART regression
// trees either bagged into a forest or gradient boosted.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model fits a target column vector from a design matrix with one observation per row
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
}

// LinearModel is a Model with an intercept and one coefficient per feature
type LinearModel interface {
	Model
	Intercept() float64
	Coef() []float64
}
