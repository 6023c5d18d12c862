// Package mat holds small conversions between row slices and gonum matrices
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch = errors.New("column size mismatch")
	ErrRowMismatch = errors.New("row size mismatch")
)

// NewDenseFromArray converts a slice of rows into a dense matrix. Every row must have the same
// number of columns.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if n <= 0 || m == 0 {
		return nil, fmt.Errorf("no data to build matrix, %w", ErrRowMismatch)
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// NewColumn returns an m x 1 matrix of the values
func NewColumn(y []float64) *mat.Dense {
	data := make([]float64, len(y))
	copy(data, y)
	return mat.NewDense(len(y), 1, data)
}

// WithIntercept prepends a constant 1.0 column to x
func WithIntercept(x mat.Matrix) *mat.Dense {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)

	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())

	var res mat.Dense
	res.CloneFrom(xWithOnes.T())
	return &res
}

// ToArray converts a matrix back into a slice of rows
func ToArray(x mat.Matrix) [][]float64 {
	m, _ := x.Dims()
	rows := make([][]float64, m)
	for i := 0; i < m; i++ {
		rows[i] = mat.Row(nil, i, x)
	}
	return rows
}
