// Package scaler rescales feature columns before fitting and maps predictions back to the original
// units. Scalers operate column-wise on row-major tables.
package scaler

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted      = errors.New("scaler has not been fit")
	ErrNoRows         = errors.New("no rows to fit scaler")
	ErrWidthMismatch  = errors.New("row width does not match fitted columns")
	ErrUnknownScaling = errors.New("unknown scaling kind")
)

// Kind names a scaling strategy
type Kind string

const (
	KindIdentity Kind = "identity"
	KindStandard Kind = "standard"
	KindMinMax   Kind = "minmax"
	KindMaxAbs   Kind = "maxabs"
)

// Scaler learns per column parameters and applies an affine transform x' = (x - offset) / scale
type Scaler interface {
	Fit(rows [][]float64) error
	Transform(rows [][]float64) ([][]float64, error)
	Inverse(rows [][]float64) ([][]float64, error)
	Kind() Kind
}

// New returns an unfitted scaler of the given kind
func New(kind Kind) (Scaler, error) {
	switch kind {
	case KindIdentity, KindStandard, KindMinMax, KindMaxAbs:
		return &Affine{kind: kind}, nil
	}
	return nil, fmt.Errorf("%q, %w", kind, ErrUnknownScaling)
}

// Affine implements every Kind as an offset and scale per column
type Affine struct {
	kind   Kind
	Offset []float64 `json:"offset"`
	Scale  []float64 `json:"scale"`
}

func (a *Affine) Kind() Kind {
	return a.kind
}

// Fit learns the per column offsets and scales. Columns with no spread keep a scale of 1 so they
// map to a constant instead of dividing by zero.
func (a *Affine) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	n := len(rows[0])
	for i, row := range rows {
		if len(row) != n {
			return fmt.Errorf("row %d has %d columns, expected %d, %w", i, len(row), n, ErrWidthMismatch)
		}
	}

	offset := make([]float64, n)
	scale := make([]float64, n)
	col := make([]float64, len(rows))
	for j := 0; j < n; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}

		switch a.kind {
		case KindIdentity:
			offset[j], scale[j] = 0, 1
		case KindStandard:
			mean, std := stat.PopMeanStdDev(col, nil)
			offset[j], scale[j] = mean, std
		case KindMinMax:
			lo, hi := floats.Min(col), floats.Max(col)
			offset[j], scale[j] = lo, hi-lo
		case KindMaxAbs:
			offset[j], scale[j] = 0, math.Max(math.Abs(floats.Min(col)), math.Abs(floats.Max(col)))
		default:
			return fmt.Errorf("%q, %w", a.kind, ErrUnknownScaling)
		}
		if scale[j] == 0 || math.IsNaN(scale[j]) {
			scale[j] = 1
		}
	}
	a.Offset = offset
	a.Scale = scale
	return nil
}

func (a *Affine) Transform(rows [][]float64) ([][]float64, error) {
	return a.apply(rows, func(v, offset, scale float64) float64 {
		return (v - offset) / scale
	})
}

func (a *Affine) Inverse(rows [][]float64) ([][]float64, error) {
	return a.apply(rows, func(v, offset, scale float64) float64 {
		return v*scale + offset
	})
}

func (a *Affine) apply(rows [][]float64, fn func(v, offset, scale float64) float64) ([][]float64, error) {
	if a.Scale == nil {
		return nil, ErrNotFitted
	}
	n := len(a.Scale)
	res := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, expected %d, %w", i, len(row), n, ErrWidthMismatch)
		}
		out := make([]float64, n)
		for j, v := range row {
			out[j] = fn(v, a.Offset[j], a.Scale[j])
		}
		res[i] = out
	}
	return res, nil
}

// Column wraps a single value series as one column rows
func Column(y []float64) [][]float64 {
	rows := make([][]float64, len(y))
	for i, v := range y {
		rows[i] = []float64{v}
	}
	return rows
}

// Flatten returns the first column of each row
func Flatten(rows [][]float64) []float64 {
	res := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) > 0 {
			res[i] = row[0]
		}
	}
	return res
}
