package feature

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/aouyang1/go-pricecast/timedataset"
)

// Replacement values for non-finite inputs
const (
	PosInfReplacement = 1e10
	NegInfReplacement = -1e10
)

var (
	ErrRowWidth      = errors.New("row width does not match number of columns")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoTarget      = errors.New("table has no target column")
	ErrNoFeatures    = errors.New("table has no feature columns")
)

// Table is a set of named columns with row-major values
type Table struct {
	Columns []string
	Rows    [][]float64
}

// NewTable copies columns and rows into a table, validating every row carries one value per column
func NewTable(columns []string, rows [][]float64) (*Table, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	t := &Table{
		Columns: slices.Clone(columns),
		Rows:    make([][]float64, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns, %w", i, len(row), len(columns), ErrRowWidth)
		}
		t.Rows[i] = slices.Clone(row)
	}
	return t, nil
}

// FromDataset builds a table from the dataset fields, dropping timestamps
func FromDataset(d *timedataset.Dataset) *Table {
	return &Table{
		Columns: slices.Clone(d.Fields),
		Rows:    d.Values(),
	}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

func (t *Table) Index(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	idx := slices.Index(t.Columns, name)
	return idx, idx >= 0
}

// Column returns a copy of a single named column
func (t *Table) Column(name string) ([]float64, error) {
	idx, exists := t.Index(name)
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
	}
	col := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row[idx]
	}
	return col, nil
}

// SplitTarget treats the last column as the target and returns the preceding feature columns
// along with the target values.
func (t *Table) SplitTarget() (*Table, []float64, error) {
	if t.Width() == 0 {
		return nil, nil, ErrNoTarget
	}
	if t.Width() == 1 {
		return nil, nil, ErrNoFeatures
	}
	n := t.Width() - 1
	features := &Table{
		Columns: slices.Clone(t.Columns[:n]),
		Rows:    make([][]float64, len(t.Rows)),
	}
	target := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != t.Width() {
			return nil, nil, fmt.Errorf("row %d has %d values for %d columns, %w", i, len(row), t.Width(), ErrRowWidth)
		}
		features.Rows[i] = slices.Clone(row[:n])
		target[i] = row[n]
	}
	return features, target, nil
}

// Sanitize returns a copy of the table with NaN replaced by 0 and infinities clamped to
// +/-1e10
func (t *Table) Sanitize() *Table {
	res := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([][]float64, len(t.Rows)),
	}
	for i, row := range t.Rows {
		res.Rows[i] = SanitizeValues(row)
	}
	return res
}

// SanitizeValues returns a copy of vals with non-finite entries replaced
func SanitizeValues(vals []float64) []float64 {
	res := make([]float64, len(vals))
	for i, v := range vals {
		switch {
		case math.IsNaN(v):
			res[i] = 0
		case math.IsInf(v, 1):
			res[i] = PosInfReplacement
		case math.IsInf(v, -1):
			res[i] = NegInfReplacement
		default:
			res[i] = v
		}
	}
	return res
}
