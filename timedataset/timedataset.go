// Package timedataset loads, cleans and merges chronologically ordered price rows.
package timedataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNoRows            = errors.New("no rows in dataset")
	ErrNoFields          = errors.New("no fields in dataset")
	ErrUnknownField      = errors.New("unknown field")
	ErrFieldExists       = errors.New("field already exists in dataset")
	ErrRowLenMismatch    = errors.New("row has a different number of values than fields")
	ErrColumnLenMismatch = errors.New("column has a different length than rows")
	ErrFieldsMismatch    = errors.New("datasets have different fields")
	ErrCannotInferFreq   = errors.New("cannot infer frequency from less than 2 distinct timestamps")
)

const (
	FieldPrice     = "price"
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldVolume    = "volume"
	FieldChangePct = "change_pct"
)

// PriceFields is the canonical field order of a price row. Price is always first.
var PriceFields = []string{FieldPrice, FieldOpen, FieldHigh, FieldLow, FieldVolume, FieldChangePct}

// Row is one observation of every dataset field at time T
type Row struct {
	T      time.Time
	Values []float64
}

// Dataset is an ordered sequence of rows sharing the same named fields.
type Dataset struct {
	Fields []string
	Rows   []Row
}

// New returns a dataset copying the provided fields and rows. Every row must carry one value
// per field.
func New(fields []string, rows []Row) (*Dataset, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, exists := seen[f]; exists {
			return nil, fmt.Errorf("%q, %w", f, ErrFieldExists)
		}
		seen[f] = struct{}{}
	}

	d := &Dataset{
		Fields: append([]string(nil), fields...),
		Rows:   make([]Row, 0, len(rows)),
	}
	for i, r := range rows {
		if len(r.Values) != len(fields) {
			return nil, fmt.Errorf("row %d has %d values for %d fields, %w", i, len(r.Values), len(fields), ErrRowLenMismatch)
		}
		d.Rows = append(d.Rows, Row{T: r.T, Values: append([]float64(nil), r.Values...)})
	}
	return d, nil
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Index returns the position of a field within each row
func (d *Dataset) Index(field string) (int, bool) {
	if d == nil {
		return -1, false
	}
	for i, f := range d.Fields {
		if f == field {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of a single field across all rows
func (d *Dataset) Column(field string) ([]float64, error) {
	idx, exists := d.Index(field)
	if !exists {
		return nil, fmt.Errorf("%q, %w", field, ErrUnknownField)
	}
	col := make([]float64, len(d.Rows))
	for i, r := range d.Rows {
		col[i] = r.Values[idx]
	}
	return col, nil
}

// AddColumn appends a new field to the dataset. vals must have one entry per row.
func (d *Dataset) AddColumn(field string, vals []float64) error {
	if _, exists := d.Index(field); exists {
		return fmt.Errorf("%q, %w", field, ErrFieldExists)
	}
	if len(vals) != len(d.Rows) {
		return fmt.Errorf("%q has %d values for %d rows, %w", field, len(vals), len(d.Rows), ErrColumnLenMismatch)
	}
	d.Fields = append(d.Fields, field)
	for i := range d.Rows {
		d.Rows[i].Values = append(d.Rows[i].Values, vals[i])
	}
	return nil
}

// Times returns the row timestamps
func (d *Dataset) Times() TimeSlice {
	t := make(TimeSlice, len(d.Rows))
	for i, r := range d.Rows {
		t[i] = r.T
	}
	return t
}

// Values returns a row-major copy of the dataset values
func (d *Dataset) Values() [][]float64 {
	vals := make([][]float64, len(d.Rows))
	for i, r := range d.Rows {
		vals[i] = append([]float64(nil), r.Values...)
	}
	return vals
}

// Slice returns a copy of rows in [start, end)
func (d *Dataset) Slice(start, end int) *Dataset {
	start = max(start, 0)
	end = min(end, len(d.Rows))
	if start > end {
		start = end
	}
	res, _ := New(d.Fields, d.Rows[start:end])
	return res
}

// Tail returns a copy of the last n rows
func (d *Dataset) Tail(n int) *Dataset {
	return d.Slice(len(d.Rows)-n, len(d.Rows))
}

// Copy returns a deep copy of the dataset
func (d *Dataset) Copy() *Dataset {
	return d.Slice(0, len(d.Rows))
}

// Sort orders rows by time keeping the relative order of equal timestamps
func (d *Dataset) Sort() {
	sort.SliceStable(d.Rows, func(i, j int) bool {
		return d.Rows[i].T.Before(d.Rows[j].T)
	})
}

// Merge concatenates extra onto base, sorts by time and keeps the later row when two rows share
// the same timestamp. Both datasets must carry the same fields.
func Merge(base, extra *Dataset) (*Dataset, error) {
	if base == nil {
		return nil, ErrNoRows
	}
	if extra == nil || extra.Len() == 0 {
		return base.Copy(), nil
	}
	if len(base.Fields) != len(extra.Fields) {
		return nil, ErrFieldsMismatch
	}
	for i := range base.Fields {
		if base.Fields[i] != extra.Fields[i] {
			return nil, fmt.Errorf("field %d is %q and %q, %w", i, base.Fields[i], extra.Fields[i], ErrFieldsMismatch)
		}
	}

	rows := make([]Row, 0, base.Len()+extra.Len())
	rows = append(rows, base.Rows...)
	rows = append(rows, extra.Rows...)
	merged, err := New(base.Fields, rows)
	if err != nil {
		return nil, err
	}
	merged.Sort()

	deduped := merged.Rows[:0]
	for _, r := range merged.Rows {
		if n := len(deduped); n > 0 && deduped[n-1].T.Equal(r.T) {
			deduped[n-1] = r
			continue
		}
		deduped = append(deduped, r)
	}
	merged.Rows = deduped
	return merged, nil
}
