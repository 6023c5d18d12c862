// Package window turns an ordered price dataset into supervised examples. Each example is a run
// of consecutive rows flattened into one feature vector and labeled with the target field of the
// row that follows the run.
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/timedataset"
)

const DefaultLookBack = 5

var (
	ErrInvalidLookBack  = errors.New("look back must be at least 1")
	ErrInsufficientData = errors.New("not enough rows to form a window")
	ErrUnknownTarget    = errors.New("target field not in dataset")
	ErrInvalidSplit     = errors.New("train ratio must be between 0 and 1")
)

// Options configures window construction
type Options struct {
	LookBack int
	// Target is the field used as the label. Defaults to price.
	Target string
	// AllowEmpty returns zero examples instead of ErrInsufficientData when the dataset is too short
	AllowEmpty bool
}

func NewDefaultOptions() *Options {
	return &Options{
		LookBack: DefaultLookBack,
		Target:   timedataset.FieldPrice,
	}
}

// Validate fills in defaults and checks the look back
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.LookBack < 1 {
		return nil, fmt.Errorf("look back %d, %w", o.LookBack, ErrInvalidLookBack)
	}
	if o.Target == "" {
		o.Target = timedataset.FieldPrice
	}
	return o, nil
}

// FeatureNames returns the flattened column names of a window, oldest row first. Names take the
// form <field>_lag_<n> where n counts back from the label row.
func FeatureNames(fields []string, lookBack int) []string {
	names := make([]string, 0, len(fields)*lookBack)
	for lag := lookBack; lag >= 1; lag-- {
		for _, f := range fields {
			names = append(names, fmt.Sprintf("%s_lag_%d", f, lag))
		}
	}
	return names
}

// Example is one flattened window with the label of the following row
type Example struct {
	// T is the timestamp of the label row
	T        time.Time
	Features []float64
	Label    float64
}

// TrainingSet is an ordered, immutable collection of examples
type TrainingSet struct {
	Fields   []string
	Columns  []string
	Target   string
	LookBack int
	Examples []Example
}

func (ts *TrainingSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.Examples)
}

// Labels returns the label of every example in order
func (ts *TrainingSet) Labels() []float64 {
	labels := make([]float64, len(ts.Examples))
	for i, ex := range ts.Examples {
		labels[i] = ex.Label
	}
	return labels
}

// Times returns the label timestamps of every example in order
func (ts *TrainingSet) Times() timedataset.TimeSlice {
	t := make(timedataset.TimeSlice, len(ts.Examples))
	for i, ex := range ts.Examples {
		t[i] = ex.T
	}
	return t
}

// Table returns the examples as a table of feature columns followed by the target column
func (ts *TrainingSet) Table() *feature.Table {
	columns := make([]string, 0, len(ts.Columns)+1)
	columns = append(columns, ts.Columns...)
	columns = append(columns, ts.Target)

	rows := make([][]float64, len(ts.Examples))
	for i, ex := range ts.Examples {
		row := make([]float64, 0, len(ex.Features)+1)
		row = append(row, ex.Features...)
		row = append(row, ex.Label)
		rows[i] = row
	}
	return &feature.Table{Columns: columns, Rows: rows}
}

// Features returns the examples as a table without the target column
func (ts *TrainingSet) Features() *feature.Table {
	rows := make([][]float64, len(ts.Examples))
	for i, ex := range ts.Examples {
		rows[i] = slices.Clone(ex.Features)
	}
	return &feature.Table{Columns: slices.Clone(ts.Columns), Rows: rows}
}

// Split divides the examples chronologically, the first ratio of examples forming the training
// set. Examples are never shuffled.
func (ts *TrainingSet) Split(ratio float64) (*TrainingSet, *TrainingSet, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("ratio %.3f, %w", ratio, ErrInvalidSplit)
	}
	if !ts.Times().Monotonic() {
		slog.Warn("splitting examples whose timestamps are not strictly increasing", "examples", ts.Len())
	}

	n := int(float64(ts.Len()) * ratio)
	return ts.sub(0, n), ts.sub(n, ts.Len()), nil
}

func (ts *TrainingSet) sub(start, end int) *TrainingSet {
	return &TrainingSet{
		Fields:   slices.Clone(ts.Fields),
		Columns:  slices.Clone(ts.Columns),
		Target:   ts.Target,
		LookBack: ts.LookBack,
		Examples: slices.Clone(ts.Examples[start:end]),
	}
}

// Build slides a window of opt.LookBack rows over the dataset producing len(rows) - LookBack
// examples in row order.
func Build(d *timedataset.Dataset, opt *Options) (*TrainingSet, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	targetIdx, exists := d.Index(opt.Target)
	if !exists {
		return nil, fmt.Errorf("%q, %w", opt.Target, ErrUnknownTarget)
	}

	ts := &TrainingSet{
		Fields:   slices.Clone(d.Fields),
		Columns:  FeatureNames(d.Fields, opt.LookBack),
		Target:   opt.Target,
		LookBack: opt.LookBack,
	}

	n := d.Len()
	if n <= opt.LookBack {
		if opt.AllowEmpty {
			return ts, nil
		}
		return nil, fmt.Errorf("%d rows with look back %d, %w", n, opt.LookBack, ErrInsufficientData)
	}

	width := len(d.Fields)
	ts.Examples = make([]Example, 0, n-opt.LookBack)
	for i := 0; i+opt.LookBack < n; i++ {
		features := make([]float64, 0, width*opt.LookBack)
		for _, r := range d.Rows[i : i+opt.LookBack] {
			features = append(features, r.Values...)
		}
		next := d.Rows[i+opt.LookBack]
		ts.Examples = append(ts.Examples, Example{
			T:        next.T,
			Features: features,
			Label:    next.Values[targetIdx],
		})
	}
	return ts, nil
}
