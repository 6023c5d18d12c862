package window

import (
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/timedataset"
)

// Seed holds the most recent LookBack rows of a dataset. It is the starting window of an
// iterative forecast.
type Seed struct {
	Fields []string
	Target string
	// T is the timestamp of the newest row
	T    time.Time
	Rows [][]float64
}

// NewSeed takes the last opt.LookBack rows of the dataset
func NewSeed(d *timedataset.Dataset, opt *Options) (*Seed, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if _, exists := d.Index(opt.Target); !exists {
		return nil, fmt.Errorf("%q, %w", opt.Target, ErrUnknownTarget)
	}
	if d.Len() < opt.LookBack {
		return nil, fmt.Errorf("%d rows with look back %d, %w", d.Len(), opt.LookBack, ErrInsufficientData)
	}

	tail := d.Tail(opt.LookBack)
	return &Seed{
		Fields: slices.Clone(d.Fields),
		Target: opt.Target,
		T:      tail.Times().EndTime(),
		Rows:   tail.Values(),
	}, nil
}

func (s *Seed) LookBack() int {
	return len(s.Rows)
}

// TargetIndex returns the position of the target field within each row
func (s *Seed) TargetIndex() (int, bool) {
	idx := slices.Index(s.Fields, s.Target)
	return idx, idx >= 0
}

// Columns returns the flattened feature names matching Flatten
func (s *Seed) Columns() []string {
	return FeatureNames(s.Fields, s.LookBack())
}

// Flatten concatenates the rows oldest first
func (s *Seed) Flatten() []float64 {
	res := make([]float64, 0, len(s.Fields)*len(s.Rows))
	for _, row := range s.Rows {
		res = append(res, row...)
	}
	return res
}

// Table returns the seed as a single row feature table
func (s *Seed) Table() *feature.Table {
	return &feature.Table{
		Columns: s.Columns(),
		Rows:    [][]float64{s.Flatten()},
	}
}

// Push drops the oldest row and appends row as the newest
func (s *Seed) Push(row []float64) error {
	if len(row) != len(s.Fields) {
		return fmt.Errorf("row has %d values for %d fields, %w", len(row), len(s.Fields), timedataset.ErrRowLenMismatch)
	}
	if len(s.Rows) == 0 {
		return nil
	}
	copy(s.Rows, s.Rows[1:])
	s.Rows[len(s.Rows)-1] = slices.Clone(row)
	return nil
}

// Copy returns a deep copy that can be pushed to without affecting s
func (s *Seed) Copy() *Seed {
	rows := make([][]float64, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = slices.Clone(row)
	}
	return &Seed{
		Fields: slices.Clone(s.Fields),
		Target: s.Target,
		T:      s.T,
		Rows:   rows,
	}
}
