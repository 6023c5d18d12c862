// Package feature holds the named column tables passed to models along with the schema a fitted
// model expects and the aligner that reconciles the two. It also derives engineered columns
// (calendar flags, technical indicators, daily sentiment) from a price dataset.
package feature

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// SchemaVersion is the version stamped on newly created schemas
const SchemaVersion = 1

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrEmptyColumnName = errors.New("empty column name")
	ErrSchemaMismatch  = errors.New("table shares no columns with schema")
)

// Schema is the named, ordered set of columns a fitted model expects at predict time.
type Schema struct {
	Columns []string `json:"columns"`
	Version int      `json:"version"`
}

// NewSchema copies the provided columns into a new schema
func NewSchema(columns []string) (*Schema, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	return &Schema{
		Columns: slices.Clone(columns),
		Version: SchemaVersion,
	}, nil
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Columns)
}

func (s *Schema) Index(name string) (int, bool) {
	if s == nil {
		return -1, false
	}
	idx := slices.Index(s.Columns, name)
	return idx, idx >= 0
}

// Matches reports whether columns are exactly the schema columns in schema order
func (s *Schema) Matches(columns []string) bool {
	return slices.Equal(s.Columns, columns)
}

func (s *Schema) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSchema parses and validates a JSON encoded schema
func DecodeSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unable to decode schema, %w", err)
	}
	if err := validateColumns(s.Columns); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c == "" {
			return fmt.Errorf("column %d, %w", i, ErrEmptyColumnName)
		}
		if _, exists := seen[c]; exists {
			return fmt.Errorf("%q, %w", c, ErrDuplicateColumn)
		}
		seen[c] = struct{}{}
	}
	return nil
}
