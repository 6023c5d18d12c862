package feature

import "fmt"

// ExtraMode controls what happens to table columns the schema does not know about
type ExtraMode int

const (
	// ExtraDrop removes columns absent from the schema
	ExtraDrop ExtraMode = iota
	// ExtraRetain keeps unknown columns after the schema columns in their original order
	ExtraRetain
)

func (m ExtraMode) String() string {
	switch m {
	case ExtraDrop:
		return "drop"
	case ExtraRetain:
		return "retain"
	}
	return fmt.Sprintf("ExtraMode(%d)", int(m))
}

// Align reorders the table columns to match the schema. Schema columns missing from the table are
// inserted as zeros. The input table is never modified and aligning an aligned table returns an
// identical table. A non-empty schema that shares no column with the table returns
// ErrSchemaMismatch.
func Align(s *Schema, t *Table, mode ExtraMode) (*Table, error) {
	if t == nil {
		t = &Table{}
	}

	src := make([]int, 0, s.Len()+t.Width())
	columns := make([]string, 0, s.Len()+t.Width())

	var overlap int
	known := make(map[string]struct{}, s.Len())
	for _, c := range columnsOf(s) {
		known[c] = struct{}{}
		idx, exists := t.Index(c)
		if exists {
			overlap++
		}
		src = append(src, idx)
		columns = append(columns, c)
	}
	if s.Len() > 0 && overlap == 0 {
		return nil, fmt.Errorf("schema has %d columns, table has %d, %w", s.Len(), t.Width(), ErrSchemaMismatch)
	}

	if mode == ExtraRetain {
		for i, c := range t.Columns {
			if _, exists := known[c]; exists {
				continue
			}
			src = append(src, i)
			columns = append(columns, c)
		}
	}

	res := &Table{
		Columns: columns,
		Rows:    make([][]float64, len(t.Rows)),
	}
	for i, row := range t.Rows {
		if len(row) != t.Width() {
			return nil, fmt.Errorf("row %d has %d values for %d columns, %w", i, len(row), t.Width(), ErrRowWidth)
		}
		out := make([]float64, len(src))
		for j, idx := range src {
			if idx >= 0 {
				out[j] = row[idx]
			}
		}
		res.Rows[i] = out
	}
	return res, nil
}

func columnsOf(s *Schema) []string {
	if s == nil {
		return nil
	}
	return s.Columns
}
