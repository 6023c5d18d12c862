package timedataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMissingValue  = errors.New("missing value")
	ErrInvalidDate   = errors.New("invalid date")
)

// CSV header names as exported by investing.com style price histories
const (
	HeaderDate      = "Date"
	HeaderPrice     = "Price"
	HeaderOpen      = "Open"
	HeaderHigh      = "High"
	HeaderLow       = "Low"
	HeaderVolume    = "Vol."
	HeaderChangePct = "Change %"
)

var headerFields = map[string]string{
	"price":      FieldPrice,
	"open":       FieldOpen,
	"high":       FieldHigh,
	"low":        FieldLow,
	"vol.":       FieldVolume,
	"volume":     FieldVolume,
	"change %":   FieldChangePct,
	"change_pct": FieldChangePct,
}

var fieldHeaders = map[string]string{
	FieldPrice:     HeaderPrice,
	FieldOpen:      HeaderOpen,
	FieldHigh:      HeaderHigh,
	FieldLow:       HeaderLow,
	FieldVolume:    HeaderVolume,
	FieldChangePct: HeaderChangePct,
}

var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"Jan 02, 2006",
	"Jan 2, 2006",
}

// LoadCSV reads a price history file. See ReadCSV.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open price history, %w", err)
	}
	defer f.Close()

	d, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", path, err)
	}
	return d, nil
}

// ReadCSV parses a price history with a Date and Price column and any of Open, High, Low, Vol.
// and Change %. Rows with an unparseable date or any missing numeric value are dropped. The
// result is sorted ascending by date.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header, %w", err)
	}

	dateCol := -1
	colByField := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, HeaderDate) {
			dateCol = i
			continue
		}
		if field, ok := headerFields[strings.ToLower(h)]; ok {
			colByField[field] = i
		}
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("%q, %w", HeaderDate, ErrMissingColumn)
	}
	if _, ok := colByField[FieldPrice]; !ok {
		return nil, fmt.Errorf("%q, %w", HeaderPrice, ErrMissingColumn)
	}

	fields := make([]string, 0, len(PriceFields))
	cols := make([]int, 0, len(PriceFields))
	for _, f := range PriceFields {
		if col, ok := colByField[f]; ok {
			fields = append(fields, f)
			cols = append(cols, col)
		}
	}

	var rows []Row
	var dropped int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read record, %w", err)
		}

		row, err := parseRecord(rec, dateCol, cols)
		if err != nil {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		slog.Warn("dropped malformed price rows", "dropped", dropped, "kept", len(rows))
	}

	d, err := New(fields, rows)
	if err != nil {
		return nil, err
	}
	d.Sort()
	return d, nil
}

func parseRecord(rec []string, dateCol int, cols []int) (Row, error) {
	if dateCol >= len(rec) {
		return Row{}, ErrInvalidDate
	}
	t, err := ParseDate(rec[dateCol])
	if err != nil {
		return Row{}, err
	}

	vals := make([]float64, len(cols))
	for i, col := range cols {
		if col >= len(rec) {
			return Row{}, ErrMissingValue
		}
		v, err := ParseNumber(rec[col])
		if err != nil {
			return Row{}, err
		}
		vals[i] = v
	}
	return Row{T: t, Values: vals}, nil
}

// ParseDate accepts the date layouts seen in exported and combined price files
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrInvalidDate)
}

// ParseNumber converts a formatted number into a float. Thousands commas and a trailing percent
// sign are stripped and K, M, B suffixes scale by 1e3, 1e6, 1e9. Empty strings and "-" are
// missing values.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" {
		return 0, ErrMissingValue
	}

	scale := int32(0)
	switch s[len(s)-1] {
	case 'K', 'k':
		scale = 3
	case 'M', 'm':
		scale = 6
	case 'B', 'b':
		scale = 9
	}
	if scale > 0 {
		s = s[:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q, %w", s, ErrMissingValue)
	}
	v, _ := d.Shift(scale).Float64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrMissingValue
	}
	return v, nil
}

// WriteCSV writes the dataset in the same header format ReadCSV accepts. Fields without a known
// header are written under their field name.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(d.Fields)+1)
	header = append(header, HeaderDate)
	for _, f := range d.Fields {
		if h, ok := fieldHeaders[f]; ok {
			header = append(header, h)
			continue
		}
		header = append(header, f)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	rec := make([]string, len(header))
	for _, r := range d.Rows {
		rec[0] = r.T.Format("2006-01-02 15:04:05.999999999")
		for i, v := range r.Values {
			rec[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the dataset to path, replacing any existing file
func SaveCSV(path string, d *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := WriteCSV(f, d); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return f.Close()
}
