// Package artifact writes experiment outputs: actual vs predicted tables, future price tables and
// fit charts.
package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/parquet-go/parquet-go"
)

var (
	ErrNoDir       = errors.New("no output directory")
	ErrEmptyName   = errors.New("model and coin names are required")
	ErrLenMismatch = errors.New("actual and predicted lengths differ")
)

const (
	HeaderActual    = "Actual Price"
	HeaderPredicted = "Predicted Price"
	HeaderHorizon   = "Horizon"
)

// Prediction pairs an observed price with the model's prediction for the same row
type Prediction struct {
	T         time.Time
	Actual    float64
	Predicted float64
}

// NewPredictions zips parallel slices. t may be nil.
func NewPredictions(t []time.Time, actual, predicted []float64) ([]Prediction, error) {
	if len(actual) != len(predicted) || (t != nil && len(t) != len(actual)) {
		return nil, fmt.Errorf("%d actual, %d predicted, %w", len(actual), len(predicted), ErrLenMismatch)
	}
	res := make([]Prediction, len(actual))
	for i := range actual {
		res[i] = Prediction{Actual: actual[i], Predicted: predicted[i]}
		if t != nil {
			res[i].T = t[i]
		}
	}
	return res, nil
}

type predictionRecord struct {
	Timestamp int64   `parquet:"t"`
	Actual    float64 `parquet:"actual_price"`
	Predicted float64 `parquet:"predicted_price"`
}

type futureRecord struct {
	Horizon   int64   `parquet:"horizon"`
	Timestamp int64   `parquet:"t"`
	Predicted float64 `parquet:"predicted_price"`
}

type Options struct {
	Dir     string
	Parquet bool
	Charts  bool
}

// Writer names and writes artifacts under a directory
type Writer struct {
	opt Options
}

func NewWriter(opt Options) (*Writer, error) {
	if opt.Dir == "" {
		return nil, ErrNoDir
	}
	if err := os.MkdirAll(opt.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create output directory, %w", err)
	}
	return &Writer{opt: opt}, nil
}

func baseName(model, coin, kind string) (string, error) {
	if model == "" || coin == "" {
		return "", ErrEmptyName
	}
	return fmt.Sprintf("%s_%s_%s", model, strings.ToUpper(coin), kind), nil
}

func (w *Writer) path(model, coin, kind, ext string) (string, error) {
	name, err := baseName(model, coin, kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(w.opt.Dir, name+ext), nil
}

// WritePredictions writes <model>_<COIN>_Predictions.csv and its parquet twin when enabled. It
// returns the written paths.
func (w *Writer) WritePredictions(model, coin string, preds []Prediction) ([]string, error) {
	csvPath, err := w.path(model, coin, "Predictions", ".csv")
	if err != nil {
		return nil, err
	}
	records := make([][]string, 0, len(preds)+1)
	records = append(records, []string{HeaderActual, HeaderPredicted})
	for _, p := range preds {
		records = append(records, []string{formatFloat(p.Actual), formatFloat(p.Predicted)})
	}
	if err := writeCSV(csvPath, records); err != nil {
		return nil, err
	}
	paths := []string{csvPath}

	if w.opt.Parquet {
		pqPath, _ := w.path(model, coin, "Predictions", ".parquet")
		rows := make([]predictionRecord, len(preds))
		for i, p := range preds {
			rows[i] = predictionRecord{Actual: p.Actual, Predicted: p.Predicted}
			if !p.T.IsZero() {
				rows[i].Timestamp = p.T.UnixMilli()
			}
		}
		if err := parquet.WriteFile(pqPath, rows); err != nil {
			return nil, fmt.Errorf("unable to write %s, %w", pqPath, err)
		}
		paths = append(paths, pqPath)
	}
	return paths, nil
}

// WriteFuture writes <model>_<COIN>_Future.csv and its parquet twin when enabled
func (w *Writer) WriteFuture(model, coin string, future []multistep.Point) ([]string, error) {
	csvPath, err := w.path(model, coin, "Future", ".csv")
	if err != nil {
		return nil, err
	}
	records := make([][]string, 0, len(future)+1)
	records = append(records, []string{HeaderHorizon, HeaderPredicted})
	for _, p := range future {
		records = append(records, []string{strconv.Itoa(p.Horizon), formatFloat(p.Value)})
	}
	if err := writeCSV(csvPath, records); err != nil {
		return nil, err
	}
	paths := []string{csvPath}

	if w.opt.Parquet {
		pqPath, _ := w.path(model, coin, "Future", ".parquet")
		rows := make([]futureRecord, len(future))
		for i, p := range future {
			rows[i] = futureRecord{Horizon: int64(p.Horizon), Predicted: p.Value}
			if !p.T.IsZero() {
				rows[i].Timestamp = p.T.UnixMilli()
			}
		}
		if err := parquet.WriteFile(pqPath, rows); err != nil {
			return nil, fmt.Errorf("unable to write %s, %w", pqPath, err)
		}
		paths = append(paths, pqPath)
	}
	return paths, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return f.Close()
}
