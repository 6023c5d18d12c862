package artifact

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/parquet-go/parquet-go"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.Nil(t, err)
	return records
}

func TestWritePredictions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewWriter(Options{Dir: dir, Parquet: true})
	require.Nil(t, err)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	preds, err := NewPredictions([]time.Time{t0, t0.Add(time.Hour)}, []float64{100, 101.5}, []float64{99.25, 102})
	require.Nil(t, err)

	paths, err := w.WritePredictions("forest", "btc", preds)
	require.Nil(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "forest_BTC_Predictions.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "forest_BTC_Predictions.parquet"), paths[1])

	assert.Equal(t, [][]string{
		{"Actual Price", "Predicted Price"},
		{"100", "99.25"},
		{"101.5", "102"},
	}, readCSV(t, paths[0]))

	rows, err := parquet.ReadFile[predictionRecord](paths[1])
	require.Nil(t, err)
	assert.Equal(t, []predictionRecord{
		{Timestamp: t0.UnixMilli(), Actual: 100, Predicted: 99.25},
		{Timestamp: t0.Add(time.Hour).UnixMilli(), Actual: 101.5, Predicted: 102},
	}, rows)
}

func TestWriteFuture(t *testing.T) {
	w, err := NewWriter(Options{Dir: t.TempDir()})
	require.Nil(t, err)

	paths, err := w.WriteFuture("linear", "ETH", []multistep.Point{
		{Horizon: 10, Value: 2000.5},
		{Horizon: 180, Value: 2010},
	})
	require.Nil(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "linear_ETH_Future.csv", filepath.Base(paths[0]))
	assert.Equal(t, [][]string{
		{"Horizon", "Predicted Price"},
		{"10", "2000.5"},
		{"180", "2010"},
	}, readCSV(t, paths[0]))
}

func TestWriteChart(t *testing.T) {
	dir := t.TempDir()
	preds := []Prediction{
		{T: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Actual: 1, Predicted: 1.1},
		{T: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Actual: 2, Predicted: 1.9},
	}

	off, err := NewWriter(Options{Dir: dir})
	require.Nil(t, err)
	path, err := off.WriteChart("boost", "sol", preds, nil)
	require.Nil(t, err)
	assert.Equal(t, "", path)

	on, err := NewWriter(Options{Dir: dir, Charts: true})
	require.Nil(t, err)
	path, err = on.WriteChart("boost", "sol", preds, []multistep.Point{{Horizon: 10, Value: 3}})
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(dir, "boost_SOL_Fit.html"), path)

	html, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Contains(t, string(html), "boost SOL Fit")
	assert.Contains(t, string(html), "boost SOL Future")
}

func TestErrors(t *testing.T) {
	_, err := NewWriter(Options{})
	assert.ErrorIs(t, err, ErrNoDir)

	w, err := NewWriter(Options{Dir: t.TempDir()})
	require.Nil(t, err)
	_, err = w.WritePredictions("", "BTC", nil)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewPredictions(nil, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLenMismatch)
}
