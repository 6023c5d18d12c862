package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast"
	"github.com/aouyang1/go-pricecast/timedataset"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoins(t *testing.T) {
	testData := map[string]struct {
		list     string
		expected []string
	}{
		"empty":      {list: "", expected: []string{"BTC"}},
		"single":     {list: "eth", expected: []string{"ETH"}},
		"duplicates": {list: "eth, sol,ETH,,", expected: []string{"ETH", "SOL"}},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, parseCoins(td.list, []string{"BTC"}))
		})
	}
}

func TestRunUsage(t *testing.T) {
	assert.ErrorIs(t, run(context.Background(), nil), ErrUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"deploy"}), ErrUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"train", "-profile", "block"}), ErrUnknownProfile)
}

func TestRunTrain(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	outDir := filepath.Join(dir, "out")
	require.Nil(t, os.MkdirAll(dataDir, 0o755))

	n := 60
	d := timedataset.Synthetic(
		timedataset.GenerateT(n, time.Hour, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		timedataset.GenerateLinearY(n, 100, 1),
	)
	require.Nil(t, timedataset.SaveCSV(filepath.Join(dataDir, "Combined_BTC_Data.csv"), d))

	cfg := `
data:
  dir: ` + dataDir + `
  coins: [BTC]
window:
  look_back: 3
forecast:
  horizons: [1, 5]
  max_horizon: 10
model:
  kinds: [linear, forest]
output:
  dir: ` + outDir + `
`
	cfgPath := filepath.Join(dir, "config.yaml")
	require.Nil(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	require.Nil(t, run(context.Background(), []string{"train", "-config", cfgPath}))

	for _, name := range []string{"linear_BTC_Predictions.csv", "forest_BTC_Future.csv", "BTC_Report.json"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.Nil(t, err, name)
	}

	b, err := os.ReadFile(filepath.Join(outDir, "BTC_Report.json"))
	require.Nil(t, err)
	var report pricecast.Report
	require.Nil(t, json.Unmarshal(b, &report))
	assert.Equal(t, "BTC", report.Coin)
	require.Len(t, report.Results, 2)
	assert.Len(t, report.Results[0].Future, 2)

	// missing data for every requested coin fails the run
	assert.NotNil(t, run(context.Background(), []string{"train", "-config", cfgPath, "-coins", "sol"}))
}
