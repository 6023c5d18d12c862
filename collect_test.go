package pricecast

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast/timedataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource map[string]*timedataset.Dataset

func (s staticSource) Fetch(ctx context.Context, symbols map[string]string) map[string]*timedataset.Dataset {
	res := make(map[string]*timedataset.Dataset)
	for coin := range symbols {
		if d, ok := s[coin]; ok {
			res[coin] = d.Copy()
		}
	}
	return res
}

func tickerRow(t *testing.T, ts time.Time, price float64) *timedataset.Dataset {
	t.Helper()
	d, err := timedataset.New(timedataset.PriceFields, []timedataset.Row{
		{T: ts, Values: []float64{price, price - 10, price + 5, price - 15, 1234, 0.5}},
	})
	require.Nil(t, err)
	return d
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	history := "Date,Price,Open,High,Low,Vol.\n" +
		"01/02/2024,\"42,100.5\",\"42,000\",\"42,500\",\"41,900\",1.5K\n" +
		"01/01/2024,\"42,000\",\"41,800\",\"42,200\",\"41,700\",2M\n"
	require.Nil(t, os.WriteFile(filepath.Join(dir, "BTC_Historical_Data.csv"), []byte(history), 0o644))

	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	src := staticSource{
		"BTC": tickerRow(t, now, 43000),
		"ETH": tickerRow(t, now, 2300),
	}
	opt := &CollectOptions{
		Dir:             dir,
		CombinedPattern: "Combined_%s_Data.csv",
		HistoryPattern:  "%s_Historical_Data.csv",
	}

	written, err := Collect(context.Background(), src, map[string]string{"BTC": "BTCUSDT", "ETH": "ETHUSDT", "SOL": "SOLUSDT"}, opt)
	require.Nil(t, err)
	assert.Equal(t, map[string]int{"BTC": 3, "ETH": 1}, written)

	btc, err := timedataset.LoadCSV(filepath.Join(dir, "Combined_BTC_Data.csv"))
	require.Nil(t, err)
	assert.Equal(t, []string{"price", "open", "high", "low", "volume"}, btc.Fields)
	require.Equal(t, 3, btc.Len())
	assert.Equal(t, []float64{42000, 41800, 42200, 41700, 2e6}, btc.Rows[0].Values)
	assert.Equal(t, []float64{43000, 42990, 43005, 42985, 1234}, btc.Rows[2].Values)
	assert.True(t, now.Equal(btc.Rows[2].T))

	// a second run reads the combined file and appends the new row
	src["BTC"] = tickerRow(t, now.Add(time.Hour), 43100)
	written, err = Collect(context.Background(), src, map[string]string{"BTC": "BTCUSDT"}, opt)
	require.Nil(t, err)
	assert.Equal(t, 4, written["BTC"])

	_, err = os.Stat(filepath.Join(dir, "Combined_SOL_Data.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
