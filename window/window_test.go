package window

import (
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast/timedataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func syntheticDataset(n int) *timedataset.Dataset {
	return timedataset.Synthetic(
		timedataset.GenerateT(n, time.Minute, start),
		timedataset.GenerateLinearY(n, 100, 1),
	)
}

func TestBuildTenRows(t *testing.T) {
	d := syntheticDataset(10)

	ts, err := Build(d, &Options{LookBack: 5})
	require.Nil(t, err)
	require.Equal(t, 5, ts.Len())

	var expected []float64
	for _, r := range d.Rows[:5] {
		expected = append(expected, r.Values...)
	}
	assert.Equal(t, expected, ts.Examples[0].Features)
	assert.Equal(t, d.Rows[5].Values[0], ts.Examples[0].Label)
	assert.Equal(t, d.Rows[5].T, ts.Examples[0].T)

	assert.Equal(t, timedataset.FieldPrice, ts.Target)
	assert.Len(t, ts.Columns, 5*len(timedataset.PriceFields))
	assert.Equal(t, "price_lag_5", ts.Columns[0])
	assert.Equal(t, "change_pct_lag_1", ts.Columns[len(ts.Columns)-1])

	assert.Equal(t, []float64{105, 106, 107, 108, 109}, ts.Labels())
}

func TestBuildExampleCount(t *testing.T) {
	for n := 0; n <= 12; n++ {
		for lookBack := 1; lookBack <= 6; lookBack++ {
			d := syntheticDataset(n)

			ts, err := Build(d, &Options{LookBack: lookBack, AllowEmpty: true})
			require.Nil(t, err)
			assert.Equal(t, max(n-lookBack, 0), ts.Len(), "n=%d look back=%d", n, lookBack)
			for i, ex := range ts.Examples {
				assert.Equal(t, d.Rows[i+lookBack].Values[0], ex.Label)
				assert.Len(t, ex.Features, lookBack*len(d.Fields))
			}

			_, err = Build(d, &Options{LookBack: lookBack})
			if n <= lookBack {
				assert.ErrorIs(t, err, ErrInsufficientData)
			} else {
				assert.Nil(t, err)
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	d := syntheticDataset(10)

	_, err := Build(d, &Options{LookBack: 0})
	assert.ErrorIs(t, err, ErrInvalidLookBack)

	_, err = Build(d, &Options{LookBack: 2, Target: "close"})
	assert.ErrorIs(t, err, ErrUnknownTarget)

	ts, err := Build(d, nil)
	require.Nil(t, err)
	assert.Equal(t, 10-DefaultLookBack, ts.Len())
}

func TestBuildOtherTarget(t *testing.T) {
	d := syntheticDataset(4)
	ts, err := Build(d, &Options{LookBack: 1, Target: timedataset.FieldOpen})
	require.Nil(t, err)
	assert.Equal(t, []float64{100, 101, 102}, ts.Labels())
}

func TestFeatureNames(t *testing.T) {
	names := FeatureNames([]string{"price", "news_sentiment"}, 2)
	assert.Equal(t, []string{"price_lag_2", "news_sentiment_lag_2", "price_lag_1", "news_sentiment_lag_1"}, names)
}

func TestTable(t *testing.T) {
	d := syntheticDataset(4)
	ts, err := Build(d, &Options{LookBack: 2})
	require.Nil(t, err)

	tbl := ts.Table()
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, timedataset.FieldPrice, tbl.Columns[len(tbl.Columns)-1])

	features, target, err := tbl.SplitTarget()
	require.Nil(t, err)
	assert.Equal(t, ts.Columns, features.Columns)
	assert.Equal(t, ts.Labels(), target)
	assert.Equal(t, ts.Features(), features)
}

func TestSplit(t *testing.T) {
	ts, err := Build(syntheticDataset(15), &Options{LookBack: 5})
	require.Nil(t, err)

	train, test, err := ts.Split(0.8)
	require.Nil(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.True(t, train.Examples[train.Len()-1].T.Before(test.Examples[0].T))
	assert.Equal(t, ts.Examples[8], test.Examples[0])

	_, _, err = ts.Split(1)
	assert.ErrorIs(t, err, ErrInvalidSplit)
	_, _, err = ts.Split(0)
	assert.ErrorIs(t, err, ErrInvalidSplit)
}

func TestSeed(t *testing.T) {
	d := syntheticDataset(8)

	seed, err := NewSeed(d, &Options{LookBack: 3})
	require.Nil(t, err)
	assert.Equal(t, 3, seed.LookBack())
	assert.Equal(t, d.Rows[7].T, seed.T)
	assert.Equal(t, d.Rows[5].Values, seed.Rows[0])

	idx, exists := seed.TargetIndex()
	assert.True(t, exists)
	assert.Equal(t, 0, idx)

	// the seed flattens exactly like a training window ending at the last row
	ts, err := Build(d, &Options{LookBack: 3})
	require.Nil(t, err)
	assert.Equal(t, ts.Columns, seed.Columns())
	next := syntheticDataset(9)
	tsNext, err := Build(next, &Options{LookBack: 3})
	require.Nil(t, err)
	assert.Equal(t, tsNext.Examples[tsNext.Len()-1].Features, seed.Flatten())

	tbl := seed.Table()
	assert.Len(t, tbl.Rows, 1)
	assert.Equal(t, seed.Columns(), tbl.Columns)

	cp := seed.Copy()
	newest := []float64{1, 2, 3, 4, 5, 6}
	require.Nil(t, cp.Push(newest))
	assert.Equal(t, newest, cp.Rows[2])
	assert.Equal(t, d.Rows[6].Values, cp.Rows[0])
	assert.Equal(t, d.Rows[5].Values, seed.Rows[0], "copy is independent")

	assert.ErrorIs(t, cp.Push([]float64{1}), timedataset.ErrRowLenMismatch)

	_, err = NewSeed(syntheticDataset(2), &Options{LookBack: 3})
	assert.ErrorIs(t, err, ErrInsufficientData)
}
