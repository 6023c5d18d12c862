package feature

import (
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCalendar(t *testing.T) {
	start := time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)
	n := 10
	d := timedataset.Synthetic(timedataset.GenerateT(n, 24*time.Hour, start), timedataset.GenerateConstY(n, 1))

	require.Nil(t, AddCalendar(d, nil))

	weekend, err := d.Column(ColumnWeekend)
	require.Nil(t, err)
	assert.Equal(t, []float64{0, 1, 1, 0, 0, 0, 0, 0, 1, 1}, weekend)

	holiday, err := d.Column(ColumnHoliday)
	require.Nil(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 0, 0, 0, 0, 0}, holiday)

	assert.ErrorIs(t, AddCalendar(d, nil), timedataset.ErrFieldExists)
}

func TestHolidayDays(t *testing.T) {
	testData := map[string]struct {
		hols     []*cal.Holiday
		start    time.Time
		end      time.Time
		expected []day
	}{
		"christmas over two years": {
			hols:  []*cal.Holiday{us.ChristmasDay},
			start: time.Date(2024, 12, 8, 1, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 12, 8, 1, 0, 0, 0, time.UTC),
			expected: []day{
				{2024, time.December, 25},
				{2025, time.December, 25},
			},
		},
		"independence day observed on friday": {
			hols:     []*cal.Holiday{us.IndependenceDay},
			start:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			expected: []day{{2026, time.July, 3}},
		},
		"thanksgiving": {
			hols:     []*cal.Holiday{us.ThanksgivingDay},
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			expected: []day{{2024, time.November, 28}},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			days := holidayDays(td.hols, td.start, td.end)
			require.Len(t, days, len(td.expected))
			for _, e := range td.expected {
				assert.Contains(t, days, e)
			}
		})
	}
}

func TestIsWeekend(t *testing.T) {
	sat := time.Date(2024, 1, 6, 23, 30, 0, 0, time.UTC)
	assert.True(t, IsWeekend(sat))

	// same instant is already Sunday further east
	tokyo := time.FixedZone("jst", 9*3600)
	assert.True(t, IsWeekend(sat.In(tokyo)))

	fri := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.False(t, IsWeekend(fri))
}

func TestAddDaily(t *testing.T) {
	rows := []timedataset.Row{
		{T: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Values: []float64{1}},
		{T: time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), Values: []float64{2}},
		{T: time.Date(2024, 1, 2, 1, 0, 0, 0, time.FixedZone("est", -5*3600)), Values: []float64{3}},
		{T: time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC), Values: []float64{4}},
	}
	d, err := timedataset.New([]string{timedataset.FieldPrice}, rows)
	require.Nil(t, err)

	daily := map[time.Time]float64{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC): 0.5,
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC): -0.25,
	}
	require.Nil(t, AddDaily(d, ColumnSentiment, daily))

	sentiment, err := d.Column(ColumnSentiment)
	require.Nil(t, err)
	assert.Equal(t, []float64{0.5, 0.5, -0.25, 0}, sentiment)
}

func TestIndicators(t *testing.T) {
	ema, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{2, 2, 2, 3, 4}, ema, 1e-9)

	rsi, err := RSI([]float64{1, 2, 3, 4}, 2)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{100, 100, 100, 100}, rsi, 1e-9)

	_, err = RSI([]float64{1, 2}, 2)
	assert.ErrorIs(t, err, ErrInsufficientRows)
	_, err = EMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientRows)
	_, err = EMA([]float64{1, 2}, 1)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := timedataset.Synthetic(timedataset.GenerateT(30, time.Hour, start), timedataset.GenerateConstY(30, 7))
	require.Nil(t, AddIndicators(d, DefaultRSIPeriod, DefaultEMAPeriod))

	emaCol, err := d.Column(EMAColumn(DefaultEMAPeriod))
	require.Nil(t, err)
	for _, v := range emaCol {
		assert.InDelta(t, 7.0, v, 1e-9)
	}

	rsiCol, err := d.Column(RSIColumn(DefaultRSIPeriod))
	require.Nil(t, err)
	assert.Equal(t, make([]float64, 30), rsiCol)

	short := timedataset.Synthetic(timedataset.GenerateT(5, time.Hour, start), timedataset.GenerateConstY(5, 7))
	assert.ErrorIs(t, AddIndicators(short, DefaultRSIPeriod, DefaultEMAPeriod), ErrInsufficientRows)
}
