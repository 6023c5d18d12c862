package feature

import (
	"time"

	"github.com/aouyang1/go-pricecast/timedataset"
)

// ColumnSentiment is the column holding the daily mean news sentiment
const ColumnSentiment = "news_sentiment"

// Day truncates t to midnight UTC, the key used for daily values
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDaily appends a column whose value for each row is the daily value of the row's UTC day.
// Days without a value are 0.
func AddDaily(d *timedataset.Dataset, column string, daily map[time.Time]float64) error {
	vals := make([]float64, d.Len())
	for i, r := range d.Rows {
		vals[i] = daily[Day(r.T)]
	}
	return d.AddColumn(column, vals)
}
