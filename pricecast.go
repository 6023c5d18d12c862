// Package pricecast runs cryptocurrency price forecasting experiments. Price rows are enriched
// with engineered columns, windowed into supervised examples, fit by every configured engine,
// evaluated on a chronological hold out and rolled forward to future horizons.
package pricecast

import (
	"fmt"

	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/timedataset"
)

// Prepare returns a copy of the dataset with the configured feature columns appended. The input
// is left untouched. A nil opt returns a plain copy.
func Prepare(d *timedataset.Dataset, opt *FeatureOptions) (*timedataset.Dataset, error) {
	res := d.Copy()
	if opt == nil {
		return res, nil
	}

	if opt.Sentiment != nil {
		if err := feature.AddDaily(res, feature.ColumnSentiment, opt.Sentiment); err != nil {
			return nil, fmt.Errorf("unable to add sentiment, %w", err)
		}
	}
	if opt.Calendar {
		if err := feature.AddCalendar(res, opt.Holidays); err != nil {
			return nil, fmt.Errorf("unable to add calendar flags, %w", err)
		}
	}
	if opt.Indicators {
		rsi, ema := opt.RSIPeriod, opt.EMAPeriod
		if rsi == 0 {
			rsi = feature.DefaultRSIPeriod
		}
		if ema == 0 {
			ema = feature.DefaultEMAPeriod
		}
		if err := feature.AddIndicators(res, rsi, ema); err != nil {
			return nil, fmt.Errorf("unable to add indicators, %w", err)
		}
	}
	return res, nil
}
