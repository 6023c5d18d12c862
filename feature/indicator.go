package feature

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/markcheno/go-talib"
)

const (
	DefaultRSIPeriod = 14
	DefaultEMAPeriod = 20
)

var (
	ErrInvalidPeriod    = errors.New("indicator period must be at least 2")
	ErrInsufficientRows = errors.New("not enough rows to compute indicator")
)

// RSIColumn and EMAColumn name the indicator columns for a period
func RSIColumn(period int) string {
	return fmt.Sprintf("rsi_%d", period)
}

func EMAColumn(period int) string {
	return fmt.Sprintf("ema_%d", period)
}

// RSI computes the relative strength index of closes. The warm-up rows before the first full
// period carry the first computed value.
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, ErrInvalidPeriod
	}
	if len(closes) <= period {
		return nil, fmt.Errorf("rsi(%d) needs more than %d rows, got %d, %w", period, period, len(closes), ErrInsufficientRows)
	}
	return backfill(talib.Rsi(closes, period), period), nil
}

// EMA computes the exponential moving average of closes seeded with the simple average of the
// first period values. Warm-up rows carry the first computed value.
func EMA(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, ErrInvalidPeriod
	}
	if len(closes) < period {
		return nil, fmt.Errorf("ema(%d) needs at least %d rows, got %d, %w", period, period, len(closes), ErrInsufficientRows)
	}
	return backfill(talib.Ema(closes, period), period-1), nil
}

func backfill(vals []float64, start int) []float64 {
	for i := 0; i < start; i++ {
		vals[i] = vals[start]
	}
	return vals
}

// AddIndicators appends RSI and EMA columns computed on the price field
func AddIndicators(d *timedataset.Dataset, rsiPeriod, emaPeriod int) error {
	closes, err := d.Column(timedataset.FieldPrice)
	if err != nil {
		return err
	}

	rsi, err := RSI(closes, rsiPeriod)
	if err != nil {
		return fmt.Errorf("unable to compute rsi, %w", err)
	}
	ema, err := EMA(closes, emaPeriod)
	if err != nil {
		return fmt.Errorf("unable to compute ema, %w", err)
	}

	if err := d.AddColumn(RSIColumn(rsiPeriod), rsi); err != nil {
		return err
	}
	return d.AddColumn(EMAColumn(emaPeriod), ema)
}
