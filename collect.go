package pricecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aouyang1/go-pricecast/timedataset"
)

// TickerSource returns the latest rows per coin for the given trading pairs
type TickerSource interface {
	Fetch(ctx context.Context, symbols map[string]string) map[string]*timedataset.Dataset
}

// CollectOptions locates the price files of each coin. Patterns take the upper case coin.
type CollectOptions struct {
	Dir string
	// CombinedPattern names the merged file that is read, if present, and rewritten
	CombinedPattern string
	// HistoryPattern names a raw price history used when no combined file exists yet
	HistoryPattern string
}

func (o *CollectOptions) path(pattern, coin string) string {
	return filepath.Join(o.Dir, fmt.Sprintf(pattern, strings.ToUpper(coin)))
}

// Collect fetches the latest ticker row of every coin, merges it into the coin's price history
// and writes the combined file. It returns the number of rows written per coin. Coins whose
// ticker could not be fetched are skipped.
func Collect(ctx context.Context, src TickerSource, symbols map[string]string, opt *CollectOptions) (map[string]int, error) {
	latest := src.Fetch(ctx, symbols)

	coins := make([]string, 0, len(latest))
	for coin := range latest {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	written := make(map[string]int, len(coins))
	for _, coin := range coins {
		base, err := loadHistory(opt, coin)
		if err != nil {
			return written, err
		}

		extra := latest[coin]
		for i := range extra.Rows {
			extra.Rows[i].T = extra.Rows[i].T.UTC()
		}
		if base == nil {
			base = extra
		} else if extra, err = project(extra, base.Fields); err != nil {
			return written, fmt.Errorf("unable to align ticker fields for %s, %w", coin, err)
		}

		merged, err := timedataset.Merge(base, extra)
		if err != nil {
			return written, fmt.Errorf("unable to merge %s, %w", coin, err)
		}
		path := opt.path(opt.CombinedPattern, coin)
		if err := timedataset.SaveCSV(path, merged); err != nil {
			return written, err
		}
		slog.Info("collected prices", "coin", coin, "rows", merged.Len(), "path", path)
		written[coin] = merged.Len()
	}
	return written, nil
}

// loadHistory prefers the combined file and falls back to the raw history. Both missing is not
// an error and returns nil.
func loadHistory(opt *CollectOptions, coin string) (*timedataset.Dataset, error) {
	patterns := []string{opt.CombinedPattern}
	if opt.HistoryPattern != "" {
		patterns = append(patterns, opt.HistoryPattern)
	}
	for _, pattern := range patterns {
		path := opt.path(pattern, coin)
		d, err := timedataset.LoadCSV(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	slog.Warn("no price history found, starting from the ticker row", "coin", coin)
	return nil, nil
}

// project keeps only the given fields of d in their given order
func project(d *timedataset.Dataset, fields []string) (*timedataset.Dataset, error) {
	idx := make([]int, len(fields))
	for i, f := range fields {
		j, exists := d.Index(f)
		if !exists {
			return nil, fmt.Errorf("%q, %w", f, timedataset.ErrUnknownField)
		}
		idx[i] = j
	}
	rows := make([]timedataset.Row, d.Len())
	for i, r := range d.Rows {
		vals := make([]float64, len(idx))
		for k, j := range idx {
			vals[k] = r.Values[j]
		}
		rows[i] = timedataset.Row{T: r.T, Values: vals}
	}
	return timedataset.New(fields, rows)
}
