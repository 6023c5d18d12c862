package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aouyang1/go-pricecast"
	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/aouyang1/go-pricecast/window"

	"golang.org/x/sync/singleflight"
)

var ErrUnknownCoin = errors.New("unknown coin")

// Snapshot is a fitted engine published for one coin. It is never modified after publishing.
type Snapshot struct {
	Coin string
	// Version is the modification time of the price file the engine was fit on
	Version  string
	Adapter  adapter.Adapter
	Seed     *window.Seed
	Interval time.Duration
	Rows     int
	FittedAt time.Time
}

// Registry publishes one snapshot per coin and refits when the coin's price file changes.
// Concurrent requests for a stale coin share a single fit.
type Registry struct {
	opt      *Options
	recorder pricecast.FitRecorder

	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	group     singleflight.Group
}

// NewRegistry expects validated options. recorder is optional.
func NewRegistry(opt *Options, recorder pricecast.FitRecorder) *Registry {
	return &Registry{
		opt:       opt,
		recorder:  recorder,
		snapshots: make(map[string]*Snapshot),
	}
}

func (r *Registry) path(coin string) string {
	return filepath.Join(r.opt.DataDir, fmt.Sprintf(r.opt.FilePattern, coin))
}

// Version returns the current version of the coin's price file
func (r *Registry) Version(coin string) (string, error) {
	coin = strings.ToUpper(coin)
	if !slices.Contains(r.opt.Coins, coin) {
		return "", fmt.Errorf("%q, %w", coin, ErrUnknownCoin)
	}
	info, err := os.Stat(r.path(coin))
	if err != nil {
		return "", fmt.Errorf("unable to stat price file of %s, %w", coin, err)
	}
	return strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}

// Loaded returns the published snapshot of a coin without refitting, nil if none
func (r *Registry) Loaded(coin string) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshots[strings.ToUpper(coin)]
}

// Get returns a snapshot fit on the current price file of the coin
func (r *Registry) Get(ctx context.Context, coin string) (*Snapshot, error) {
	coin = strings.ToUpper(coin)
	version, err := r.Version(coin)
	if err != nil {
		return nil, err
	}
	if snap := r.Loaded(coin); snap != nil && snap.Version == version {
		return snap, nil
	}

	// the fit is shared by every waiting request so one canceled caller must not abort it
	fitCtx := context.WithoutCancel(ctx)
	v, err, shared := r.group.Do(coin+"@"+version, func() (any, error) {
		snap, err := r.build(fitCtx, coin, version)
		if err != nil {
			return nil, err
		}
		return r.publish(snap), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("shared snapshot fit", "coin", coin, "version", version)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return v.(*Snapshot), nil
}

// publish stores snap unless a snapshot of a newer file version is already published, in which
// case the newer one is returned
func (r *Registry) publish(snap *Snapshot) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.snapshots[snap.Coin]; cur != nil && versionBefore(snap.Version, cur.Version) {
		slog.Debug("dropping stale snapshot", "coin", snap.Coin, "version", snap.Version, "published", cur.Version)
		return cur
	}
	r.snapshots[snap.Coin] = snap
	return snap
}

// versionBefore compares file versions as nanosecond modification times
func versionBefore(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA != nil || errB != nil {
		return a < b
	}
	return ai < bi
}

// Warm fits every configured coin, logging the coins that fail
func (r *Registry) Warm(ctx context.Context) {
	for _, coin := range r.opt.Coins {
		if _, err := r.Get(ctx, coin); err != nil {
			slog.Warn("unable to fit coin", "coin", coin, "error", err)
		}
	}
}

func (r *Registry) build(ctx context.Context, coin, version string) (*Snapshot, error) {
	d, err := timedataset.LoadCSV(r.path(coin))
	if err != nil {
		return nil, err
	}
	prepared, err := pricecast.Prepare(d, r.opt.Features)
	if err != nil {
		return nil, err
	}
	ts, err := window.Build(prepared, r.opt.Window)
	if err != nil {
		return nil, fmt.Errorf("unable to window %s, %w", coin, err)
	}
	seed, err := window.NewSeed(prepared, r.opt.Window)
	if err != nil {
		return nil, err
	}
	interval, err := prepared.Times().EstimateFreq()
	if err != nil {
		interval = 0
	}

	a, err := adapter.New(r.opt.Kind, r.opt.Adapter)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	err = a.Fit(ctx, ts.Table())
	elapsed := time.Since(start)
	if r.recorder != nil {
		r.recorder.RecordFit(string(r.opt.Kind), coin, elapsed, err)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to fit %s model for %s, %w", r.opt.Kind, coin, err)
	}

	slog.Info("published model snapshot", "coin", coin, "model", r.opt.Kind, "version", version,
		"rows", prepared.Len(), "fit_duration", elapsed)
	return &Snapshot{
		Coin:     coin,
		Version:  version,
		Adapter:  a,
		Seed:     seed,
		Interval: interval,
		Rows:     prepared.Len(),
		FittedAt: time.Now(),
	}, nil
}
