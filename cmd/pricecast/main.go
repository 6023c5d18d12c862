// Command pricecast collects crypto prices, evaluates forecasting models on them and serves
// predictions.
//
//	pricecast collect [-config file] [-coins BTC,ETH]
//	pricecast train   [-config file] [-coins BTC,ETH] [-profile cpu|mem]
//	pricecast serve   [-config file] [-profile cpu|mem]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/aouyang1/go-pricecast"
	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/artifact"
	"github.com/aouyang1/go-pricecast/cache"
	"github.com/aouyang1/go-pricecast/config"
	"github.com/aouyang1/go-pricecast/metrics"
	"github.com/aouyang1/go-pricecast/sentiment"
	"github.com/aouyang1/go-pricecast/server"
	"github.com/aouyang1/go-pricecast/ticker"
	"github.com/aouyang1/go-pricecast/timedataset"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

// HistoryPattern names the raw exported price history collect starts from
const HistoryPattern = "%s_Historical_Data.csv"

var (
	ErrUsage          = errors.New("usage: pricecast <collect|train|serve> [-config file] [-coins list] [-profile cpu|mem]")
	ErrUnknownProfile = errors.New("unknown profile mode")
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("pricecast failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := fs.String("config", "", "yaml config file, defaults and environment only when empty")
	coinList := fs.String("coins", "", "comma separated coins, the configured coins when empty")
	profileMode := fs.String("profile", "", "write a cpu or mem profile to the working directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Logging))

	if *profileMode != "" {
		p, err := profileOption(*profileMode)
		if err != nil {
			return err
		}
		defer profile.Start(p, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	coins := parseCoins(*coinList, cfg.Data.Coins)
	switch cmd {
	case "collect":
		return collect(ctx, cfg, coins)
	case "train":
		return train(ctx, cfg, coins)
	case "serve":
		return serve(ctx, cfg)
	default:
		return fmt.Errorf("%q, %w", cmd, ErrUsage)
	}
}

func newLogger(l config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func profileOption(mode string) (func(*profile.Profile), error) {
	switch mode {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfile, nil
	default:
		return nil, fmt.Errorf("%q, %w", mode, ErrUnknownProfile)
	}
}

func parseCoins(list string, fallback []string) []string {
	if strings.TrimSpace(list) == "" {
		return fallback
	}
	var coins []string
	for _, c := range strings.Split(list, ",") {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" && !slices.Contains(coins, c) {
			coins = append(coins, c)
		}
	}
	return coins
}

func featureOptions(ctx context.Context, cfg *config.Config) *pricecast.FeatureOptions {
	opt := &pricecast.FeatureOptions{
		Calendar:   cfg.Data.Calendar,
		Indicators: cfg.Data.Indicators,
		RSIPeriod:  cfg.Data.RSIPeriod,
		EMAPeriod:  cfg.Data.EMAPeriod,
	}
	if cfg.Data.Sentiment {
		headlines := sentiment.NewClient(cfg.News.Feeds, cfg.News.Timeout).Fetch(ctx)
		opt.Sentiment = sentiment.DailyMean(headlines, sentiment.NewScorer())
		slog.Info("scored news sentiment", "headlines", len(headlines), "days", len(opt.Sentiment))
	}
	return opt
}

func collect(ctx context.Context, cfg *config.Config, coins []string) error {
	symbols := make(map[string]string, len(coins))
	for _, coin := range coins {
		symbol, ok := cfg.Ticker.Symbols[coin]
		if !ok {
			slog.Warn("no ticker symbol configured", "coin", coin)
			continue
		}
		symbols[coin] = symbol
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("unable to create data dir, %w", err)
	}

	client := ticker.NewClient(&ticker.Options{
		BaseURL:           cfg.Ticker.BaseURL,
		RequestsPerMinute: cfg.Ticker.RequestsPerMinute,
		Timeout:           cfg.Ticker.Timeout,
	})
	written, err := pricecast.Collect(ctx, client, symbols, &pricecast.CollectOptions{
		Dir:             cfg.Data.Dir,
		CombinedPattern: cfg.Data.FilePattern,
		HistoryPattern:  HistoryPattern,
	})
	if err != nil {
		return err
	}
	slog.Info("collect finished", "coins", len(written), "requested", len(symbols))
	return nil
}

func train(ctx context.Context, cfg *config.Config, coins []string) error {
	kinds := make([]adapter.Kind, 0, len(cfg.Model.Kinds))
	for _, k := range cfg.Model.Kinds {
		kind, err := adapter.ParseKind(k)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}
	fopt, err := cfg.Forecast.Options(0)
	if err != nil {
		return err
	}
	writer, err := artifact.NewWriter(artifact.Options{
		Dir:     cfg.Output.Dir,
		Parquet: cfg.Output.Parquet,
		Charts:  cfg.Output.Charts,
	})
	if err != nil {
		return err
	}

	e, err := pricecast.NewExperiment(&pricecast.Options{
		Window:     cfg.Window.Options(),
		Features:   featureOptions(ctx, cfg),
		Kinds:      kinds,
		Adapter:    cfg.Model.AdapterOptions(),
		TrainRatio: cfg.Forecast.TrainRatio,
		Horizons:   cfg.Horizons(),
		Forecast:   fopt,
	}, writer, nil)
	if err != nil {
		return err
	}

	var failed int
	for _, coin := range coins {
		if err := trainCoin(ctx, cfg, e, coin); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("unable to train coin", "coin", coin, "error", err)
			failed++
		}
	}
	if failed == len(coins) {
		return fmt.Errorf("no coin could be trained out of %d", len(coins))
	}
	return nil
}

func trainCoin(ctx context.Context, cfg *config.Config, e *pricecast.Experiment, coin string) error {
	d, err := timedataset.LoadCSV(cfg.Data.Path(coin))
	if err != nil {
		return err
	}
	report, err := e.Run(ctx, coin, d)
	if err != nil {
		return err
	}
	if best := report.Best(); best != nil {
		slog.Info("best model", "coin", report.Coin, "model", best.Kind, "rmse", best.Scores.RMSE)
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Output.Dir, report.Coin+"_Report.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("unable to write report, %w", err)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	var c cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		r := cache.NewRedis(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err := r.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, serving without a cache", "addr", cfg.Redis.Addr, "error", err)
			r.Close()
		} else {
			c = r
		}
	}
	defer c.Close()

	fopt, err := cfg.Forecast.Options(0)
	if err != nil {
		return err
	}
	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.Disabled {
		metricsPath = ""
	}

	s, err := server.New(&server.Options{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DataDir:         cfg.Data.Dir,
		FilePattern:     cfg.Data.FilePattern,
		Coins:           cfg.Data.Coins,
		Kind:            adapter.Kind(cfg.Model.Serve),
		Adapter:         cfg.Model.AdapterOptions(),
		Window:          cfg.Window.Options(),
		Features:        featureOptions(ctx, cfg),
		Forecast:        fopt,
		MetricsPath:     metricsPath,
	}, c, metrics.New())
	if err != nil {
		return err
	}

	go s.Registry().Warm(ctx)
	return s.Run(ctx)
}
