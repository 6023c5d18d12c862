package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast"
	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/aouyang1/go-pricecast/window"
)

const (
	DefaultAddr            = ":5000"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultFilePattern     = "Combined_%s_Data.csv"
	DefaultMetricsPath     = "/metrics"
)

var (
	ErrNoCoins        = errors.New("no coins configured")
	ErrInvalidPattern = errors.New("file pattern must contain %s")
)

// Options configures the prediction server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// DataDir holds one price file per coin named by FilePattern with the upper case coin
	DataDir     string
	FilePattern string
	Coins       []string

	// Kind is the engine fitted per coin
	Kind     adapter.Kind
	Adapter  *adapter.Options
	Window   *window.Options
	Features *pricecast.FeatureOptions
	Forecast *multistep.Options

	// MetricsPath serves the Prometheus registry, empty disables the route
	MetricsPath string
}

func NewDefaultOptions() *Options {
	return &Options{
		Addr:            DefaultAddr,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		DataDir:         "data",
		FilePattern:     DefaultFilePattern,
		Coins:           []string{"BTC", "ETH", "SOL"},
		Kind:            adapter.KindForest,
		Window:          window.NewDefaultOptions(),
		Features:        pricecast.NewDefaultFeatureOptions(),
		Forecast:        multistep.NewDefaultOptions(),
		MetricsPath:     DefaultMetricsPath,
	}
}

// Validate fills unset fields with defaults and upper cases the coins
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	def := NewDefaultOptions()
	if o.Addr == "" {
		o.Addr = def.Addr
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = def.ReadTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = def.ShutdownTimeout
	}
	if o.FilePattern == "" {
		o.FilePattern = def.FilePattern
	}
	if !strings.Contains(o.FilePattern, "%s") {
		return nil, fmt.Errorf("%q, %w", o.FilePattern, ErrInvalidPattern)
	}
	if len(o.Coins) == 0 {
		return nil, ErrNoCoins
	}
	coins := make([]string, len(o.Coins))
	for i, c := range o.Coins {
		coins[i] = strings.ToUpper(c)
	}
	o.Coins = coins

	if o.Kind == "" {
		o.Kind = def.Kind
	}
	if _, err := adapter.ParseKind(string(o.Kind)); err != nil {
		return nil, err
	}

	win, err := o.Window.Validate()
	if err != nil {
		return nil, err
	}
	o.Window = win
	if o.Features == nil {
		o.Features = def.Features
	}
	fc, err := o.Forecast.Validate()
	if err != nil {
		return nil, err
	}
	o.Forecast = fc
	return o, nil
}
