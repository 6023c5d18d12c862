package pricecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/aouyang1/go-pricecast/window"
	"github.com/rickar/cal/v2"
)

const DefaultTrainRatio = 0.8

var (
	ErrNoKinds           = errors.New("no model kinds configured")
	ErrInvalidTrainRatio = errors.New("train ratio must be between 0 and 1")
)

// FeatureOptions selects the engineered columns appended to each price row before windowing
type FeatureOptions struct {
	// Sentiment holds daily mean news sentiment keyed by UTC midnight. Nil skips the column.
	Sentiment map[time.Time]float64

	Calendar bool
	// Holidays used by the calendar columns, nil uses feature.DefaultHolidays
	Holidays []*cal.Holiday

	Indicators bool
	RSIPeriod  int
	EMAPeriod  int
}

func NewDefaultFeatureOptions() *FeatureOptions {
	return &FeatureOptions{
		RSIPeriod: feature.DefaultRSIPeriod,
		EMAPeriod: feature.DefaultEMAPeriod,
	}
}

// Options configures an experiment
type Options struct {
	Window     *window.Options
	Features   *FeatureOptions
	Kinds      []adapter.Kind
	Adapter    *adapter.Options
	TrainRatio float64
	Horizons   multistep.Horizons
	Forecast   *multistep.Options
}

// NewDefaultOptions evaluates every engine that needs no external model file
func NewDefaultOptions() *Options {
	kinds := make([]adapter.Kind, 0, len(adapter.Kinds))
	for _, k := range adapter.Kinds {
		if k != adapter.KindNeural {
			kinds = append(kinds, k)
		}
	}
	return &Options{
		Window:     window.NewDefaultOptions(),
		Features:   NewDefaultFeatureOptions(),
		Kinds:      kinds,
		TrainRatio: DefaultTrainRatio,
		Horizons:   multistep.DefaultHorizons,
		Forecast:   multistep.NewDefaultOptions(),
	}
}

// Validate fills unset sections with defaults and checks the rest
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	def := NewDefaultOptions()

	win, err := o.Window.Validate()
	if err != nil {
		return nil, err
	}
	o.Window = win

	if o.Features == nil {
		o.Features = def.Features
	}
	if o.Features.RSIPeriod == 0 {
		o.Features.RSIPeriod = def.Features.RSIPeriod
	}
	if o.Features.EMAPeriod == 0 {
		o.Features.EMAPeriod = def.Features.EMAPeriod
	}
	if len(o.Kinds) == 0 {
		return nil, ErrNoKinds
	}
	if o.TrainRatio == 0 {
		o.TrainRatio = def.TrainRatio
	}
	if o.TrainRatio <= 0 || o.TrainRatio >= 1 {
		return nil, fmt.Errorf("%.3f, %w", o.TrainRatio, ErrInvalidTrainRatio)
	}

	forecastOpt, err := o.Forecast.Validate()
	if err != nil {
		return nil, err
	}
	o.Forecast = forecastOpt
	if len(o.Horizons) > 0 {
		if err := o.Horizons.Validate(o.Forecast.MaxHorizon); err != nil {
			return nil, err
		}
	}
	return o, nil
}
