// Package multistep produces multi-step-ahead forecasts from a single-step model by feeding each
// prediction back into the look-back window.
package multistep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/window"
)

// DefaultMaxHorizon bounds the number of chained predictions. 43200 steps is 30 days of minutes.
const DefaultMaxHorizon = 43200

// DefaultHorizons are the future intervals reported by an experiment
var DefaultHorizons = Horizons{10, 180, 1440, 10080, 43200}

var (
	ErrInvalidHorizon   = errors.New("horizon must be a positive number of steps")
	ErrHorizonTooLarge  = errors.New("horizon exceeds maximum")
	ErrNoHorizons       = errors.New("no horizons requested")
	ErrNoTarget         = errors.New("seed target not found in fields")
	ErrNoSchema         = errors.New("predictor has no schema")
	ErrPredictionLength = errors.New("predictor returned an unexpected number of values")
	ErrUnknownCarryMode = errors.New("unknown carry mode")
)

// Carry selects the values of the non-target fields in each synthetic row
type Carry int

const (
	// CarryHold repeats the last observed row
	CarryHold Carry = iota
	// CarryZero zero fills
	CarryZero
)

func (c Carry) String() string {
	switch c {
	case CarryHold:
		return "hold"
	case CarryZero:
		return "zero"
	default:
		return fmt.Sprintf("Carry(%d)", int(c))
	}
}

func ParseCarry(s string) (Carry, error) {
	switch strings.ToLower(s) {
	case "", "hold":
		return CarryHold, nil
	case "zero":
		return CarryZero, nil
	default:
		return 0, fmt.Errorf("%q, %w", s, ErrUnknownCarryMode)
	}
}

// Horizons is an ordered set of step counts
type Horizons []int

// Max returns the largest horizon, 0 when empty
func (h Horizons) Max() int {
	if len(h) == 0 {
		return 0
	}
	return slices.Max(h)
}

// Validate checks every horizon is positive and at most maxHorizon. A maxHorizon of 0 is
// unbounded.
func (h Horizons) Validate(maxHorizon int) error {
	if len(h) == 0 {
		return ErrNoHorizons
	}
	for _, step := range h {
		if step < 1 {
			return fmt.Errorf("%d, %w", step, ErrInvalidHorizon)
		}
		if maxHorizon > 0 && step > maxHorizon {
			return fmt.Errorf("%d > %d, %w", step, maxHorizon, ErrHorizonTooLarge)
		}
	}
	return nil
}

// Predictor is a fitted single-step model
type Predictor interface {
	Predict(ctx context.Context, t *feature.Table) ([]float64, error)
	Schema() *feature.Schema
}

type Options struct {
	Carry      Carry
	MaxHorizon int
	// Interval is the spacing between rows and stamps each forecast point. Zero leaves the
	// timestamps unset.
	Interval time.Duration
}

func NewDefaultOptions() *Options {
	return &Options{
		Carry:      CarryHold,
		MaxHorizon: DefaultMaxHorizon,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.Carry != CarryHold && o.Carry != CarryZero {
		return nil, fmt.Errorf("%s, %w", o.Carry, ErrUnknownCarryMode)
	}
	return o, nil
}

// Point is the forecast value at a horizon
type Point struct {
	Horizon int       `json:"horizon"`
	T       time.Time `json:"t"`
	Value   float64   `json:"value"`
}

// Forecast chains predictions once up to the largest horizon and reports the value reached at
// each requested horizon in the order given.
func Forecast(ctx context.Context, p Predictor, seed *window.Seed, horizons Horizons, opt *Options) ([]Point, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if err := horizons.Validate(opt.MaxHorizon); err != nil {
		return nil, err
	}

	path, err := Chain(ctx, p, seed, horizons.Max(), opt)
	if err != nil {
		return nil, err
	}

	res := make([]Point, len(horizons))
	for i, h := range horizons {
		res[i] = Point{Horizon: h, Value: path[h-1]}
		if opt.Interval > 0 {
			res[i].T = seed.T.Add(time.Duration(h) * opt.Interval)
		}
	}
	return res, nil
}

// Chain returns the prediction at every step from 1 to steps. The seed is left untouched.
func Chain(ctx context.Context, p Predictor, seed *window.Seed, steps int, opt *Options) ([]float64, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if steps < 1 {
		return nil, fmt.Errorf("%d, %w", steps, ErrInvalidHorizon)
	}
	if opt.MaxHorizon > 0 && steps > opt.MaxHorizon {
		return nil, fmt.Errorf("%d > %d, %w", steps, opt.MaxHorizon, ErrHorizonTooLarge)
	}
	schema := p.Schema()
	if schema == nil {
		return nil, ErrNoSchema
	}
	targetIdx, ok := seed.TargetIndex()
	if !ok {
		return nil, fmt.Errorf("%q, %w", seed.Target, ErrNoTarget)
	}
	if seed.LookBack() == 0 {
		return nil, window.ErrInsufficientData
	}

	curr := seed.Copy()
	last := slices.Clone(curr.Rows[curr.LookBack()-1])
	next := make([]float64, len(last))

	path := make([]float64, steps)
	for step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		aligned, err := feature.Align(schema, curr.Table(), feature.ExtraDrop)
		if err != nil {
			return nil, fmt.Errorf("unable to align step %d, %w", step+1, err)
		}
		pred, err := p.Predict(ctx, aligned)
		if err != nil {
			return nil, fmt.Errorf("unable to predict step %d, %w", step+1, err)
		}
		if len(pred) != 1 {
			return nil, fmt.Errorf("got %d values at step %d, %w", len(pred), step+1, ErrPredictionLength)
		}
		path[step] = pred[0]

		switch opt.Carry {
		case CarryHold:
			copy(next, last)
		case CarryZero:
			clear(next)
		}
		next[targetIdx] = feature.SanitizeValues(pred)[0]
		if err := curr.Push(next); err != nil {
			return nil, err
		}
	}
	slog.Debug("chained forecast", "steps", steps, "carry", opt.Carry, "last", path[steps-1])
	return path, nil
}
