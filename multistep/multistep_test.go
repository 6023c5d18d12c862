package multistep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/aouyang1/go-pricecast/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepPredictor predicts the newest price plus the newest open and counts its calls
type stepPredictor struct {
	schema *feature.Schema
	calls  int
	err    error
}

func (s *stepPredictor) Schema() *feature.Schema {
	return s.schema
}

func (s *stepPredictor) Predict(ctx context.Context, t *feature.Table) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	price, err := t.Column("price_lag_1")
	if err != nil {
		return nil, err
	}
	open, err := t.Column("open_lag_1")
	if err != nil {
		return nil, err
	}
	res := make([]float64, t.Len())
	for i := range res {
		res[i] = price[i] + open[i]/100.0
	}
	return res, nil
}

func testSeed(t *testing.T, lookBack int) *window.Seed {
	t.Helper()
	n := 10
	d := timedataset.Synthetic(
		timedataset.GenerateT(n, time.Minute, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		timedataset.GenerateLinearY(n, 100, 1),
	)
	seed, err := window.NewSeed(d, &window.Options{LookBack: lookBack})
	require.Nil(t, err)
	return seed
}

func newStepPredictor(t *testing.T, seed *window.Seed) *stepPredictor {
	t.Helper()
	schema, err := feature.NewSchema(seed.Columns())
	require.Nil(t, err)
	return &stepPredictor{schema: schema}
}

func TestForecast(t *testing.T) {
	testData := map[string]struct {
		horizons Horizons
		carry    Carry
		expected []float64
	}{
		"single step": {
			horizons: Horizons{1},
			expected: []float64{110.08},
		},
		"hold open": {
			horizons: Horizons{1, 3},
			expected: []float64{110.08, 110.08 + 2*1.08},
		},
		"zero open": {
			horizons: Horizons{3, 1},
			carry:    CarryZero,
			expected: []float64{110.08, 110.08},
		},
		"repeated horizon": {
			horizons: Horizons{2, 2},
			expected: []float64{111.16, 111.16},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			seed := testSeed(t, 3)
			p := newStepPredictor(t, seed)
			opt := &Options{Carry: td.carry, MaxHorizon: DefaultMaxHorizon, Interval: time.Minute}

			res, err := Forecast(context.Background(), p, seed, td.horizons, opt)
			require.Nil(t, err)
			require.Len(t, res, len(td.horizons))
			assert.Equal(t, td.horizons.Max(), p.calls)

			vals := make([]float64, len(res))
			for i, pt := range res {
				vals[i] = pt.Value
				assert.Equal(t, td.horizons[i], pt.Horizon)
				assert.Equal(t, seed.T.Add(time.Duration(pt.Horizon)*time.Minute), pt.T)
			}
			assert.InDeltaSlice(t, td.expected, vals, 1e-9)
		})
	}
}

func TestForecastLeavesSeed(t *testing.T) {
	seed := testSeed(t, 3)
	before := seed.Copy()
	_, err := Forecast(context.Background(), newStepPredictor(t, seed), seed, Horizons{5}, nil)
	require.Nil(t, err)
	assert.Equal(t, before, seed)
}

func TestForecastPrefixConsistent(t *testing.T) {
	seed := testSeed(t, 4)
	p := newStepPredictor(t, seed)

	short, err := Forecast(context.Background(), p, seed, Horizons{7}, nil)
	require.Nil(t, err)
	long, err := Forecast(context.Background(), p, seed, Horizons{7, 20}, nil)
	require.Nil(t, err)
	assert.Equal(t, short[0].Value, long[0].Value)
	assert.True(t, short[0].T.IsZero())
}

func TestForecastWithAdapter(t *testing.T) {
	ctx := context.Background()
	n := 60
	d := timedataset.Synthetic(
		timedataset.GenerateT(n, time.Minute, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		timedataset.GenerateLinearY(n, 100, 1),
	)
	wopt := &window.Options{LookBack: 3}
	ts, err := window.Build(d, wopt)
	require.Nil(t, err)

	a := adapter.NewLinear()
	require.Nil(t, a.Fit(ctx, ts.Table()))

	seed, err := window.NewSeed(d, wopt)
	require.Nil(t, err)

	direct, err := a.Predict(ctx, seed.Table())
	require.Nil(t, err)

	res, err := Forecast(ctx, a, seed, Horizons{1}, nil)
	require.Nil(t, err)
	assert.InDelta(t, direct[0], res[0].Value, 1e-9)
	assert.InDelta(t, 160.0, res[0].Value, 1e-3)
}

func TestForecastErrors(t *testing.T) {
	seed := testSeed(t, 3)
	boom := errors.New("boom")

	testData := map[string]struct {
		p        Predictor
		seed     *window.Seed
		horizons Horizons
		opt      *Options
		ctx      func() context.Context
		err      error
	}{
		"zero horizon": {
			horizons: Horizons{0, 1},
			err:      ErrInvalidHorizon,
		},
		"negative horizon": {
			horizons: Horizons{-3},
			err:      ErrInvalidHorizon,
		},
		"too large": {
			horizons: Horizons{11},
			opt:      &Options{MaxHorizon: 10},
			err:      ErrHorizonTooLarge,
		},
		"no horizons": {
			err: ErrNoHorizons,
		},
		"bad carry": {
			horizons: Horizons{1},
			opt:      &Options{Carry: Carry(7)},
			err:      ErrUnknownCarryMode,
		},
		"unfitted": {
			p:        &stepPredictor{},
			horizons: Horizons{1},
			err:      ErrNoSchema,
		},
		"predict failure": {
			p:        &stepPredictor{schema: &feature.Schema{Columns: seed.Columns()}, err: boom},
			horizons: Horizons{1},
			err:      boom,
		},
		"unknown target": {
			seed:     &window.Seed{Fields: seed.Fields, Target: "close", Rows: seed.Rows},
			horizons: Horizons{1},
			err:      ErrNoTarget,
		},
		"schema mismatch": {
			p:        &stepPredictor{schema: &feature.Schema{Columns: []string{"rsi_14"}}},
			horizons: Horizons{1},
			err:      feature.ErrSchemaMismatch,
		},
		"canceled": {
			horizons: Horizons{1},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			err: context.Canceled,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			p := td.p
			if p == nil {
				p = newStepPredictor(t, seed)
			}
			s := td.seed
			if s == nil {
				s = seed
			}
			ctx := context.Background()
			if td.ctx != nil {
				ctx = td.ctx()
			}
			_, err := Forecast(ctx, p, s, td.horizons, td.opt)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestCarry(t *testing.T) {
	c, err := ParseCarry("ZERO")
	require.Nil(t, err)
	assert.Equal(t, CarryZero, c)
	assert.Equal(t, "zero", c.String())

	c, err = ParseCarry("")
	require.Nil(t, err)
	assert.Equal(t, CarryHold, c)

	_, err = ParseCarry("linear")
	assert.ErrorIs(t, err, ErrUnknownCarryMode)
	assert.Equal(t, "Carry(4)", Carry(4).String())
}

func TestHorizons(t *testing.T) {
	assert.Equal(t, 43200, DefaultHorizons.Max())
	assert.Nil(t, DefaultHorizons.Validate(DefaultMaxHorizon))
	assert.Equal(t, 0, Horizons{}.Max())
	assert.Nil(t, Horizons{1e6}.Validate(0))
}
