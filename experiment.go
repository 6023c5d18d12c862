package pricecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/artifact"
	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/aouyang1/go-pricecast/stats"
	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/aouyang1/go-pricecast/window"
)

var ErrEmptyTestSet = errors.New("no examples left for evaluation after split")

// FitRecorder observes every fit an experiment makes
type FitRecorder interface {
	RecordFit(model, coin string, d time.Duration, err error)
}

// Experiment fits and evaluates every configured engine
type Experiment struct {
	opt      *Options
	writer   *artifact.Writer
	recorder FitRecorder
}

// NewExperiment validates the options. writer and recorder are optional.
func NewExperiment(opt *Options, writer *artifact.Writer, recorder FitRecorder) (*Experiment, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Experiment{opt: opt, writer: writer, recorder: recorder}, nil
}

// Run windows the dataset, splits it chronologically and evaluates each engine. An engine that
// fails is reported with its error and the remaining engines still run. Errors are returned only
// when the data cannot be windowed or split.
func (e *Experiment) Run(ctx context.Context, coin string, d *timedataset.Dataset) (*Report, error) {
	coin = strings.ToUpper(coin)
	prepared, err := Prepare(d, e.opt.Features)
	if err != nil {
		return nil, err
	}
	ts, err := window.Build(prepared, e.opt.Window)
	if err != nil {
		return nil, fmt.Errorf("unable to window %s, %w", coin, err)
	}
	train, test, err := ts.Split(e.opt.TrainRatio)
	if err != nil {
		return nil, err
	}
	if test.Len() == 0 || train.Len() == 0 {
		return nil, fmt.Errorf("%d examples with train ratio %.2f, %w", ts.Len(), e.opt.TrainRatio, ErrEmptyTestSet)
	}
	seed, err := window.NewSeed(prepared, e.opt.Window)
	if err != nil {
		return nil, err
	}

	interval, err := prepared.Times().EstimateFreq()
	if err != nil {
		slog.Warn("unable to estimate row interval, future points are not timestamped", "coin", coin, "error", err)
		interval = 0
	}

	report := &Report{
		Coin:      coin,
		Rows:      prepared.Len(),
		Columns:   ts.Columns,
		TrainSize: train.Len(),
		TestSize:  test.Len(),
		Interval:  interval,
		Results:   make([]ModelResult, 0, len(e.opt.Kinds)),
	}
	for _, kind := range e.opt.Kinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := e.runModel(ctx, coin, kind, train, test, seed, interval)
		if res.Failed() {
			slog.Error("model failed", "coin", coin, "model", kind, "error", res.Error)
		} else {
			slog.Info("model evaluated", "coin", coin, "model", kind,
				"rmse", res.Scores.RMSE, "mape", res.Scores.MAPE, "r2", res.Scores.R2,
				"fit_duration", res.FitDuration)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (e *Experiment) runModel(ctx context.Context, coin string, kind adapter.Kind, train, test *window.TrainingSet, seed *window.Seed, interval time.Duration) ModelResult {
	res := ModelResult{Kind: kind}
	fail := func(err error) ModelResult {
		res.Error = err.Error()
		return res
	}

	a, err := adapter.New(kind, e.opt.Adapter)
	if err != nil {
		return fail(err)
	}
	start := time.Now()
	err = a.Fit(ctx, train.Table())
	res.FitDuration = time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordFit(string(kind), coin, res.FitDuration, err)
	}
	if err != nil {
		return fail(fmt.Errorf("unable to fit, %w", err))
	}
	res.Adapter = a

	predicted, err := a.Predict(ctx, test.Features())
	if err != nil {
		return fail(fmt.Errorf("unable to predict test set, %w", err))
	}
	actual := test.Labels()
	if res.Scores, err = stats.NewScores(predicted, actual); err != nil {
		return fail(err)
	}
	if res.Predictions, err = artifact.NewPredictions(test.Times(), actual, predicted); err != nil {
		return fail(err)
	}

	if len(e.opt.Horizons) > 0 {
		opt := *e.opt.Forecast
		opt.Interval = interval
		if res.Future, err = multistep.Forecast(ctx, a, seed, e.opt.Horizons, &opt); err != nil {
			return fail(fmt.Errorf("unable to forecast future prices, %w", err))
		}
	}

	if e.writer != nil {
		if res.Artifacts, err = e.writeArtifacts(coin, &res); err != nil {
			return fail(err)
		}
	}
	return res
}

func (e *Experiment) writeArtifacts(coin string, res *ModelResult) ([]string, error) {
	model := string(res.Kind)
	paths, err := e.writer.WritePredictions(model, coin, res.Predictions)
	if err != nil {
		return nil, err
	}
	if len(res.Future) > 0 {
		future, err := e.writer.WriteFuture(model, coin, res.Future)
		if err != nil {
			return nil, err
		}
		paths = append(paths, future...)
	}
	chart, err := e.writer.WriteChart(model, coin, res.Predictions, res.Future)
	if err != nil {
		return nil, err
	}
	if chart != "" {
		paths = append(paths, chart)
	}
	return paths, nil
}
