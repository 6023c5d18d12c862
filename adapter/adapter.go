// Package adapter gives every forecasting engine the same fit and predict shape. Adapters take a
// feature table whose last column is the target, sanitize and scale it, record the feature schema
// and hand the result to the backing engine. Predictions are aligned to the recorded schema and
// mapped back to target units.
//
// An adapter is not safe for concurrent Fit and Predict calls. Once fitted and no longer
// refit, concurrent Predict calls are safe for every engine.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aouyang1/go-pricecast/decompose"
	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/models"
)

// Kind names a backing engine
type Kind string

const (
	KindLinear        Kind = "linear"
	KindLasso         Kind = "lasso"
	KindARIMA         Kind = "arima"
	KindDecomposition Kind = "decomposition"
	KindForest        Kind = "forest"
	KindBoost         Kind = "boost"
	KindNeural        Kind = "neural"
)

// Kinds lists every engine in evaluation order
var Kinds = []Kind{KindLinear, KindLasso, KindARIMA, KindDecomposition, KindForest, KindBoost, KindNeural}

var (
	// ErrNotFitted matches models.ErrNotFitted so callers can test either
	ErrNotFitted      = models.ErrNotFitted
	ErrSchemaMismatch = feature.ErrSchemaMismatch
	ErrUnknownKind    = errors.New("unknown model kind")
	ErrEmptyTable     = errors.New("no rows to fit")
)

// Adapter is the uniform contract of every engine
type Adapter interface {
	// Fit trains on a table whose last column is the target. Repeated fits replace prior state.
	Fit(ctx context.Context, t *feature.Table) error
	// Predict returns one value per table row in target units
	Predict(ctx context.Context, t *feature.Table) ([]float64, error)
	Kind() Kind
	// Schema is nil until fitted
	Schema() *feature.Schema
	Fitted() bool
}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q, %w", s, ErrUnknownKind)
}

// Options carries per engine options. Nil entries use the engine defaults.
type Options struct {
	Lasso         *models.LassoAutoOptions
	ARIMA         *models.AutoRegressionOptions
	Decomposition *decompose.Options
	Forest        *models.ForestOptions
	Boost         *models.BoostOptions
	Neural        *NeuralOptions
}

// New returns an unfitted adapter of the given kind
func New(kind Kind, opt *Options) (Adapter, error) {
	if opt == nil {
		opt = &Options{}
	}
	switch kind {
	case KindLinear:
		return NewLinear(), nil
	case KindLasso:
		return NewLasso(opt.Lasso), nil
	case KindARIMA:
		return NewARIMA(opt.ARIMA), nil
	case KindDecomposition:
		return NewDecomposition(opt.Decomposition), nil
	case KindForest:
		return NewForest(opt.Forest), nil
	case KindBoost:
		return NewBoost(opt.Boost), nil
	case KindNeural:
		runner, err := NewONNXRunner(opt.Neural)
		if err != nil {
			return nil, fmt.Errorf("unable to load neural model, %w", err)
		}
		return NewNeural(runner), nil
	}
	return nil, fmt.Errorf("%q, %w", kind, ErrUnknownKind)
}
