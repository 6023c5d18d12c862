package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aouyang1/go-pricecast/decompose"
	"github.com/aouyang1/go-pricecast/feature"
	mat_ "github.com/aouyang1/go-pricecast/mat"
	"github.com/aouyang1/go-pricecast/models"
	"github.com/aouyang1/go-pricecast/scaler"
)

// DefaultLassoLambdas is the regularization grid searched by the lasso adapter
var DefaultLassoLambdas = []float64{0.0, 0.01, 0.1, 1.0}

// Regression adapts any models.Model. Features and target are scaled independently before the
// engine sees them.
type Regression struct {
	kind           Kind
	featureScaling scaler.Kind
	targetScaling  scaler.Kind
	newEngine      func(width int) (models.Model, error)
	// selectColumns optionally narrows the feature columns at fit time. target is the target column
	// name.
	selectColumns func(columns []string, target string) ([]string, error)

	engine   models.Model
	features scaler.Scaler
	target   scaler.Scaler
	schema   *feature.Schema
}

// NewLinear fits ordinary least squares on standardized features and target
func NewLinear() *Regression {
	return &Regression{
		kind:           KindLinear,
		featureScaling: scaler.KindStandard,
		targetScaling:  scaler.KindStandard,
		newEngine: func(int) (models.Model, error) {
			return models.NewOLSRegression(models.NewDefaultOLSOptions())
		},
	}
}

// NewLasso fits lasso regression over a lambda grid keeping the best scoring fit
func NewLasso(opt *models.LassoAutoOptions) *Regression {
	if opt == nil {
		opt = models.NewDefaultLassoAutoOptions()
		opt.Lambdas = DefaultLassoLambdas
	}
	return &Regression{
		kind:           KindLasso,
		featureScaling: scaler.KindStandard,
		targetScaling:  scaler.KindStandard,
		newEngine: func(int) (models.Model, error) {
			cp := *opt
			return models.NewLassoAutoRegression(&cp)
		},
	}
}

// NewDecomposition fits trend and seasonality on a synthetic time grid with the features as
// regressors. Features and target are max-abs scaled.
func NewDecomposition(opt *decompose.Options) *Regression {
	return &Regression{
		kind:           KindDecomposition,
		featureScaling: scaler.KindMaxAbs,
		targetScaling:  scaler.KindMaxAbs,
		newEngine: func(int) (models.Model, error) {
			if opt == nil {
				return decompose.New(nil)
			}
			cp := *opt
			return decompose.New(&cp)
		},
	}
}

// NewForest fits a random forest on min-max scaled features and the raw target
func NewForest(opt *models.ForestOptions) *Regression {
	return &Regression{
		kind:           KindForest,
		featureScaling: scaler.KindMinMax,
		targetScaling:  scaler.KindIdentity,
		newEngine: func(int) (models.Model, error) {
			if opt == nil {
				return models.NewForestRegression(nil)
			}
			cp := *opt
			return models.NewForestRegression(&cp)
		},
	}
}

// NewBoost fits gradient boosted trees on min-max scaled features and the raw target
func NewBoost(opt *models.BoostOptions) *Regression {
	return &Regression{
		kind:           KindBoost,
		featureScaling: scaler.KindMinMax,
		targetScaling:  scaler.KindIdentity,
		newEngine: func(int) (models.Model, error) {
			if opt == nil {
				return models.NewBoostRegression(nil)
			}
			cp := *opt
			return models.NewBoostRegression(&cp)
		},
	}
}

func (r *Regression) Kind() Kind {
	return r.kind
}

func (r *Regression) Schema() *feature.Schema {
	return r.schema
}

func (r *Regression) Fitted() bool {
	return r.schema != nil
}

func (r *Regression) Fit(ctx context.Context, t *feature.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Len() == 0 {
		return ErrEmptyTable
	}
	targetName := t.Columns[t.Width()-1]
	features, target, err := t.SplitTarget()
	if err != nil {
		return fmt.Errorf("unable to split target, %w", err)
	}

	if r.selectColumns != nil {
		cols, err := r.selectColumns(features.Columns, targetName)
		if err != nil {
			return err
		}
		features, err = feature.Align(&feature.Schema{Columns: cols}, features, feature.ExtraDrop)
		if err != nil {
			return err
		}
	}

	schema, err := feature.NewSchema(features.Columns)
	if err != nil {
		return err
	}

	features = features.Sanitize()
	target = feature.SanitizeValues(target)

	featureScaler, err := scaler.New(r.featureScaling)
	if err != nil {
		return err
	}
	if err := featureScaler.Fit(features.Rows); err != nil {
		return fmt.Errorf("unable to fit feature scaler, %w", err)
	}
	xScaled, err := featureScaler.Transform(features.Rows)
	if err != nil {
		return err
	}

	targetScaler, err := scaler.New(r.targetScaling)
	if err != nil {
		return err
	}
	yCol := scaler.Column(target)
	if err := targetScaler.Fit(yCol); err != nil {
		return fmt.Errorf("unable to fit target scaler, %w", err)
	}
	yScaled, err := targetScaler.Transform(yCol)
	if err != nil {
		return err
	}

	engine, err := r.newEngine(schema.Len())
	if err != nil {
		return err
	}
	x, err := mat_.NewDenseFromArray(xScaled)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := engine.Fit(x, mat_.NewColumn(scaler.Flatten(yScaled))); err != nil {
		return fmt.Errorf("unable to fit %s model, %w", r.kind, err)
	}

	slog.Debug("fitted model", "kind", r.kind, "rows", t.Len(), "features", schema.Len())
	r.engine = engine
	r.features = featureScaler
	r.target = targetScaler
	r.schema = schema
	return nil
}

func (r *Regression) Predict(ctx context.Context, t *feature.Table) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.Fitted() {
		return nil, ErrNotFitted
	}
	if t.Len() == 0 {
		return []float64{}, nil
	}

	aligned, err := alignTo(r.schema, t)
	if err != nil {
		return nil, err
	}
	xScaled, err := r.features.Transform(aligned.Sanitize().Rows)
	if err != nil {
		return nil, err
	}
	x, err := mat_.NewDenseFromArray(xScaled)
	if err != nil {
		return nil, err
	}
	predicted, err := r.engine.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("unable to predict with %s model, %w", r.kind, err)
	}
	res, err := r.target.Inverse(scaler.Column(predicted))
	if err != nil {
		return nil, err
	}
	return scaler.Flatten(res), nil
}

// Engine returns the fitted backing model
func (r *Regression) Engine() models.Model {
	return r.engine
}

func alignTo(s *feature.Schema, t *feature.Table) (*feature.Table, error) {
	if s.Matches(t.Columns) {
		return t, nil
	}
	aligned, err := feature.Align(s, t, feature.ExtraDrop)
	if err != nil {
		return nil, fmt.Errorf("unable to align features, %w", err)
	}
	return aligned, nil
}
