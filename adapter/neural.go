package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aouyang1/go-pricecast/feature"
	"github.com/aouyang1/go-pricecast/scaler"
)

var (
	ErrInputWidth   = errors.New("feature width does not match network input")
	ErrOutputLength = errors.New("network returned an unexpected number of outputs")
)

// Runner executes a pre-trained network on a [rows, 1, features] float32 batch and returns one
// output per row.
type Runner interface {
	Run(input []float32, rows, features int) ([]float32, error)
	// InputWidth is the number of features the network expects, 0 when unknown
	InputWidth() int
	Close() error
}

// Neural wraps a pre-trained recurrent network. Fit only learns the scalers: standard scaling of
// the features and min-max scaling of the target.
type Neural struct {
	runner Runner

	features scaler.Scaler
	target   scaler.Scaler
	schema   *feature.Schema
}

func NewNeural(runner Runner) *Neural {
	return &Neural{runner: runner}
}

func (n *Neural) Kind() Kind {
	return KindNeural
}

func (n *Neural) Schema() *feature.Schema {
	return n.schema
}

func (n *Neural) Fitted() bool {
	return n.schema != nil
}

func (n *Neural) Fit(ctx context.Context, t *feature.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Len() == 0 {
		return ErrEmptyTable
	}
	features, target, err := t.SplitTarget()
	if err != nil {
		return fmt.Errorf("unable to split target, %w", err)
	}
	if w := n.runner.InputWidth(); w > 0 && w != features.Width() {
		return fmt.Errorf("table has %d features, network expects %d, %w", features.Width(), w, ErrInputWidth)
	}
	schema, err := feature.NewSchema(features.Columns)
	if err != nil {
		return err
	}

	featureScaler, err := scaler.New(scaler.KindStandard)
	if err != nil {
		return err
	}
	if err := featureScaler.Fit(features.Sanitize().Rows); err != nil {
		return fmt.Errorf("unable to fit feature scaler, %w", err)
	}
	targetScaler, err := scaler.New(scaler.KindMinMax)
	if err != nil {
		return err
	}
	if err := targetScaler.Fit(scaler.Column(feature.SanitizeValues(target))); err != nil {
		return fmt.Errorf("unable to fit target scaler, %w", err)
	}

	n.features = featureScaler
	n.target = targetScaler
	n.schema = schema
	return nil
}

func (n *Neural) Predict(ctx context.Context, t *feature.Table) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !n.Fitted() {
		return nil, ErrNotFitted
	}
	if t.Len() == 0 {
		return []float64{}, nil
	}

	aligned, err := alignTo(n.schema, t)
	if err != nil {
		return nil, err
	}
	xScaled, err := n.features.Transform(aligned.Sanitize().Rows)
	if err != nil {
		return nil, err
	}

	width := n.schema.Len()
	input := make([]float32, 0, len(xScaled)*width)
	for _, row := range xScaled {
		for _, v := range row {
			input = append(input, float32(v))
		}
	}
	output, err := n.runner.Run(input, len(xScaled), width)
	if err != nil {
		return nil, fmt.Errorf("unable to run network, %w", err)
	}
	if len(output) != len(xScaled) {
		return nil, fmt.Errorf("got %d outputs for %d rows, %w", len(output), len(xScaled), ErrOutputLength)
	}

	predicted := make([]float64, len(output))
	for i, v := range output {
		predicted[i] = float64(v)
	}
	res, err := n.target.Inverse(scaler.Column(predicted))
	if err != nil {
		return nil, err
	}
	return scaler.Flatten(res), nil
}

// Close releases the network runner
func (n *Neural) Close() error {
	return n.runner.Close()
}
