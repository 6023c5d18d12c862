package pricecast

import (
	"math"
	"time"

	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/artifact"
	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/aouyang1/go-pricecast/stats"
)

// ModelResult is the evaluation of one engine on one coin
type ModelResult struct {
	Kind        adapter.Kind          `json:"kind"`
	Scores      *stats.Scores         `json:"scores,omitempty"`
	Predictions []artifact.Prediction `json:"-"`
	Future      []multistep.Point     `json:"future,omitempty"`
	FitDuration time.Duration         `json:"fit_duration"`
	Artifacts   []string              `json:"artifacts,omitempty"`
	Error       string                `json:"error,omitempty"`

	// Adapter is the engine fitted on the training split
	Adapter adapter.Adapter `json:"-"`
}

// Failed reports whether the engine could not be fit or evaluated
func (m *ModelResult) Failed() bool {
	return m.Error != ""
}

// Report gathers the results of every engine on one coin
type Report struct {
	Coin      string        `json:"coin"`
	Rows      int           `json:"rows"`
	Columns   []string      `json:"columns"`
	TrainSize int           `json:"train_size"`
	TestSize  int           `json:"test_size"`
	Interval  time.Duration `json:"interval"`
	Results   []ModelResult `json:"results"`
}

// Best returns the successful result with the lowest RMSE, nil when every engine failed
func (r *Report) Best() *ModelResult {
	var best *ModelResult
	bestRMSE := math.Inf(1)
	for i := range r.Results {
		res := &r.Results[i]
		if res.Failed() || res.Scores == nil || math.IsNaN(res.Scores.RMSE) {
			continue
		}
		if res.Scores.RMSE < bestRMSE {
			best, bestRMSE = res, res.Scores.RMSE
		}
	}
	return best
}
