package stats

import (
	"errors"
	"math"
	"sort"

	"github.com/aouyang1/go-pricecast/models"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrMinimumFeatures    = errors.New("need at least 2 features to compute VIF")
	ErrFeatureLenMismatch = errors.New("some feature length is not consistent")
	ErrFeatureLen         = errors.New("must have at least 2 points per feature")
)

// VarianceInflationFactor regresses each feature on all others and returns 1/(1-R^2) keyed by
// feature name. Perfectly collinear features report +Inf.
func VarianceInflationFactor(features map[string][]float64) (map[string]float64, error) {
	if len(features) < 2 {
		return nil, ErrMinimumFeatures
	}
	labels := make([]string, 0, len(features))
	var m int
	for label, feature := range features {
		if len(feature) < 2 {
			return nil, ErrFeatureLen
		}
		if m == 0 {
			m = len(feature)
		}
		if m != len(feature) {
			return nil, ErrFeatureLenMismatch
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	n := len(labels)

	vif := make(map[string]float64, n)
	x := mat.NewDense(m, n-1, nil)
	for _, label := range labels {
		c := 0
		for _, other := range labels {
			if other == label {
				continue
			}
			x.SetCol(c, features[other])
			c++
		}
		y := mat.NewDense(m, 1, nil)
		y.SetCol(0, features[label])

		ols, err := models.NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		if err := ols.Fit(x, y); err != nil {
			return nil, err
		}
		r2, err := ols.Score(x, y)
		if err != nil {
			return nil, err
		}
		if r2 >= 1.0-1e-12 {
			vif[label] = math.Inf(1)
			continue
		}
		vif[label] = 1.0 / (1.0 - r2)
	}
	return vif, nil
}
