package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/aouyang1/go-pricecast/models"
	"github.com/aouyang1/go-pricecast/scaler"
)

var ErrNoTargetLags = errors.New("no lagged target columns in table")

// NewARIMA fits an autoregressive model on the differenced history of the target. Only the
// <target>_lag_<n> columns are used, oldest lag first, and no scaling is applied. The order is
// reduced when the window is too short for it.
func NewARIMA(opt *models.AutoRegressionOptions) *Regression {
	if opt == nil {
		opt = models.NewDefaultAutoRegressionOptions()
	}
	return &Regression{
		kind:           KindARIMA,
		featureScaling: scaler.KindIdentity,
		targetScaling:  scaler.KindIdentity,
		selectColumns:  targetLagColumns,
		newEngine: func(lags int) (models.Model, error) {
			cp := *opt
			if maxP := lags - cp.D; cp.P > maxP && maxP >= 1 {
				slog.Debug("reducing autoregressive order to fit window", "p", cp.P, "reduced_p", maxP, "lags", lags)
				cp.P = maxP
			}
			return models.NewAutoRegression(&cp)
		},
	}
}

// targetLagColumns returns the lagged target columns ordered from the oldest lag to the newest
func targetLagColumns(columns []string, target string) ([]string, error) {
	prefix := target + "_lag_"
	type lagCol struct {
		name string
		lag  int
	}
	var lags []lagCol
	for _, c := range columns {
		suffix, found := strings.CutPrefix(c, prefix)
		if !found {
			continue
		}
		lag, err := strconv.Atoi(suffix)
		if err != nil || lag < 1 {
			continue
		}
		lags = append(lags, lagCol{c, lag})
	}
	if len(lags) == 0 {
		return nil, fmt.Errorf("%q, %w", prefix, ErrNoTargetLags)
	}
	sort.Slice(lags, func(i, j int) bool {
		return lags[i].lag > lags[j].lag
	})

	res := make([]string, len(lags))
	for i, l := range lags {
		res[i] = l.name
	}
	return res, nil
}
