package decompose

import (
	"errors"
	"time"

	"github.com/aouyang1/go-pricecast/models"
)

const (
	LabelSeasWeekly  = "weekly"
	LabelSeasMonthly = "monthly"

	DefaultNumChangepoints = 4
)

// DefaultStart anchors the synthetic timestamps given to training rows
var DefaultStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrInvalidInterval          = errors.New("interval must be positive")
	ErrNegativeChangepoints     = errors.New("negative number of changepoints")
	ErrInvalidSeasonality       = errors.New("seasonality requires a name, positive period and orders")
	ErrInvalidPercentiles       = errors.New("outlier percentiles must satisfy 0 <= lower < upper <= 1")
	ErrNegativeOutlierPasses    = errors.New("negative number of outlier passes")
	ErrInsufficientTrainingData = errors.New("need at least 2 rows to fit decomposition")
)

// SeasonalityConfig generates Fourier series of the period for orders 1..Orders
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return SeasonalityConfig{Name: LabelSeasWeekly, Orders: orders, Period: 7 * 24 * time.Hour}
}

func NewMonthlySeasonalityConfig(orders int) SeasonalityConfig {
	return SeasonalityConfig{Name: LabelSeasMonthly, Orders: orders, Period: 30 * 24 * time.Hour}
}

// OutlierOptions removes training rows whose residual falls outside the Tukey fences of the
// residual percentiles and refits, up to NumPasses times.
type OutlierOptions struct {
	NumPasses       int
	UpperPercentile float64
	LowerPercentile float64
	TukeyFactor     float64
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// Options configures the trend, seasonality and regression components of a decomposition model.
// Rows are assigned synthetic timestamps starting at Start spaced by Interval.
type Options struct {
	Start    time.Time
	Interval time.Duration

	// Growth adds a linear trend across the training window
	Growth bool
	// NumChangepoints evenly places bias and slope changes inside the training window
	NumChangepoints int

	Seasonality []SeasonalityConfig

	// Lasso related options
	Regularization  []float64
	Iterations      int
	Tolerance       float64
	Parallelization int

	// Outlier is optional, nil disables outlier passes
	Outlier *OutlierOptions
}

func NewDefaultOptions() *Options {
	return &Options{
		Start:           DefaultStart,
		Interval:        24 * time.Hour,
		Growth:          true,
		NumChangepoints: DefaultNumChangepoints,
		Seasonality: []SeasonalityConfig{
			NewWeeklySeasonalityConfig(3),
		},
		Regularization: []float64{0.0},
		Outlier:        NewOutlierOptions(),
	}
}

// Validate fills defaults and checks the options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.Start.IsZero() {
		o.Start = DefaultStart
	}
	if o.Interval == 0 {
		o.Interval = 24 * time.Hour
	}
	if o.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if len(o.Regularization) == 0 {
		o.Regularization = []float64{0.0}
	}
	if o.NumChangepoints < 0 {
		return nil, ErrNegativeChangepoints
	}
	for _, s := range o.Seasonality {
		if s.Name == "" || s.Period <= 0 || s.Orders <= 0 {
			return nil, ErrInvalidSeasonality
		}
	}
	if o.Outlier != nil {
		if o.Outlier.NumPasses < 0 {
			return nil, ErrNegativeOutlierPasses
		}
		if o.Outlier.LowerPercentile < 0 || o.Outlier.UpperPercentile > 1 || o.Outlier.LowerPercentile >= o.Outlier.UpperPercentile {
			return nil, ErrInvalidPercentiles
		}
	}
	return o, nil
}

// lassoOptions builds the auto lasso options. The intercept is fit by the lasso model.
func (o *Options) lassoOptions() *models.LassoAutoOptions {
	lassoOpt := models.NewDefaultLassoAutoOptions()
	if len(o.Regularization) > 0 {
		lassoOpt.Lambdas = o.Regularization
	}
	lassoOpt.FitIntercept = true

	lassoOpt.Iterations = o.Iterations
	if o.Iterations == 0 {
		lassoOpt.Iterations = models.DefaultIterations
	}

	lassoOpt.Tolerance = o.Tolerance
	if o.Tolerance == 0 {
		lassoOpt.Tolerance = models.DefaultTolerance
	}

	lassoOpt.Parallelization = o.Parallelization
	return lassoOpt
}
