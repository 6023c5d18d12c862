// Package metrics records serving and fitting activity with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricecast"

// Recorder holds the collectors registered on one registry
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fits            *prometheus.CounterVec
	fitDuration     *prometheus.HistogramVec
	cache           *prometheus.CounterVec
	lastPrediction  *prometheus.GaugeVec
	errors          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the go and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		fits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fits_total",
				Help:      "Total number of model fits",
			},
			[]string{"model", "coin", "result"},
		),
		fitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fit_duration_seconds",
				Help:      "Duration of model fits in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"model"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Prediction cache lookups by result",
			},
			[]string{"result"},
		),
		lastPrediction: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_predicted_price",
				Help:      "Last served predicted price for a coin",
			},
			[]string{"coin"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordRequest(route, status string, d time.Duration) {
	r.requests.WithLabelValues(route, status).Inc()
	r.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordFit counts a fit as ok or error and observes its duration
func (r *Recorder) RecordFit(model, coin string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fits.WithLabelValues(model, coin, result).Inc()
	r.fitDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordPrediction(coin string, price float64) {
	r.lastPrediction.WithLabelValues(coin).Set(price)
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
