// Package metrics records pipeline activity with Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sartorproj/stockcast/errs"
)

const namespace = "stockcast"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder collects forecasting metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	fits          *prometheus.CounterVec
	fitDuration   prometheus.Histogram
	cacheRequests *prometheus.CounterVec
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	lastRMSE      prometheus.Gauge
	lastOrder     prometheus.Gauge
}

// New creates a recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_fits_total",
				Help:      "Total number of ARIMA fits by outcome",
			},
			[]string{"outcome"},
		),
		fitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_fit_duration_seconds",
				Help:      "Duration of ARIMA fits in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Fitted model cache lookups by result",
			},
			[]string{"result"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		lastRMSE: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_rmse",
				Help:      "Hold-out RMSE of the most recent successful run, in price units",
			},
		),
		lastOrder: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_differencing_order",
				Help:      "Differencing order selected by the most recent successful run",
			},
		),
	}
}

// Registry exposes the registry for gathering or export.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordFit records a model fit and its duration.
func (r *Recorder) RecordFit(err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.fits.WithLabelValues(outcome(err)).Inc()
	r.fitDuration.Observe(elapsed.Seconds())
}

// RecordCache records a cache lookup result.
func (r *Recorder) RecordCache(result string) {
	if r == nil {
		return
	}
	r.cacheRequests.WithLabelValues(result).Inc()
}

// RecordStage records the duration of a pipeline stage.
func (r *Recorder) RecordStage(stage string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordRun records a finished pipeline run.
func (r *Recorder) RecordRun(err error, rmse float64, d int) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		r.lastRMSE.Set(rmse)
		r.lastOrder.Set(float64(d))
	}
}

// WriteFile writes the current metrics in the Prometheus text format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// Fits exposes the fit counter, labelled by outcome.
func (r *Recorder) Fits() *prometheus.CounterVec {
	return r.fits
}

// CacheRequests exposes the cache lookup counter, labelled by result.
func (r *Recorder) CacheRequests() *prometheus.CounterVec {
	return r.cacheRequests
}

// Runs exposes the pipeline run counter, labelled by outcome.
func (r *Recorder) Runs() *prometheus.CounterVec {
	return r.runs
}

// outcome labels an error by its kind: "ok", a kind such as
// "insufficient_data", or "unclassified".
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	kind, ok := errs.KindOf(err)
	if !ok {
		return "unclassified"
	}
	return strings.ReplaceAll(kind.String(), " ", "_")
}
