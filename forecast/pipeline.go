// Package forecast turns a daily closing price history into a dated
// short-horizon price forecast.
//
// A run moves through fixed stages:
//
//	raw -> smoothed -> order_selected -> scaled -> evaluated -> forecasted -> descaled -> done
//
// Any failure aborts the run with an *errs.Error naming the stage and the
// size of its input; no partial result is returned.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sartorproj/stockcast/arima"
	"github.com/sartorproj/stockcast/cache"
	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/metrics"
	"github.com/sartorproj/stockcast/scaler"
	"github.com/sartorproj/stockcast/stats"
	"github.com/sartorproj/stockcast/timeseries"
)

// Stage names a step of a pipeline run.
type Stage string

const (
	StageRaw           Stage = "raw"
	StageSmoothed      Stage = "smoothed"
	StageOrderSelected Stage = "order_selected"
	StageScaled        Stage = "scaled"
	StageEvaluated     Stage = "evaluated"
	StageForecasted    Stage = "forecasted"
	StageDescaled      Stage = "descaled"
	StageDone          Stage = "done"
)

// Defaults for a pipeline built without options.
const (
	DefaultWindow  = 7
	DefaultHorizon = 30
	DefaultHoldout = 30
)

// Point is one dated forecast price.
type Point struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Result is the output of a successful run.
type Result struct {
	Points      []Point            `json:"points"`
	RMSE        float64            `json:"rmse"`
	Evaluation  *Evaluation        `json:"evaluation"`
	Order       arima.Order        `json:"order"`
	Scaler      scaler.Params      `json:"scaler"`
	Model       *arima.Fitted      `json:"model"`
	Smoothed    *timeseries.Series `json:"-"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Combined returns the smoothed history followed by the forecast, for
// charting.
func (r *Result) Combined() []Point {
	out := make([]Point, 0, r.Smoothed.Len()+len(r.Points))
	for i, v := range r.Smoothed.Values {
		out = append(out, Point{Date: r.Smoothed.Timestamps[i], Price: v})
	}
	return append(out, r.Points...)
}

// Pipeline runs the forecast. It holds no per-run state and is safe for
// concurrent use; the optional cache is the only shared state.
type Pipeline struct {
	window  int
	horizon int
	holdout int
	p, q    int
	maxD    int

	tester  stats.Tester
	fitter  *fitter
	logger  zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	loc     *time.Location
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; stages are logged at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCache memoizes fitted models in store. A non-positive ttl uses the
// store's default expiration.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.fitter.store = store
		p.fitter.ttl = ttl
	}
}

// WithMetrics records fits, cache lookups and stage timings.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// WithTester replaces the ADF stationarity test.
func WithTester(t stats.Tester) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tester = t
		}
	}
}

// WithOrder sets the AR and MA orders.
func WithOrder(ar, ma int) Option {
	return func(p *Pipeline) {
		p.p, p.q = ar, ma
	}
}

// WithWindow sets the rolling mean window.
func WithWindow(n int) Option {
	return func(p *Pipeline) { p.window = n }
}

// WithHorizon sets the number of days forecast.
func WithHorizon(n int) Option {
	return func(p *Pipeline) { p.horizon = n }
}

// WithHoldout sets the number of trailing observations held out for
// evaluation.
func WithHoldout(n int) Option {
	return func(p *Pipeline) { p.holdout = n }
}

// WithMaxDifferencing caps the differencing order search.
func WithMaxDifferencing(d int) Option {
	return func(p *Pipeline) { p.maxD = d }
}

// WithSolverLimits bounds every model fit.
func WithSolverLimits(maxIterations int, maxDuration time.Duration) Option {
	return func(p *Pipeline) {
		p.fitter.limits = []arima.Option{
			arima.WithMaxIterations(maxIterations),
			arima.WithMaxDuration(maxDuration),
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLocation sets the time zone forecast dates are computed in.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// New creates a pipeline forecasting 30 days with ARIMA(5, d, 5).
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		window:  DefaultWindow,
		horizon: DefaultHorizon,
		holdout: DefaultHoldout,
		p:       arima.DefaultP,
		q:       arima.DefaultQ,
		maxD:    stats.DefaultMaxDifferencing,
		tester:  stats.ADFTester{},
		fitter:  &fitter{},
		logger:  zerolog.Nop(),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.fitter.logger = p.logger
	p.fitter.metrics = p.metrics
	return p
}

// Run forecasts the next horizon days from a daily closing price history.
// The context is checked between stages; a fit in progress is not
// interrupted.
func (p *Pipeline) Run(ctx context.Context, prices *timeseries.Series) (res *Result, err error) {
	generatedAt := p.now().In(p.loc)
	var n int
	if prices != nil {
		n = prices.Len()
	}
	log := p.logger.With().Int("n", n).Logger()

	defer func() {
		if err != nil {
			log.Debug().Err(err).Msg("forecast failed")
			p.metrics.RecordRun(err, 0, 0)
			return
		}
		p.metrics.RecordRun(nil, res.RMSE, res.Order.D)
	}()

	stage := func(s Stage, size int, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", s, err)
		}
		start := time.Now()
		if err := fn(); err != nil {
			return errs.WithStage(err, string(s), size)
		}
		elapsed := time.Since(start)
		p.metrics.RecordStage(string(s), elapsed)
		log.Debug().Str("stage", string(s)).Dur("elapsed", elapsed).Msg("stage complete")
		return nil
	}

	if err := stage(StageRaw, n, func() error {
		return prices.ValidatePrices()
	}); err != nil {
		return nil, err
	}

	var smoothed *timeseries.Series
	if err := stage(StageSmoothed, n, func() (err error) {
		smoothed, err = prices.RollingMean(p.window)
		return err
	}); err != nil {
		return nil, err
	}

	var d int
	if err := stage(StageOrderSelected, smoothed.Len(), func() (err error) {
		d, err = stats.SelectOrder(smoothed, p.tester, p.maxD)
		return err
	}); err != nil {
		return nil, err
	}
	order := arima.Order{P: p.p, D: d, Q: p.q}

	var params scaler.Params
	var scaled *timeseries.Series
	if err := stage(StageScaled, smoothed.Len(), func() (err error) {
		params, err = scaler.Fit(smoothed.Values)
		if err != nil {
			return err
		}
		scaled = scaler.TransformSeries(smoothed, params)
		return nil
	}); err != nil {
		return nil, err
	}

	// Accuracy is measured in price units on the unscaled series.
	var eval *Evaluation
	if err := stage(StageEvaluated, smoothed.Len(), func() (err error) {
		eval, err = p.Evaluate(ctx, smoothed, d)
		return err
	}); err != nil {
		return nil, err
	}

	var fitted *arima.Fitted
	var forecast []float64
	if err := stage(StageForecasted, scaled.Len(), func() (err error) {
		fitted, err = p.fitter.fit(ctx, scaled, order)
		if err != nil {
			return err
		}
		forecast, err = fitted.Forecast(p.horizon)
		return err
	}); err != nil {
		return nil, err
	}

	var points []Point
	if err := stage(StageDescaled, len(forecast), func() error {
		values := scaler.InverseTransform(forecast, params)
		points = make([]Point, len(values))
		dates := forecastDates(generatedAt, len(values))
		for i, v := range values {
			points[i] = Point{Date: dates[i], Price: v}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	log.Debug().
		Str("stage", string(StageDone)).
		Stringer("order", order).
		Float64("rmse", eval.RMSE).
		Msg("forecast complete")

	return &Result{
		Points:      points,
		RMSE:        eval.RMSE,
		Evaluation:  eval,
		Order:       order,
		Scaler:      params,
		Model:       fitted,
		Smoothed:    smoothed,
		GeneratedAt: generatedAt,
	}, nil
}

// forecastDates returns n consecutive calendar days starting the day after
// t, each at midnight in t's location.
func forecastDates(t time.Time, n int) []time.Time {
	y, m, d := t.Date()
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(y, m, d+1+i, 0, 0, 0, 0, t.Location())
	}
	return dates
}
