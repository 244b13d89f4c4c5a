// Package arima implements ARIMA (AutoRegressive Integrated Moving Average) models.
package arima

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/stats"
	"github.com/sartorproj/stockcast/timeseries"
)

// Default model settings.
const (
	DefaultP             = 5
	DefaultQ             = 5
	DefaultMaxIterations = 10000
	DefaultMaxDuration   = 30 * time.Second

	// ljungBoxLags is the number of residual autocorrelations checked
	// after a fit.
	ljungBoxLags = 10
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int `json:"p"` // AR order (number of autoregressive terms)
	D int `json:"d"` // Differencing order
	Q int `json:"q"` // MA order (number of moving average terms)
}

// String formats the order as (p,d,q).
func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Model is an unfitted ARIMA order plus solver limits.
type Model struct {
	Order         Order
	MaxIterations int
	MaxDuration   time.Duration
}

// Option configures a Model.
type Option func(*Model)

// WithMaxIterations caps the number of solver iterations.
func WithMaxIterations(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.MaxIterations = n
		}
	}
}

// WithMaxDuration caps the wall-clock time a single fit may take.
func WithMaxDuration(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.MaxDuration = d
		}
	}
}

// New creates a new ARIMA model with the specified order.
func New(p, d, q int, opts ...Option) *Model {
	m := &Model{
		Order:         Order{P: p, D: d, Q: q},
		MaxIterations: DefaultMaxIterations,
		MaxDuration:   DefaultMaxDuration,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fitted is the estimated state of an ARIMA model. It carries everything
// Forecast needs and nothing else, so it can be serialized and cached.
type Fitted struct {
	Order     Order     `json:"order"`
	ARCoeffs  []float64 `json:"ar"`
	MACoeffs  []float64 `json:"ma"`
	Intercept float64   `json:"intercept"` // mean of the differenced series; zero when d > 0
	Variance  float64   `json:"sigma2"`    // residual variance

	// LogLik and the information criteria are zero when the residual
	// variance is zero or the sample is too small for the correction.
	LogLik float64 `json:"loglik"`
	AIC    float64 `json:"aic"`
	AICc   float64 `json:"aicc"`
	BIC    float64 `json:"bic"`

	NObs       int    `json:"nobs"`
	Iterations int    `json:"iterations"`
	Status     string `json:"status"`

	LjungBox *stats.LjungBoxResult `json:"ljung_box,omitempty"`

	// Tail holds the last P values of the differenced series and
	// Innovations the last Q residuals.
	Tail        []float64 `json:"tail"`
	Innovations []float64 `json:"innovations"`
	// Anchors[k] is the last observation of the series differenced k times.
	Anchors []float64 `json:"anchors"`
}

// Fit estimates the model on the series by conditional sum of squares.
// Observations before the start of the sample are taken at the mean and
// their innovations at zero, so every observation contributes a residual.
func (m *Model) Fit(series *timeseries.Series) (*Fitted, error) {
	o := m.Order
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return nil, errs.New(errs.ModelFit, "invalid order %s", o)
	}
	if series == nil || series.Len() == 0 {
		return nil, errs.New(errs.ModelFit, "no observations to fit")
	}
	for i, v := range series.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.New(errs.ModelFit, "observation %d is not finite", i)
		}
	}

	anchors := make([]float64, o.D)
	diffSeries := series
	for k := 0; k < o.D; k++ {
		anchors[k] = diffSeries.Last()
		diffSeries = diffSeries.Diff()
		if diffSeries.Len() == 0 {
			return nil, errs.New(errs.ModelFit,
				"differencing %d times leaves no observations from %d", o.D, series.Len())
		}
	}
	y := diffSeries.Values

	l := layout{p: o.P, q: o.Q, withMean: o.D == 0}
	resid := make([]float64, len(y))

	objective := func(x []float64) float64 {
		ar, ma, mean := l.unpack(x)
		sse := css(y, mean, ar, ma, resid)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.Inf(1)
		}
		return sse / float64(len(y))
	}

	fit := &Fitted{
		Order: o,
		NObs:  series.Len(),
	}

	var x []float64
	switch {
	case o.P+o.Q == 0:
		if l.withMean {
			x = []float64{stat.Mean(y, nil)}
		}
		fit.Status = optimize.Success.String()
	default:
		start := l.start(stats.PACF(diffSeries, o.P), stat.Mean(y, nil))
		if v := objective(start); math.IsInf(v, 1) {
			return nil, errs.New(errs.ModelFit, "objective is not finite at the starting values")
		}

		res, err := m.minimize(objective, start)
		if err != nil {
			return nil, err
		}
		x = res.X
		fit.Iterations = res.Stats.MajorIterations
		fit.Status = res.Status.String()
	}

	ar, ma, mean := l.unpack(x)
	sse := css(y, mean, ar, ma, resid)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, errs.New(errs.ModelFit, "residual sum of squares is not finite")
	}

	fit.ARCoeffs = ar
	fit.MACoeffs = ma
	fit.Intercept = mean
	fit.Variance = sse / float64(len(y))
	fit.Anchors = anchors
	fit.Tail = tail(y, o.P)
	fit.Innovations = tail(resid, o.Q)
	fit.criteria(len(y), l.size())
	if lb, err := stats.LjungBox(resid, ljungBoxLags, o.P+o.Q); err == nil {
		fit.LjungBox = lb
	}

	return fit, nil
}

// minimize runs the Nelder-Mead simplex under the model's limits. Hitting
// a limit is reported as non-convergence rather than returning the best
// point seen so far.
func (m *Model) minimize(f func([]float64) float64, start []float64) (*optimize.Result, error) {
	settings := &optimize.Settings{
		MajorIterations: m.MaxIterations,
		Runtime:         m.MaxDuration,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-8,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(optimize.Problem{Func: f}, start, settings, &optimize.NelderMead{})
	if res != nil {
		switch res.Status {
		case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit:
			return nil, errs.New(errs.NonConvergence, "%s did not converge: %s after %d iterations in %s",
				m.Order, res.Status, res.Stats.MajorIterations, res.Stats.Runtime.Round(time.Millisecond))
		}
	}
	if err != nil {
		return nil, errs.Wrap(errs.ModelFit, fmt.Errorf("%s: %w", m.Order, err))
	}
	if res == nil || math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, errs.New(errs.ModelFit, "%s: solver returned no finite optimum", m.Order)
	}
	return res, nil
}

// css fills resid with one-step-ahead prediction errors and returns their
// sum of squares.
func css(y []float64, mean float64, ar, ma, resid []float64) float64 {
	sse := 0.0
	for t := range y {
		pred := mean
		for i := 0; i < len(ar) && t-i-1 >= 0; i++ {
			pred += ar[i] * (y[t-i-1] - mean)
		}
		for j := 0; j < len(ma) && t-j-1 >= 0; j++ {
			pred += ma[j] * resid[t-j-1]
		}
		resid[t] = y[t] - pred
		sse += resid[t] * resid[t]
	}
	return sse
}

// criteria calculates the log-likelihood, AIC, AICc and BIC.
func (f *Fitted) criteria(n, k int) {
	if f.Variance <= 0 || n == 0 {
		return
	}
	nf, kf := float64(n), float64(k+1) // +1 for the innovation variance

	f.LogLik = -nf / 2 * (math.Log(2*math.Pi*f.Variance) + 1)
	f.AIC = -2*f.LogLik + 2*kf
	if nf-kf-1 > 0 {
		f.AICc = f.AIC + 2*kf*(kf+1)/(nf-kf-1)
	}
	f.BIC = -2*f.LogLik + kf*math.Log(nf)
}

// Forecast generates point forecasts for the specified number of steps
// ahead on the scale of the series the model was fitted to.
func (f *Fitted) Forecast(steps int) ([]float64, error) {
	if steps < 1 {
		return nil, errs.New(errs.ModelFit, "steps must be at least 1, got %d", steps)
	}
	if len(f.ARCoeffs) != f.Order.P || len(f.MACoeffs) != f.Order.Q || len(f.Anchors) != f.Order.D {
		return nil, errs.New(errs.ModelFit, "fitted state does not match order %s", f.Order)
	}

	y := append([]float64(nil), f.Tail...)
	e := append([]float64(nil), f.Innovations...)
	out := make([]float64, steps)

	for h := range out {
		pred := f.Intercept
		for i, phi := range f.ARCoeffs {
			if idx := len(y) - 1 - i; idx >= 0 {
				pred += phi * (y[idx] - f.Intercept)
			}
		}
		// Future innovations are zero in expectation.
		for j, theta := range f.MACoeffs {
			if idx := len(e) - 1 - j; idx >= 0 {
				pred += theta * e[idx]
			}
		}
		y = append(y, pred)
		e = append(e, 0)
		out[h] = pred
	}

	// Undo differencing one level at a time, starting from the deepest.
	for k := f.Order.D - 1; k >= 0; k-- {
		level := f.Anchors[k]
		for i := range out {
			level += out[i]
			out[i] = level
		}
	}

	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.New(errs.Numeric, "forecast step %d is not finite", i+1)
		}
	}
	return out, nil
}

func tail(values []float64, n int) []float64 {
	if n > len(values) {
		n = len(values)
	}
	out := make([]float64, n)
	copy(out, values[len(values)-n:])
	return out
}
