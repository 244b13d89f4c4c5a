// Package scaler standardizes series to zero mean and unit variance.
//
// The fitted transform is a plain Params value that callers thread through
// explicitly; there is no stateful scaler object.
//
//	params, err := scaler.Fit(smoothed.Values)
//	scaled := scaler.Transform(smoothed.Values, params)
//	prices := scaler.InverseTransform(forecast, params)
package scaler

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/timeseries"
)

// Params captures a standardization transform.
type Params struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"` // sample standard deviation
}

// Fit computes the mean and sample standard deviation of values. Fewer than
// two observations or zero variance fail with errs.DegenerateSeries.
func Fit(values []float64) (Params, error) {
	if len(values) == 0 {
		return Params{}, errs.New(errs.EmptySeries, "cannot fit a scaler on no observations")
	}
	if len(values) < 2 {
		return Params{}, errs.New(errs.DegenerateSeries, "cannot estimate a scale from one observation")
	}

	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) || math.IsInf(std, 0) || math.IsNaN(mean) {
		return Params{}, errs.New(errs.Numeric, "non-finite scaler parameters (mean=%v, scale=%v)", mean, std)
	}
	if std == 0 {
		return Params{}, errs.New(errs.DegenerateSeries, "zero variance over %d observations", len(values))
	}

	return Params{Mean: mean, Scale: std}, nil
}

// Transform returns (v - mean) / scale for every value.
func Transform(values []float64, p Params) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - p.Mean) / p.Scale
	}
	return out
}

// InverseTransform returns v*scale + mean for every value.
func InverseTransform(values []float64, p Params) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*p.Scale + p.Mean
	}
	return out
}

// TransformSeries standardizes a series, keeping its timestamps.
func TransformSeries(s *timeseries.Series, p Params) *timeseries.Series {
	return s.WithValues(Transform(s.Values, p))
}
