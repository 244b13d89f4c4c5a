// Package timeseries provides the dated price series used by the forecasting pipeline.
package timeseries

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/stockcast/errs"
)

// Series represents a time series with timestamps and values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// indexEpoch anchors the synthetic daily timestamps created by New so that
// two series built from the same values share a fingerprint.
var indexEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// New creates a new time series from values with one observation per day.
func New(values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = indexEpoch.AddDate(0, 0, i)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}


// Last returns the final observation, or NaN for an empty series.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// ValidatePrices checks the invariants of a quote history: at least one
// observation, strictly increasing timestamps and finite positive prices.
func (s *Series) ValidatePrices() error {
	if s == nil || len(s.Values) == 0 {
		return errs.New(errs.EmptySeries, "no observations")
	}
	if len(s.Timestamps) != len(s.Values) {
		return errs.New(errs.Numeric, "%d timestamps for %d values", len(s.Timestamps), len(s.Values))
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return errs.New(errs.Numeric, "price at index %d is not a positive finite number: %v", i, v)
		}
		if i > 0 && !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return errs.New(errs.Numeric, "timestamp at index %d (%s) does not follow %s",
				i, s.Timestamps[i].Format(time.DateOnly), s.Timestamps[i-1].Format(time.DateOnly))
		}
	}
	return nil
}

// Diff calculates the first difference of the series. The leading
// observation, which has no predecessor, is dropped.
func (s *Series) Diff() *Series {
	if len(s.Values) <= 1 {
		return &Series{Values: []float64{}, Name: s.Name + "_diff"}
	}

	result := make([]float64, len(s.Values)-1)
	for i := 1; i < len(s.Values); i++ {
		result[i-1] = s.Values[i] - s.Values[i-1]
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) == len(s.Values) {
		copy(timestamps, s.Timestamps[1:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_diff",
	}
}

// DiffOrder applies Diff d times.
func (s *Series) DiffOrder(d int) *Series {
	current := s
	for i := 0; i < d; i++ {
		current = current.Diff()
	}
	return current
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}


// WithValues returns a series sharing s's timestamps but carrying values.
func (s *Series) WithValues(values []float64) *Series {
	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// RollingMean calculates a trailing simple moving average. Each output is
// stamped with the last timestamp of its window and the window-1 leading
// incomplete windows are dropped.
func (s *Series) RollingMean(window int) (*Series, error) {
	if window <= 0 {
		return nil, errs.New(errs.Numeric, "rolling window must be positive, got %d", window)
	}
	if window > len(s.Values) {
		return nil, errs.New(errs.InsufficientData,
			"rolling window of %d needs at least %d observations, got %d", window, window, len(s.Values))
	}

	result := make([]float64, len(s.Values)-window+1)
	sum := 0.0

	for i := 0; i < window; i++ {
		sum += s.Values[i]
	}
	result[0] = sum / float64(window)

	for i := window; i < len(s.Values); i++ {
		sum = sum - s.Values[i-window] + s.Values[i]
		result[i-window+1] = sum / float64(window)
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) == len(s.Values) {
		copy(timestamps, s.Timestamps[window-1:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_rolling",
	}, nil
}

// Fingerprint returns a content hash of the timestamps and values. Two
// series with the same observations hash equal regardless of Name.
func (s *Series) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Values)))
	_, _ = h.Write(buf[:])

	for _, ts := range s.Timestamps {
		binary.LittleEndian.PutUint64(buf[:], uint64(ts.UnixNano()))
		_, _ = h.Write(buf[:])
	}
	for _, v := range s.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}
