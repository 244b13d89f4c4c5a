package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sartorproj/stockcast/arima"
	"github.com/sartorproj/stockcast/cache"
	"github.com/sartorproj/stockcast/metrics"
	"github.com/sartorproj/stockcast/timeseries"
)

// fitter fits ARIMA models, memoizing them by input fingerprint, order and
// solver limits.
// Concurrent misses on the same key may both fit; the last write wins and
// either result is valid.
type fitter struct {
	store   cache.Store // nil disables memoization
	ttl     time.Duration
	limits  []arima.Option
	metrics *metrics.Recorder
	logger  zerolog.Logger
}

func (f *fitter) fit(ctx context.Context, series *timeseries.Series, order arima.Order) (*arima.Fitted, error) {
	model := arima.New(order.P, order.D, order.Q, f.limits...)

	var key string
	if f.store != nil {
		key = cache.FitKey(series.Fingerprint(), order.P, order.D, order.Q,
			model.MaxIterations, model.MaxDuration)

		var cached arima.Fitted
		err := f.store.Get(ctx, key, &cached)
		switch {
		case err == nil:
			f.metrics.RecordCache(metrics.CacheHit)
			f.logger.Debug().Str("key", key).Msg("fitted model served from cache")
			return &cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			f.metrics.RecordCache(metrics.CacheMiss)
		default:
			f.metrics.RecordCache(metrics.CacheError)
			f.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, fitting")
		}
	}

	start := time.Now()
	fitted, err := model.Fit(series)
	elapsed := time.Since(start)
	f.metrics.RecordFit(err, elapsed)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().
		Stringer("order", order).
		Int("n", series.Len()).
		Int("iterations", fitted.Iterations).
		Str("status", fitted.Status).
		Dur("elapsed", elapsed).
		Msg("model fitted")

	if f.store != nil {
		if err := f.store.Set(ctx, key, fitted, f.ttl); err != nil {
			f.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return fitted, nil
}
