package forecast

import (
	"context"
	"fmt"

	"github.com/sartorproj/stockcast/cache"
	"github.com/sartorproj/stockcast/config"
	"github.com/sartorproj/stockcast/stats"
)

// FromConfig builds a pipeline from cfg. Extra options (logger, cache,
// metrics, clock) are applied after the configured ones.
func FromConfig(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	loc, err := cfg.LoadLocation()
	if err != nil {
		return nil, err
	}
	tester, err := stats.NewTester(cfg.Stationarity.Test, cfg.Pipeline.Significance)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithWindow(cfg.Pipeline.Window),
		WithHorizon(cfg.Pipeline.Horizon),
		WithHoldout(cfg.Pipeline.Holdout),
		WithMaxDifferencing(cfg.Pipeline.MaxDifferencing),
		WithOrder(cfg.ARIMA.P, cfg.ARIMA.Q),
		WithSolverLimits(cfg.ARIMA.MaxIterations, cfg.ARIMA.MaxFitDuration),
		WithTester(tester),
		WithLocation(loc),
	}
	return New(append(base, opts...)...), nil
}

// OpenCache creates the fitted model store selected by cfg.Cache. It
// returns nil for backend "none".
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	c := cfg.Cache
	policy, err := cache.NewPolicy(c.Policy)
	if err != nil {
		return nil, err
	}
	memory := func() *cache.Memory {
		return cache.NewMemory(
			cache.WithMaxEntries(c.MaxEntries),
			cache.WithTTL(c.TTL),
			cache.WithPolicy(policy),
			cache.WithCleanupInterval(c.CleanupInterval),
		)
	}
	dial := func() (*cache.Redis, error) {
		return cache.DialRedis(ctx, cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
			TTL:      c.TTL,
		})
	}

	switch c.Backend {
	case "none":
		return nil, nil
	case "", "memory":
		return memory(), nil
	case "redis":
		remote, err := dial()
		if err != nil {
			return nil, err
		}
		return remote, nil
	case "layered":
		remote, err := dial()
		if err != nil {
			return nil, err
		}
		return cache.NewLayered(memory(), remote), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}
