// Package config loads stockcast settings.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// then STOCKCAST_* environment variables. The result is validated before
// it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/stockcast/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// STOCKCAST_ARIMA_MAX_ITERATIONS.
const EnvPrefix = "STOCKCAST"

// Config holds all application configuration.
type Config struct {
	Log          logging.Config     `yaml:"log" envconfig:"LOG"`
	Pipeline     PipelineConfig     `yaml:"pipeline" envconfig:"PIPELINE"`
	Stationarity StationarityConfig `yaml:"stationarity" envconfig:"STATIONARITY"`
	ARIMA        ARIMAConfig        `yaml:"arima" envconfig:"ARIMA"`
	Cache        CacheConfig        `yaml:"cache" envconfig:"CACHE"`
	Metrics      MetricsConfig      `yaml:"metrics" envconfig:"METRICS"`
}

// PipelineConfig shapes the forecasting run.
type PipelineConfig struct {
	Window          int     `yaml:"window" envconfig:"WINDOW" validate:"min=1"`
	Horizon         int     `yaml:"horizon" envconfig:"HORIZON" validate:"min=1"`
	Holdout         int     `yaml:"holdout" envconfig:"HOLDOUT" validate:"min=1"`
	Significance    float64 `yaml:"significance" envconfig:"SIGNIFICANCE" validate:"gt=0,lt=1"`
	MaxDifferencing int     `yaml:"max_differencing" envconfig:"MAX_DIFFERENCING" validate:"min=1,max=50"`
	// Location is the IANA zone forecast dates are computed in.
	Location string `yaml:"location" envconfig:"LOCATION" validate:"required"`
}

// StationarityConfig selects the unit-root test.
type StationarityConfig struct {
	Test string `yaml:"test" envconfig:"TEST" validate:"oneof=adf kpss pp"`
}

// ARIMAConfig holds the model order and solver ceilings.
type ARIMAConfig struct {
	P              int           `yaml:"p" envconfig:"P" validate:"min=0,max=20"`
	Q              int           `yaml:"q" envconfig:"Q" validate:"min=0,max=20"`
	MaxIterations  int           `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"min=1"`
	MaxFitDuration time.Duration `yaml:"max_fit_duration" envconfig:"MAX_FIT_DURATION" validate:"gt=0"`
}

// CacheConfig selects the fitted model cache backend. Policy and
// CleanupInterval apply to the in-process store; a zero CleanupInterval
// leaves expired entries to lazy removal on read.
type CacheConfig struct {
	Backend         string        `yaml:"backend" envconfig:"BACKEND" validate:"oneof=none memory redis layered"`
	TTL             time.Duration `yaml:"ttl" envconfig:"TTL" validate:"min=0"`
	MaxEntries      int           `yaml:"max_entries" envconfig:"MAX_ENTRIES" validate:"min=1"`
	Policy          string        `yaml:"policy" envconfig:"POLICY" validate:"oneof=lru fifo"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL" validate:"min=0"`
	Redis           RedisConfig   `yaml:"redis" envconfig:"REDIS"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB" validate:"min=0,max=15"`
	Prefix   string `yaml:"prefix" envconfig:"PREFIX"`
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	File    string `yaml:"file" envconfig:"FILE"` // text exposition written at exit
}

// SetDefaults fills unset fields; defaults.Set calls it.
func (c *Config) SetDefaults() {
	setString(&c.Log.Level, "info")
	setString(&c.Log.Format, "console")
	setString(&c.Log.Output, "stderr")

	setInt(&c.Pipeline.Window, 7)
	setInt(&c.Pipeline.Horizon, 30)
	setInt(&c.Pipeline.Holdout, 30)
	if c.Pipeline.Significance == 0 {
		c.Pipeline.Significance = 0.05
	}
	setInt(&c.Pipeline.MaxDifferencing, 10)
	setString(&c.Pipeline.Location, "Local")

	setString(&c.Stationarity.Test, "adf")

	setInt(&c.ARIMA.P, 5)
	setInt(&c.ARIMA.Q, 5)
	setInt(&c.ARIMA.MaxIterations, 10000)
	if c.ARIMA.MaxFitDuration == 0 {
		c.ARIMA.MaxFitDuration = 30 * time.Second
	}

	setString(&c.Cache.Backend, "memory")
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	setInt(&c.Cache.MaxEntries, 256)
	setString(&c.Cache.Policy, "lru")
	setString(&c.Cache.Redis.Addr, "localhost:6379")
	setString(&c.Cache.Redis.Prefix, "stockcast")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if _, err := c.LoadLocation(); err != nil {
		return err
	}
	if c.UsesRedis() && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for backend %q", c.Cache.Backend)
	}
	return nil
}

// UsesRedis reports whether the cache backend needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == "redis" || c.Cache.Backend == "layered"
}

// LoadLocation resolves Pipeline.Location.
func (c *Config) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Pipeline.Location)
	if err != nil {
		return nil, fmt.Errorf("pipeline.location: %w", err)
	}
	return loc, nil
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}
