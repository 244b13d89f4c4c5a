package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/metrics"
	"github.com/sartorproj/stockcast/timeseries"
)

type forecastFlags struct {
	dateColumn  string
	valueColumn string
	format      string
	output      string
	summary     bool
	combined    bool
	metricsFile string
}

func newForecastCmd(a *app) *cobra.Command {
	f := &forecastFlags{}

	cmd := &cobra.Command{
		Use:   "forecast <prices.csv|->",
		Short: "Forecast the next days of closing prices",
		Long: `Forecast reads a daily quote history and prints a dated price forecast.

Examples:
  stockcast forecast AAPL.csv
  stockcast forecast --format json --summary AAPL.csv
  cat AAPL.csv | stockcast forecast --value-column "Adj Close" -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runForecast(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.dateColumn, "date-column", "Date", "CSV date column")
	flags.StringVar(&f.valueColumn, "value-column", "Close", "CSV price column")
	flags.StringVarP(&f.format, "format", "f", "table", "output format (table|json|csv)")
	flags.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	flags.BoolVar(&f.summary, "summary", false, "print model order and hold-out accuracy")
	flags.BoolVar(&f.combined, "combined", false, "include the smoothed history before the forecast")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file (overrides metrics.file)")
	return cmd
}

func (a *app) runForecast(cmd *cobra.Command, source string, f *forecastFlags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prices, err := readPrices(cmd.InOrStdin(), source, f.dateColumn, f.valueColumn)
	if err != nil {
		return err
	}

	store, err := forecast.OpenCache(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	metricsFile := a.cfg.Metrics.File
	if f.metricsFile != "" {
		metricsFile = f.metricsFile
	}
	var rec *metrics.Recorder
	if a.cfg.Metrics.Enabled || metricsFile != "" {
		rec = metrics.New()
	}

	opts := []forecast.Option{
		forecast.WithLogger(a.logger),
		forecast.WithMetrics(rec),
	}
	if store != nil {
		opts = append(opts, forecast.WithCache(store, a.cfg.Cache.TTL))
	}
	pipeline, err := forecast.FromConfig(a.cfg, opts...)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("source", source).
		Int("n", prices.Len()).
		Str("cache", a.cfg.Cache.Backend).
		Str("test", a.cfg.Stationarity.Test).
		Msg("forecasting")

	start := time.Now()
	res, runErr := pipeline.Run(ctx, prices)
	if metricsFile != "" {
		if err := rec.WriteFile(metricsFile); err != nil {
			a.logger.Warn().Err(err).Str("file", metricsFile).Msg("could not write metrics")
		}
	}
	if runErr != nil {
		return runErr
	}
	a.logger.Info().
		Stringer("order", res.Order).
		Float64("rmse", res.RMSE).
		Dur("elapsed", time.Since(start)).
		Msg("forecast complete")

	out := cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	if f.summary && f.format != "json" {
		writeSummary(out, res)
	}
	points := res.Points
	if f.combined {
		points = res.Combined()
	}
	return render(out, f.format, res, points)
}

func readPrices(stdin io.Reader, source, dateColumn, valueColumn string) (*timeseries.Series, error) {
	opts := timeseries.DefaultCSVOptions()
	opts.DateColumn = dateColumn
	opts.ValueColumn = valueColumn

	if source == "-" {
		return timeseries.LoadCSVFromReader(stdin, opts)
	}
	return timeseries.LoadCSV(source, opts)
}
