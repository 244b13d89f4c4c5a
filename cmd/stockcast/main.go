// Command stockcast forecasts daily closing prices from a CSV quote history.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sartorproj/stockcast/config"
	"github.com/sartorproj/stockcast/logging"
)

var version = "dev"

// app holds state shared by subcommands once the root pre-run has loaded
// configuration.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "stockcast",
		Short: "Forecast daily stock prices with ARIMA",
		Long: `stockcast smooths a daily closing price history, picks a differencing
order with a unit-root test, fits ARIMA(5,d,5) and forecasts the next 30 days.

Configuration is read from an optional YAML file and STOCKCAST_* environment
variables, which take precedence. A .env file is loaded first if present.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&a.logLevel, "log-level", "", "override log.level (trace|debug|info|warn|error|disabled)")

	root.AddCommand(
		newForecastCmd(a),
		newStationarityCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
