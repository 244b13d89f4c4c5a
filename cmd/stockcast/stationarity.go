package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sartorproj/stockcast/stats"
	"github.com/sartorproj/stockcast/timeseries"
)

func newStationarityCmd(a *app) *cobra.Command {
	var (
		dateColumn  string
		valueColumn string
		lags        int
	)

	cmd := &cobra.Command{
		Use:   "stationarity <prices.csv|->",
		Short: "Run unit-root tests on the smoothed price history",
		Long: `Stationarity smooths the history with the configured window, runs the ADF,
KPSS and Phillips-Perron tests on it and reports the differencing order the
configured test selects.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := readPrices(cmd.InOrStdin(), args[0], dateColumn, valueColumn)
			if err != nil {
				return err
			}
			if err := prices.ValidatePrices(); err != nil {
				return err
			}
			smoothed, err := prices.RollingMean(a.cfg.Pipeline.Window)
			if err != nil {
				return err
			}
			return a.runStationarity(cmd, smoothed, lags)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dateColumn, "date-column", "Date", "CSV date column")
	flags.StringVar(&valueColumn, "value-column", "Close", "CSV price column")
	flags.IntVar(&lags, "lags", 0, "also print ACF and PACF of the differenced series up to this lag")
	return cmd
}

func (a *app) runStationarity(cmd *cobra.Command, smoothed *timeseries.Series, lags int) error {
	out := cmd.OutOrStdout()
	significance := a.cfg.Pipeline.Significance

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEST\tSTATISTIC\tP-VALUE\tLAGS\tSTATIONARY")
	for _, name := range []string{"adf", "kpss", "pp"} {
		tester, err := stats.NewTester(name, significance)
		if err != nil {
			return err
		}
		res, err := tester.Test(smoothed)
		if err != nil {
			a.logger.Warn().Err(err).Str("test", name).Msg("test failed")
			fmt.Fprintf(w, "%s\t-\t-\t-\t%v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%d\t%t\n", res.Name, res.Statistic, res.PValue, res.Lags, res.Stationary)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	tester, err := stats.NewTester(a.cfg.Stationarity.Test, significance)
	if err != nil {
		return err
	}
	d, err := stats.SelectOrder(smoothed, tester, a.cfg.Pipeline.MaxDifferencing)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nn=%d differencing order (%s, alpha=%.2f): d=%d\n",
		smoothed.Len(), a.cfg.Stationarity.Test, significance, d)

	if lags <= 0 {
		return nil
	}
	differenced := smoothed.DiffOrder(d)
	acf := stats.ACF(differenced, lags)
	pacf := stats.PACF(differenced, lags)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nLAG\tACF\tPACF")
	for k := 1; k <= lags && k < len(acf) && k < len(pacf); k++ {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\n", k, acf[k], pacf[k])
	}
	return w.Flush()
}
