package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/timeseries"
)

func render(w io.Writer, format string, res *forecast.Result, points []forecast.Point) error {
	switch format {
	case "table":
		return renderTable(w, points)
	case "json":
		doc := struct {
			*forecast.Result
			Points []forecast.Point `json:"points"`
		}{res, points}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "csv":
		return renderCSV(w, points)
	default:
		return fmt.Errorf("unknown format %q (want table, json or csv)", format)
	}
}

func renderTable(w io.Writer, points []forecast.Point) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tPRICE\t")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%.2f\t\n", p.Date.Format(time.DateOnly), p.Price)
	}
	return tw.Flush()
}

func renderCSV(w io.Writer, points []forecast.Point) error {
	dates := make([]time.Time, len(points))
	prices := make([]float64, len(points))
	for i, p := range points {
		dates[i] = p.Date
		prices[i] = p.Price
	}
	series, err := timeseries.NewWithTimestamps(dates, prices)
	if err != nil {
		return err
	}
	return timeseries.WriteCSV(w, series, "Forecast")
}

func writeSummary(w io.Writer, res *forecast.Result) {
	eval := res.Evaluation
	fmt.Fprintf(w, "model      ARIMA%s\n", res.Order)
	if m := res.Model; m != nil {
		fmt.Fprintf(w, "fit        %s after %d iterations, sigma2=%.4g aic=%.2f\n",
			m.Status, m.Iterations, m.Variance, m.AIC)
		if lb := m.LjungBox; lb != nil {
			fmt.Fprintf(w, "residuals  Ljung-Box Q(%d)=%.2f p=%.3f white=%t\n",
				lb.Lags, lb.Statistic, lb.PValue, lb.White(0.05))
		}
	}
	fmt.Fprintf(w, "scaler     mean=%.4f scale=%.4f\n", res.Scaler.Mean, res.Scaler.Scale)
	fmt.Fprintf(w, "hold-out   rmse=%.2f mae=%.4f mape=%.2f%% (train %d, test %d)\n",
		eval.RMSE, eval.MAE, eval.MAPE, eval.Train, eval.Test)
	fmt.Fprintf(w, "generated  %s\n\n", res.GeneratedAt.Format(time.RFC3339))
}
