// Package stockcast forecasts daily stock closing prices.
//
// A quote history is smoothed with a 7-day trailing mean, differenced until
// an augmented Dickey-Fuller test accepts it as stationary, standardized and
// fitted with ARIMA(5,d,5). The model is scored on the last 30 smoothed days
// and then refitted on the full history to forecast the next 30 calendar
// days.
//
// # Packages
//
//   - timeseries: series type, CSV loading, rolling mean, differencing
//   - stats: ADF, KPSS and Phillips-Perron tests, ACF/PACF, Ljung-Box
//   - scaler: z-score standardization
//   - arima: conditional sum of squares ARIMA fitting and forecasting
//   - cache: memory, Redis and layered stores for fitted models
//   - forecast: the end-to-end pipeline
//   - config, logging, metrics: application wiring
//
// # Quick Start
//
//	prices, _ := timeseries.LoadCSV("AAPL.csv", nil)
//	res, err := forecast.New().Run(ctx, prices)
//	if err != nil {
//		return err
//	}
//	for _, p := range res.Points {
//		fmt.Println(p.Date.Format(time.DateOnly), p.Price)
//	}
//
// The stockcast command wraps the pipeline with configuration, a fitted
// model cache and Prometheus metrics.
package stockcast
