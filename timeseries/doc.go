// Package timeseries provides the dated series type shared by the forecasting
// packages, along with the transformations the pipeline needs.
//
// # Creating a Series
//
// Quote histories carry explicit dates:
//
//	series, err := timeseries.NewWithTimestamps(dates, closes)
//	if err := series.ValidatePrices(); err != nil {
//	    // empty input, unordered dates or non-positive prices
//	}
//
// timeseries.New builds a series with synthetic daily dates, which is handy
// for tests and for values that carry no calendar.
//
// # Transformations
//
//	smoothed, err := series.RollingMean(7) // trailing mean, leading gap dropped
//	diff := smoothed.Diff()                 // first difference
//	diff2 := smoothed.DiffOrder(2)          // difference applied twice
//
// # Loading from CSV
//
// Daily quote exports with Date and Close columns load directly:
//
//	series, err := timeseries.LoadCSV("AAPL.csv", nil)
//
// Rows are sorted by date and rows with a missing price are skipped.
//
// # Fingerprints
//
// Series.Fingerprint hashes timestamps and values; the forecast cache uses it
// to recognise repeated input.
package timeseries
