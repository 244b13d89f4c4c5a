// Package stats provides the statistical tests used to prepare a series for
// ARIMA fitting.
//
// # Stationarity Tests
//
// Every test implements Tester and reports a TestResult:
//
//	// Augmented Dickey-Fuller test (default)
//	// H0: series has a unit root (non-stationary)
//	res, err := stats.ADFTester{}.Test(series)
//	fmt.Printf("ADF: stat=%.4f, p=%.3f, stationary=%v\n",
//	    res.Statistic, res.PValue, res.Stationary)
//
//	// KPSS test
//	// H0: series is stationary
//	res, err = stats.KPSSTester{}.Test(series)
//
//	// Phillips-Perron test
//	res, err = stats.PPTester{}.Test(series)
//
// A series too short for the regression fails with errs.Numeric; a constant
// series fails with errs.DegenerateSeries.
//
// # Differencing Order
//
//	d, err := stats.SelectOrder(series, stats.ADFTester{}, stats.DefaultMaxDifferencing)
//
// # Autocorrelation and Residual Diagnostics
//
//	acf := stats.ACF(series, 20)
//	pacf := stats.PACF(series, 20)
//	lb, err := stats.LjungBox(residuals, 10, p+q)
//	white := err == nil && lb.White(0.05)
package stats
