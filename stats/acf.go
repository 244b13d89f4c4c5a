package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/stockcast/timeseries"
)

// ACF returns the sample autocorrelations of series for lags 0..maxLag,
// with maxLag capped at len-1. It returns nil for a constant or empty series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	return autocorrelations(series.Values, maxLag)
}

// PACF returns the partial autocorrelations for lags 0..maxLag from the
// Durbin-Levinson recursion. Lag 0 is 1 by convention. It returns nil for a
// constant series or when fewer than two observations are available.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	if maxLag >= series.Len() {
		maxLag = series.Len() - 1
	}
	if maxLag < 1 {
		return nil
	}
	rho := autocorrelations(series.Values, maxLag)
	if rho == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	// phi holds the AR(k) coefficients of the current recursion step.
	phi := make([]float64, maxLag+1)
	next := make([]float64, maxLag+1)
	v := 1.0
	for k := 1; k <= maxLag; k++ {
		num := rho[k]
		for j := 1; j < k; j++ {
			num -= phi[j] * rho[k-j]
		}
		if v <= 0 {
			break
		}
		a := num / v

		next[k] = a
		for j := 1; j < k; j++ {
			next[j] = phi[j] - a*phi[k-j]
		}
		phi, next = next, phi
		pacf[k] = a
		v *= 1 - a*a
	}
	return pacf
}

// autocorrelations uses the biased (divide by n) autocovariance estimator,
// which keeps the sequence positive semi-definite.
func autocorrelations(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(values, nil)
	var c0 float64
	for _, v := range values {
		c0 += (v - mean) * (v - mean)
	}
	if c0 == 0 {
		return nil
	}

	rho := make([]float64, maxLag+1)
	for k := range rho {
		var ck float64
		for i := k; i < n; i++ {
			ck += (values[i] - mean) * (values[i-k] - mean)
		}
		rho[k] = ck / c0
	}
	return rho
}
