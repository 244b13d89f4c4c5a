// Package arima implements AutoRegressive Integrated Moving Average (ARIMA) models.
//
// An ARIMA(p,d,q) model combines:
//   - AR(p): AutoRegressive component with p lags
//   - I(d): Integration (differencing) of order d
//   - MA(q): Moving Average component with q lags
//
// # Basic Usage
//
//	model := arima.New(5, 1, 5, arima.WithMaxIterations(5000))
//
//	fitted, err := model.Fit(series)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	forecasts, err := fitted.Forecast(30)
//
// # Estimation
//
// Fit minimizes the conditional sum of squares with a Nelder-Mead simplex.
// The AR and MA polynomials are parameterized through partial
// autocorrelations, so every candidate the solver visits is stationary and
// invertible. A constant is estimated only when d is zero.
//
// Running out of iterations or time returns an error of kind
// errs.NonConvergence; any other solver failure returns errs.ModelFit.
//
// # Serialization
//
// Fitted holds only the coefficients and the tail of the sample the
// forecast recursion needs, and round-trips through encoding/json.
package arima
