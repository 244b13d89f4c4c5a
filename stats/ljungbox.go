package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/stockcast/errs"
)

// LjungBoxMinObservations is the shortest residual sequence tested.
const LjungBoxMinObservations = 10

// LjungBoxResult is a portmanteau test of residual autocorrelation.
type LjungBoxResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Lags      int     `json:"lags"`
	DOF       int     `json:"dof"`
}

// White reports whether the residuals look uncorrelated at level alpha.
func (r *LjungBoxResult) White(alpha float64) bool {
	return r.PValue > alpha
}

// LjungBox computes Q = n(n+2) sum r_k^2/(n-k) over lags 1..lags and its
// chi-squared p-value with lags-fitdf degrees of freedom (at least 1).
// fitdf is p+q for ARIMA residuals.
func LjungBox(residuals []float64, lags, fitdf int) (*LjungBoxResult, error) {
	n := len(residuals)
	if n < LjungBoxMinObservations {
		return nil, errs.New(errs.InsufficientData,
			"Ljung-Box needs at least %d residuals, got %d", LjungBoxMinObservations, n)
	}
	if lags < 1 {
		return nil, errs.New(errs.Numeric, "Ljung-Box needs at least one lag, got %d", lags)
	}
	lags = min(lags, n-1)

	rho := autocorrelations(residuals, lags)
	if rho == nil {
		return nil, errs.New(errs.DegenerateSeries, "residuals are constant")
	}

	var q float64
	for k := 1; k <= lags; k++ {
		q += rho[k] * rho[k] / float64(n-k)
	}
	q *= float64(n) * float64(n+2)

	dof := max(lags-fitdf, 1)
	return &LjungBoxResult{
		Statistic: q,
		PValue:    distuv.ChiSquared{K: float64(dof)}.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}, nil
}
