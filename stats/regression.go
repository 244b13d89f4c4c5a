package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/stockcast/errs"
)

// maxCondition bounds the condition number of the column-scaled X'X before a
// regression is treated as singular.
const maxCondition = 1e14

// exactFitTolerance is the largest SSR, relative to the squared norm of the
// target, that still counts as an exact fit.
const exactFitTolerance = 1e-20

// olsResult holds an ordinary least squares fit.
type olsResult struct {
	Coeffs    []float64
	StdErrors []float64
	SSR       float64 // sum of squared residuals
	TSS       float64 // uncentered sum of squares of the target
	NObs      int
}

// exact reports whether the regressors reproduce the target up to rounding.
// Standard errors and t statistics of an exact fit are meaningless.
func (r *olsResult) exact() bool {
	return r.SSR <= exactFitTolerance*r.TSS
}

// aic returns the Gaussian Akaike information criterion of the fit.
func (r *olsResult) aic() float64 {
	n := float64(r.NObs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(r.SSR/n) + 1)
	return -2*llf + 2*float64(len(r.Coeffs))
}

// tStat returns the t statistic of coefficient i.
func (r *olsResult) tStat(i int) float64 {
	return r.Coeffs[i] / r.StdErrors[i]
}

// olsRegression performs ordinary least squares regression of y on the rows
// of x through a Cholesky factorization of the normal equations. Every column
// is scaled to unit norm before factorizing, so a price level of 1e5 next to
// an intercept does not read as near-singular; coefficients and standard
// errors are reported on the original scale.
func olsRegression(x [][]float64, y []float64) (*olsResult, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, errs.New(errs.Numeric, "regression needs one design row per observation, got %d rows for %d observations", len(x), n)
	}

	k := len(x[0])
	if n <= k {
		return nil, errs.New(errs.Numeric, "regression with %d regressors needs more than %d observations, got %d", k, k, n)
	}

	design := mat.NewDense(n, k, nil)
	for i, row := range x {
		design.SetRow(i, row)
	}
	norms := make([]float64, k)
	for j := 0; j < k; j++ {
		norms[j] = mat.Norm(design.ColView(j), 2)
		if norms[j] == 0 || math.IsNaN(norms[j]) || math.IsInf(norms[j], 0) {
			return nil, errs.New(errs.Numeric, "singular regression matrix (regressor %d has norm %g)", j, norms[j])
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			design.Set(i, j, design.At(i, j)/norms[j])
		}
	}
	target := mat.NewVecDense(n, y)

	var xtx mat.SymDense
	xtx.SymOuterK(1, design.T())

	var xty mat.VecDense
	xty.MulVec(design.T(), target)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errs.New(errs.Numeric, "singular regression matrix")
	}
	if cond := chol.Cond(); math.IsNaN(cond) || cond > maxCondition {
		return nil, errs.New(errs.Numeric, "ill-conditioned regression matrix (condition number %.3g)", cond)
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, errs.Wrap(errs.Numeric, err)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(design, &beta)
	resid.SubVec(target, &fitted)
	ssr := mat.Dot(&resid, &resid)

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, errs.Wrap(errs.Numeric, err)
	}

	s2 := ssr / float64(n-k)
	coeffs := make([]float64, k)
	stdErrors := make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i) / norms[i]
		stdErrors[i] = math.Sqrt(s2*inv.At(i, i)) / norms[i]
	}

	return &olsResult{
		Coeffs:    coeffs,
		StdErrors: stdErrors,
		SSR:       ssr,
		TSS:       mat.Dot(target, target),
		NObs:      n,
	}, nil
}
