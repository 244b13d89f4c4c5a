package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/timeseries"
)

// DefaultSignificance is the level at which a unit-root test is decided.
const DefaultSignificance = 0.05

// ADFMinObservations is the shortest series the ADF regression can be run on:
// with fewer points not even the zero-lag regression has residual degrees
// of freedom.
const ADFMinObservations = 4

// TestResult is the outcome of a stationarity test.
type TestResult struct {
	Name         string
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
	Stationary   bool
}

// Tester decides whether a series is stationary.
type Tester interface {
	Test(series *timeseries.Series) (*TestResult, error)
}

// NewTester returns the tester registered under name: "adf" (default),
// "kpss" or "pp".
func NewTester(name string, significance float64) (Tester, error) {
	switch name {
	case "", "adf":
		return ADFTester{Significance: significance}, nil
	case "kpss":
		return KPSSTester{Significance: significance}, nil
	case "pp":
		return PPTester{Significance: significance}, nil
	default:
		return nil, fmt.Errorf("unknown stationarity test %q", name)
	}
}

func significanceOrDefault(s float64) float64 {
	if s <= 0 || s >= 1 {
		return DefaultSignificance
	}
	return s
}

// checkVariance rejects inputs no unit-root regression can be run on.
func checkVariance(values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.New(errs.Numeric, "series contains non-finite values")
		}
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return nil
		}
	}
	return errs.New(errs.DegenerateSeries, "series of %d observations is constant", len(values))
}

// exactReversion is the smallest pull-back coefficient that makes an exact
// ADF fit count as mean-reverting; smaller magnitudes are rounding noise.
const exactReversion = 1e-8

// ADFTester runs the augmented Dickey-Fuller test. The null hypothesis is a
// unit root; the series is stationary when the p-value is at most the
// significance level.
type ADFTester struct {
	MaxLag       int     // upper bound for the AIC lag search, 0 for the default
	Significance float64 // 0 means DefaultSignificance
}

// Test implements Tester.
func (a ADFTester) Test(series *timeseries.Series) (*TestResult, error) {
	result, err := ADF(series, a.MaxLag)
	if err != nil {
		return nil, err
	}
	result.Stationary = result.PValue <= significanceOrDefault(a.Significance)
	return result, nil
}

// ADF performs the augmented Dickey-Fuller test with a constant term:
//
//	Δy_t = α + β·y_{t-1} + Σ γ_i·Δy_{t-i} + ε_t
//
// The number of lagged differences is chosen by AIC between 0 and maxLag,
// with every candidate fitted on the same sample. maxLag <= 0 uses
// 12·(n/100)^(1/4). The p-value follows MacKinnon (1994) and is rounded to
// three decimals.
//
// A series the regression reproduces exactly has no noise to test. It is
// reported stationary when the lagged level pulls it back (β below
// -exactReversion) and non-stationary otherwise.
func ADF(series *timeseries.Series, maxLag int) (*TestResult, error) {
	x := series.Values
	n := len(x)
	if n < ADFMinObservations {
		return nil, errs.New(errs.Numeric, "ADF test needs at least %d observations, got %d", ADFMinObservations, n)
	}
	if err := checkVariance(x); err != nil {
		return nil, err
	}

	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if bound := n/2 - 2; maxLag > bound {
		maxLag = bound
	}

	dx := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dx[i-1] = x[i] - x[i-1]
	}

	// Lags whose regressors are collinear (deterministic sequences) are
	// skipped; the test fails only when no candidate can be fitted.
	bestLag := -1
	bestAIC := math.Inf(1)
	var lastErr error
	for lag := 0; lag <= maxLag; lag++ {
		fit, err := adfRegression(x, dx, lag, maxLag)
		if err != nil {
			lastErr = fmt.Errorf("ADF lag %d: %w", lag, err)
			continue
		}
		if aic := fit.aic(); bestLag < 0 || aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}
	if bestLag < 0 {
		return nil, lastErr
	}

	fit, err := adfRegression(x, dx, bestLag, bestLag)
	if err != nil {
		return nil, fmt.Errorf("ADF lag %d: %w", bestLag, err)
	}

	var tStat, pValue float64
	switch {
	case fit.exact() && fit.Coeffs[1] < -exactReversion:
		// Noise-free mean reversion, such as a pure sinusoid.
		tStat, pValue = math.Inf(-1), 0
	case fit.exact():
		// Noise-free drift or growth carries no evidence against a unit root.
		tStat, pValue = math.Inf(1), 1
	default:
		tStat = fit.tStat(1)
		if math.IsNaN(tStat) || math.IsInf(tStat, 0) {
			return nil, errs.New(errs.Numeric, "ADF statistic is undefined (t=%g)", tStat)
		}
		pValue = roundTo(mackinnonPValue(tStat), 3)
	}

	return &TestResult{
		Name:         "adf",
		Statistic:    tStat,
		PValue:       pValue,
		Lags:         bestLag,
		NObs:         fit.NObs,
		CriticalVals: adfCriticalValues(fit.NObs),
		Stationary:   pValue <= DefaultSignificance,
	}, nil
}

// adfRegression regresses dx[t] on [1, x[t], dx[t-1], ..., dx[t-lag]] for
// t from start to the end of dx. Since dx[t] = x[t+1]-x[t], x[t] is the
// lagged level.
func adfRegression(x, dx []float64, lag, start int) (*olsResult, error) {
	rows := len(dx) - start
	y := make([]float64, rows)
	design := make([][]float64, rows)

	for i := 0; i < rows; i++ {
		t := start + i
		y[i] = dx[t]

		row := make([]float64, 2+lag)
		row[0] = 1
		row[1] = x[t]
		for j := 1; j <= lag; j++ {
			row[1+j] = dx[t-j]
		}
		design[i] = row
	}

	return olsRegression(design, y)
}

// MacKinnon (2010) finite-sample critical values for the constant-only
// regression: crit = b0 + b1/n + b2/n² + b3/n³.
var adfCritCoeffs = map[string][4]float64{
	"1%":  {-3.43035, -6.5393, -16.786, -79.433},
	"5%":  {-2.86154, -2.8903, -4.234, -40.040},
	"10%": {-2.56677, -1.5384, -2.809, 0},
}

func adfCriticalValues(nobs int) map[string]float64 {
	n := float64(nobs)
	crit := make(map[string]float64, len(adfCritCoeffs))
	for level, b := range adfCritCoeffs {
		crit[level] = b[0] + b[1]/n + b[2]/(n*n) + b[3]/(n*n*n)
	}
	return crit
}

// MacKinnon (1994) response surface for one series with a constant.
var (
	tauMaxC    = 2.74
	tauMinC    = -18.83
	tauStarC   = -1.61
	tauSmallPC = []float64{2.1659, 1.4412, 0.038269}
	tauLargePC = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// mackinnonPValue approximates the ADF p-value as Φ(poly(stat)).
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat > tauMaxC:
		return 1
	case stat < tauMinC:
		return 0
	}

	coeffs := tauLargePC
	if stat <= tauStarC {
		coeffs = tauSmallPC
	}

	poly := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		poly = poly*stat + coeffs[i]
	}
	return distuv.UnitNormal.CDF(poly)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// KPSSTester runs the KPSS level-stationarity test. The null hypothesis is
// stationarity, so the series is stationary when the p-value is at least
// the significance level.
type KPSSTester struct {
	Lags         int
	Significance float64
}

// Test implements Tester.
func (k KPSSTester) Test(series *timeseries.Series) (*TestResult, error) {
	result, err := KPSS(series, "c", k.Lags)
	if err != nil {
		return nil, err
	}
	result.Stationary = result.PValue >= significanceOrDefault(k.Significance)
	return result, nil
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test. regression is
// "c" for level stationarity or "ct" for trend stationarity.
func KPSS(series *timeseries.Series, regression string, nlags int) (*TestResult, error) {
	n := series.Len()
	if n < 10 {
		return nil, errs.New(errs.Numeric, "KPSS test needs at least 10 observations, got %d", n)
	}
	if err := checkVariance(series.Values); err != nil {
		return nil, err
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	residuals := make([]float64, n)
	if regression == "ct" {
		sumT, sumY, sumTY, sumT2 := 0.0, 0.0, 0.0, 0.0
		for i, v := range series.Values {
			t := float64(i)
			sumT += t
			sumY += v
			sumTY += t * v
			sumT2 += t * t
		}
		nf := float64(n)
		b := (nf*sumTY - sumT*sumY) / (nf*sumT2 - sumT*sumT)
		a := (sumY - b*sumT) / nf

		for i, v := range series.Values {
			residuals[i] = v - a - b*float64(i)
		}
	} else {
		mean := series.Mean()
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	etaSq := 0.0
	cumSum := 0.0
	for _, r := range residuals {
		cumSum += r
		etaSq += cumSum * cumSum
	}

	s2 := neweyWest(residuals, nlags)
	if s2 <= 0 {
		return nil, errs.New(errs.Numeric, "KPSS long-run variance is not positive")
	}

	stat := etaSq / (float64(n) * float64(n) * s2)

	crit := kpssLevelCrit
	if regression == "ct" {
		crit = kpssTrendCrit
	}

	pValue := kpssPValue(stat, crit)

	return &TestResult{
		Name:      "kpss",
		Statistic: stat,
		PValue:    pValue,
		Lags:      nlags,
		NObs:      n,
		CriticalVals: map[string]float64{
			"10%": crit[0],
			"5%":  crit[1],
			"1%":  crit[3],
		},
		Stationary: pValue >= DefaultSignificance,
	}, nil
}

// neweyWest estimates the long-run variance with Bartlett weights.
func neweyWest(residuals []float64, nlags int) float64 {
	n := len(residuals)
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)

	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		weight := 1.0 - float64(l)/float64(nlags+1)
		s2 += 2 * weight * cov
	}
	return s2
}

// Critical values at 10%, 5%, 2.5% and 1%.
var (
	kpssLevelCrit = [4]float64{0.347, 0.463, 0.574, 0.739}
	kpssTrendCrit = [4]float64{0.119, 0.146, 0.176, 0.216}
	kpssPLevels   = [4]float64{0.10, 0.05, 0.025, 0.01}
)

// kpssPValue interpolates the tabulated critical values; results are
// clipped to [0.01, 0.10].
func kpssPValue(stat float64, crit [4]float64) float64 {
	if stat <= crit[0] {
		return kpssPLevels[0]
	}
	if stat >= crit[3] {
		return kpssPLevels[3]
	}
	for i := 1; i < len(crit); i++ {
		if stat <= crit[i] {
			frac := (stat - crit[i-1]) / (crit[i] - crit[i-1])
			return kpssPLevels[i-1] + frac*(kpssPLevels[i]-kpssPLevels[i-1])
		}
	}
	return kpssPLevels[3]
}

// PPTester runs the Phillips-Perron unit-root test with the same decision
// rule as ADFTester.
type PPTester struct {
	Lags         int
	Significance float64
}

// Test implements Tester.
func (p PPTester) Test(series *timeseries.Series) (*TestResult, error) {
	result, err := PhillipsPerron(series, p.Lags)
	if err != nil {
		return nil, err
	}
	result.Stationary = result.PValue <= significanceOrDefault(p.Significance)
	return result, nil
}

// PhillipsPerron performs the Phillips-Perron test for a unit root, which
// corrects the Dickey-Fuller statistic for serial correlation
// nonparametrically instead of adding lagged differences:
//
//	Z_t = √(γ₀/λ²)·t_β − (λ²−γ₀)·T / (2λ·√Σ(y_{t-1}−ȳ)²)
//
// with γ₀ the residual variance and λ² its Newey-West long-run variance.
func PhillipsPerron(series *timeseries.Series, nlags int) (*TestResult, error) {
	n := series.Len()
	if n < 10 {
		return nil, errs.New(errs.Numeric, "Phillips-Perron test needs at least 10 observations, got %d", n)
	}
	if err := checkVariance(series.Values); err != nil {
		return nil, err
	}

	if nlags <= 0 {
		nlags = int(math.Floor(4 * math.Pow(float64(n)/100, 0.25)))
	}

	nObs := n - 1
	y := make([]float64, nObs)
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		y[i] = series.Values[i+1] - series.Values[i]
		x[i] = []float64{1, series.Values[i]}
	}

	fit, err := olsRegression(x, y)
	if err != nil {
		return nil, fmt.Errorf("Phillips-Perron: %w", err)
	}

	residuals := make([]float64, nObs)
	for i := 0; i < nObs; i++ {
		residuals[i] = y[i] - fit.Coeffs[0] - fit.Coeffs[1]*x[i][1]
	}

	gamma0 := 0.0
	for _, r := range residuals {
		gamma0 += r * r
	}
	gamma0 /= float64(nObs)
	lambda2 := neweyWest(residuals, nlags)
	if lambda2 <= 0 || gamma0 <= 0 {
		return nil, errs.New(errs.Numeric, "Phillips-Perron variance estimate is not positive")
	}

	xMean := 0.0
	for i := 0; i < nObs; i++ {
		xMean += x[i][1]
	}
	xMean /= float64(nObs)

	sumXDev2 := 0.0
	for i := 0; i < nObs; i++ {
		d := x[i][1] - xMean
		sumXDev2 += d * d
	}

	correction := (lambda2 - gamma0) * float64(nObs) /
		(2 * math.Sqrt(lambda2) * math.Sqrt(sumXDev2))
	ppStat := math.Sqrt(gamma0/lambda2)*fit.tStat(1) - correction
	pValue := roundTo(mackinnonPValue(ppStat), 3)

	return &TestResult{
		Name:         "pp",
		Statistic:    ppStat,
		PValue:       pValue,
		Lags:         nlags,
		NObs:         nObs,
		CriticalVals: adfCriticalValues(nObs),
		Stationary:   pValue <= DefaultSignificance,
	}, nil
}
