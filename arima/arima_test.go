package arima

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/timeseries"
)

// ar1 generates an AR(1) process around level with seeded Gaussian innovations.
func ar1(n int, phi, level float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	values[0] = level
	for i := 1; i < n; i++ {
		values[i] = level + phi*(values[i-1]-level) + rng.NormFloat64()
	}
	return values
}

func TestNewARIMA(t *testing.T) {
	model := New(2, 1, 1)

	if model.Order != (Order{P: 2, D: 1, Q: 1}) {
		t.Errorf("Expected order (2,1,1), got %s", model.Order)
	}
	if model.MaxIterations != DefaultMaxIterations {
		t.Errorf("Expected default iteration cap %d, got %d", DefaultMaxIterations, model.MaxIterations)
	}

	model = New(5, 0, 5, WithMaxIterations(50), WithMaxDuration(time.Second), WithMaxIterations(-1))
	if model.MaxIterations != 50 {
		t.Errorf("Expected iteration cap 50, got %d", model.MaxIterations)
	}
	if model.MaxDuration != time.Second {
		t.Errorf("Expected duration cap 1s, got %s", model.MaxDuration)
	}
}

func TestARIMAFitAR1(t *testing.T) {
	phi := 0.7
	series := timeseries.New(ar1(500, phi, 100, 1))

	fitted, err := New(1, 0, 0).Fit(series)
	if err != nil {
		t.Fatalf("Failed to fit AR(1) model: %v", err)
	}

	if len(fitted.ARCoeffs) != 1 {
		t.Fatalf("Expected 1 AR coefficient, got %d", len(fitted.ARCoeffs))
	}

	t.Logf("True AR coeff: %f, Estimated: %f, mean: %f", phi, fitted.ARCoeffs[0], fitted.Intercept)

	if math.Abs(fitted.ARCoeffs[0]-phi) > 0.15 {
		t.Errorf("AR coefficient estimate is off: true=%f, est=%f", phi, fitted.ARCoeffs[0])
	}

	if fitted.LjungBox == nil {
		t.Fatal("Expected a Ljung-Box diagnostic on 500 residuals")
	}
	if !fitted.LjungBox.White(0.001) {
		t.Errorf("Residuals of a correct AR(1) fit should be white, p=%f", fitted.LjungBox.PValue)
	}
	if math.Abs(fitted.Intercept-100) > 2 {
		t.Errorf("Expected mean near 100, got %f", fitted.Intercept)
	}
	if fitted.Variance <= 0 {
		t.Errorf("Expected positive residual variance, got %f", fitted.Variance)
	}
}

func TestARIMAFitMA1(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 400
	theta := 0.5
	innovations := make([]float64, n)
	for i := range innovations {
		innovations[i] = rng.NormFloat64()
	}
	values := make([]float64, n)
	values[0] = 100 + innovations[0]
	for i := 1; i < n; i++ {
		values[i] = 100 + innovations[i] + theta*innovations[i-1]
	}

	fitted, err := New(0, 0, 1).Fit(timeseries.New(values))
	if err != nil {
		t.Fatalf("Failed to fit MA(1) model: %v", err)
	}

	t.Logf("True MA coeff: %f, Estimated: %f", theta, fitted.MACoeffs[0])

	if math.Abs(fitted.MACoeffs[0]) >= 1 {
		t.Errorf("MA coefficient must be invertible, got %f", fitted.MACoeffs[0])
	}
	if math.Abs(fitted.MACoeffs[0]-theta) > 0.2 {
		t.Errorf("MA coefficient estimate is off: true=%f, est=%f", theta, fitted.MACoeffs[0])
	}
}

func TestARIMAFitWithDifferencing(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 200
	values := make([]float64, n)
	values[0] = 100
	for i := 1; i < n; i++ {
		values[i] = values[i-1] + rng.NormFloat64()
	}

	fitted, err := New(1, 1, 0).Fit(timeseries.New(values))
	if err != nil {
		t.Fatalf("Failed to fit ARIMA(1,1,0) model: %v", err)
	}

	if fitted.Intercept != 0 {
		t.Errorf("Expected no constant with d=1, got %f", fitted.Intercept)
	}
	if len(fitted.Anchors) != 1 || fitted.Anchors[0] != values[n-1] {
		t.Errorf("Expected anchor %f, got %v", values[n-1], fitted.Anchors)
	}

	t.Logf("ARIMA(1,1,0) - AIC: %f, BIC: %f", fitted.AIC, fitted.BIC)
}

func TestForecastRecursion(t *testing.T) {
	fitted := &Fitted{
		Order:     Order{P: 1},
		ARCoeffs:  []float64{0.5},
		MACoeffs:  []float64{},
		Intercept: 10,
		Tail:      []float64{14},
		Anchors:   []float64{},
	}

	forecasts, err := fitted.Forecast(3)
	if err != nil {
		t.Fatal(err)
	}

	expected := []float64{12, 11, 10.5}
	for i := range expected {
		if math.Abs(forecasts[i]-expected[i]) > 1e-12 {
			t.Errorf("Step %d: expected %f, got %f", i+1, expected[i], forecasts[i])
		}
	}
}

func TestForecastMovingAverage(t *testing.T) {
	fitted := &Fitted{
		Order:       Order{Q: 1},
		ARCoeffs:    []float64{},
		MACoeffs:    []float64{0.4},
		Intercept:   5,
		Innovations: []float64{2},
		Anchors:     []float64{},
	}

	forecasts, err := fitted.Forecast(3)
	if err != nil {
		t.Fatal(err)
	}

	// Only the first step sees a known innovation.
	expected := []float64{5.8, 5, 5}
	for i := range expected {
		if math.Abs(forecasts[i]-expected[i]) > 1e-12 {
			t.Errorf("Step %d: expected %f, got %f", i+1, expected[i], forecasts[i])
		}
	}
}

func TestForecastIntegration(t *testing.T) {
	tests := []struct {
		name     string
		fitted   *Fitted
		expected []float64
	}{
		{
			name: "d=1 with drift",
			fitted: &Fitted{
				Order:     Order{D: 1},
				Intercept: 0.5,
				Anchors:   []float64{10},
			},
			expected: []float64{10.5, 11, 11.5},
		},
		{
			name: "d=2 keeps last slope",
			fitted: &Fitted{
				Order:   Order{D: 2},
				Anchors: []float64{10, 2},
			},
			expected: []float64{12, 14, 16},
		},
		{
			name: "d=3 keeps last curvature",
			fitted: &Fitted{
				Order:   Order{D: 3},
				Anchors: []float64{10, 3, 1},
			},
			expected: []float64{14, 19, 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecasts, err := tt.fitted.Forecast(len(tt.expected))
			if err != nil {
				t.Fatal(err)
			}
			for i := range tt.expected {
				if math.Abs(forecasts[i]-tt.expected[i]) > 1e-12 {
					t.Errorf("Step %d: expected %f, got %f", i+1, tt.expected[i], forecasts[i])
				}
			}
		})
	}
}

func TestFitSecondDifferenceContinuesLine(t *testing.T) {
	n := 60
	values := make([]float64, n)
	for i := range values {
		values[i] = 5 + 3*float64(i)
	}

	fitted, err := New(0, 2, 0).Fit(timeseries.New(values))
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	forecasts, err := fitted.Forecast(30)
	if err != nil {
		t.Fatal(err)
	}
	for h, f := range forecasts {
		want := 5 + 3*float64(n+h)
		if math.Abs(f-want) > 1e-9 {
			t.Errorf("Step %d: expected %f, got %f", h+1, want, f)
		}
	}
}

func TestARIMAInsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		model  *Model
	}{
		{"empty", []float64{}, New(5, 0, 5)},
		{"differenced away", []float64{1, 2, 3}, New(5, 3, 5)},
		{"negative order", []float64{1, 2, 3}, New(-1, 0, 0)},
		{"non-finite", []float64{1, math.NaN(), 3}, New(1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.model.Fit(timeseries.New(tt.values))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if kind, _ := errs.KindOf(err); kind != errs.ModelFit {
				t.Errorf("Expected ModelFit, got %v", err)
			}
		})
	}
}

func TestFitSingleObservation(t *testing.T) {
	fitted, err := New(5, 0, 5).Fit(timeseries.New([]float64{42}))
	if err != nil {
		t.Fatalf("Failed to fit a single observation: %v", err)
	}

	forecasts, err := fitted.Forecast(30)
	if err != nil {
		t.Fatal(err)
	}
	if len(forecasts) != 30 {
		t.Fatalf("Expected 30 forecasts, got %d", len(forecasts))
	}
	for i, f := range forecasts {
		if math.Abs(f-42) > 1e-9 {
			t.Errorf("Step %d: expected 42, got %f", i+1, f)
		}
	}
}

func TestFitNonConvergence(t *testing.T) {
	series := timeseries.New(ar1(300, 0.6, 0, 4))

	_, err := New(2, 0, 2, WithMaxIterations(1)).Fit(series)
	if err == nil {
		t.Fatal("Expected non-convergence with a one-iteration cap")
	}
	if kind, _ := errs.KindOf(err); kind != errs.NonConvergence {
		t.Errorf("Expected NonConvergence, got %v", err)
	}
}

func TestFittedJSONRoundTrip(t *testing.T) {
	series := timeseries.New(ar1(300, 0.5, 20, 5))

	fitted, err := New(2, 1, 1).Fit(series)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	data, err := json.Marshal(fitted)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var restored Fitted
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	want, err := fitted.Forecast(30)
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.Forecast(30)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("Step %d differs after round trip: %f vs %f", i+1, want[i], got[i])
		}
	}
}

func TestFitDeterministic(t *testing.T) {
	series := timeseries.New(ar1(250, 0.8, 50, 6))

	a, err := New(5, 1, 5).Fit(series)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	b, err := New(5, 1, 5).Fit(series)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	fa, _ := a.Forecast(30)
	fb, _ := b.Forecast(30)
	for i := range fa {
		if fa[i] != fb[i] {
			t.Fatalf("Step %d differs between identical fits: %f vs %f", i+1, fa[i], fb[i])
		}
	}
}

func TestForecastInvalidSteps(t *testing.T) {
	fitted := &Fitted{}
	if _, err := fitted.Forecast(0); err == nil {
		t.Error("Expected error for zero steps")
	}

	mismatched := &Fitted{Order: Order{P: 2}, ARCoeffs: []float64{0.1}}
	if _, err := mismatched.Forecast(1); err == nil {
		t.Error("Expected error for coefficients that do not match the order")
	}
}

func TestPACFToCoeffs(t *testing.T) {
	coeffs := pacfToCoeffs([]float64{0.5, 0.2})
	if math.Abs(coeffs[0]-0.4) > 1e-12 || math.Abs(coeffs[1]-0.2) > 1e-12 {
		t.Errorf("Expected [0.4 0.2], got %v", coeffs)
	}

	// Any partial autocorrelations inside (-1, 1) give an AR(2) inside the
	// stationarity triangle.
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		r := []float64{squash(rng.NormFloat64() * 5), squash(rng.NormFloat64() * 5)}
		phi := pacfToCoeffs(r)
		if math.Abs(phi[1]) >= 1 || phi[0]+phi[1] >= 1 || phi[1]-phi[0] >= 1 {
			t.Fatalf("Non-stationary AR(2) %v from %v", phi, r)
		}
	}
}

func TestSquashInverse(t *testing.T) {
	for _, u := range []float64{-3, -0.5, 0, 0.25, 4} {
		if got := unsquash(squash(u)); math.Abs(got-u) > 1e-12 {
			t.Errorf("unsquash(squash(%f)) = %f", u, got)
		}
	}
}

func TestARIMAMultipleOrders(t *testing.T) {
	tests := []struct {
		name    string
		p, d, q int
	}{
		{"AR1", 1, 0, 0},
		{"AR2", 2, 0, 0},
		{"MA1", 0, 0, 1},
		{"MA2", 0, 0, 2},
		{"ARMA11", 1, 0, 1},
		{"ARIMA110", 1, 1, 0},
		{"ARIMA011", 0, 1, 1},
		{"ARIMA111", 1, 1, 1},
		{"ARIMA212", 2, 1, 2},
		{"ARIMA515", 5, 1, 5},
	}

	series := timeseries.New(ar1(150, 0.6, 100, 8))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fitted, err := New(tt.p, tt.d, tt.q).Fit(series)
			if err != nil {
				t.Fatalf("Model %s failed to fit: %v", tt.name, err)
			}

			forecasts, err := fitted.Forecast(3)
			if err != nil {
				t.Fatalf("Prediction failed: %v", err)
			}
			if len(forecasts) != 3 {
				t.Errorf("Expected 3 forecasts, got %d", len(forecasts))
			}

			t.Logf("%s - AIC: %.2f, BIC: %.2f, iterations: %d, Forecasts: %v",
				tt.name, fitted.AIC, fitted.BIC, fitted.Iterations, forecasts)
		})
	}
}
