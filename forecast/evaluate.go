package forecast

import (
	"context"
	"math"

	"github.com/sartorproj/stockcast/arima"
	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/timeseries"
)

// Evaluation reports hold-out accuracy in the units of the evaluated series.
type Evaluation struct {
	RMSE  float64 `json:"rmse"` // rounded to 2 decimals
	MAE   float64 `json:"mae"`
	MAPE  float64 `json:"mape"` // percent, over non-zero actuals
	Train int     `json:"train"`
	Test  int     `json:"test"`
}

// Evaluate measures hold-out accuracy with a default pipeline.
func Evaluate(ctx context.Context, series *timeseries.Series, d int) (*Evaluation, error) {
	return New().Evaluate(ctx, series, d)
}

// Evaluate fits ARIMA(p, d, q) on all but the last holdout observations,
// forecasts the holdout and compares it with the actual values. A series of
// holdout observations or fewer fails with errs.InsufficientData.
func (p *Pipeline) Evaluate(ctx context.Context, series *timeseries.Series, d int) (*Evaluation, error) {
	n := series.Len()
	if n <= p.holdout {
		return nil, errs.New(errs.InsufficientData,
			"evaluation needs more than %d observations, got %d", p.holdout, n)
	}

	train := series.Slice(0, n-p.holdout)
	test := series.Slice(n-p.holdout, n)

	fitted, err := p.fitter.fit(ctx, train, arima.Order{P: p.p, D: d, Q: p.q})
	if err != nil {
		return nil, err
	}
	predicted, err := fitted.Forecast(test.Len())
	if err != nil {
		return nil, err
	}

	return score(test.Values, predicted, train.Len())
}

func score(actual, predicted []float64, train int) (*Evaluation, error) {
	var sse, sae, sape float64
	nonZero := 0
	for i, a := range actual {
		e := a - predicted[i]
		sse += e * e
		sae += math.Abs(e)
		if a != 0 {
			sape += math.Abs(e / a)
			nonZero++
		}
	}

	n := float64(len(actual))
	rmse := math.Sqrt(sse / n)
	if math.IsNaN(rmse) || math.IsInf(rmse, 0) {
		return nil, errs.New(errs.Numeric, "hold-out error is not finite")
	}

	eval := &Evaluation{
		RMSE:  roundTo(rmse, 2),
		MAE:   sae / n,
		Train: train,
		Test:  len(actual),
	}
	if nonZero > 0 {
		eval.MAPE = 100 * sape / float64(nonZero)
	}
	return eval, nil
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
