package stats

import (
	"errors"
	"fmt"

	"github.com/sartorproj/stockcast/errs"
	"github.com/sartorproj/stockcast/timeseries"
)

// DefaultMaxDifferencing caps the differencing search.
const DefaultMaxDifferencing = 10

// SelectOrder returns the smallest number of first differences after which
// tester accepts the series as stationary. A nil tester means ADF at the
// default significance. The search fails with errs.NonConvergence once maxD
// differences have been applied without success. A series that becomes
// constant after d > 0 differences is stationary at d; other tester failures
// are returned as is.
func SelectOrder(series *timeseries.Series, tester Tester, maxD int) (int, error) {
	if tester == nil {
		tester = ADFTester{}
	}
	if maxD <= 0 {
		maxD = DefaultMaxDifferencing
	}

	current := series
	for d := 0; ; d++ {
		result, err := tester.Test(current)
		if d > 0 && errors.Is(err, errs.DegenerateSeries) {
			// Differencing reduced the series to a constant.
			return d, nil
		}
		if err != nil {
			return 0, fmt.Errorf("stationarity test at d=%d: %w", d, err)
		}
		if result.Stationary {
			return d, nil
		}
		if d == maxD {
			return 0, errs.New(errs.NonConvergence,
				"series still non-stationary after %d differences (p=%.3f)", maxD, result.PValue)
		}
		current = current.Diff()
	}
}
