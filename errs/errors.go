// Package errs defines the failure kinds shared by the forecasting packages.
//
// Every stage either produces its output or fails with an *Error carrying one
// of the kinds below. Callers match kinds with errors.Is:
//
//	if errors.Is(err, errs.InsufficientData) {
//	    // ask for a longer history
//	}
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// EmptySeries means the input had no observations.
	EmptySeries Kind = iota + 1
	// InsufficientData means the input is too short for the requested operation.
	InsufficientData
	// DegenerateSeries means the input has zero variance.
	DegenerateSeries
	// NonConvergence means a search or solver exceeded its safety bound.
	NonConvergence
	// ModelFit means the solver reported a numerical failure.
	ModelFit
	// Numeric means a statistical precondition was violated.
	Numeric
)

var kindNames = map[Kind]string{
	EmptySeries:      "empty series",
	InsufficientData: "insufficient data",
	DegenerateSeries: "degenerate series",
	NonConvergence:   "non-convergence",
	ModelFit:         "model fit failed",
	Numeric:          "numeric error",
}

// String returns a human readable name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is a classified failure with optional pipeline context.
type Error struct {
	Kind  Kind
	Stage string // pipeline stage that failed, empty outside the pipeline
	N     int    // size of the input handed to the failing stage
	Err   error  // underlying diagnostic
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		fmt.Fprintf(&b, "stage %s (n=%d): ", e.Stage, e.N)
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same Kind as e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New returns an *Error of the given kind with a formatted diagnostic.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// WithStage attaches pipeline context to err. Unclassified errors are
// reported as Numeric so callers always receive a known kind.
func WithStage(err error, stage string, n int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: Numeric, Stage: stage, N: n, Err: err}
	}
	staged := *e
	staged.Stage = stage
	staged.N = n
	return &staged
}
