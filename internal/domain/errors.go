package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidPlan   = errors.New("invalid plan")
	ErrNoCreditsLeft = errors.New("no credits left to charge")
)

// ErrorKind is the closed set of reasons a conversion can be rejected.
type ErrorKind string

const (
	KindVectorRequired       ErrorKind = "VECTOR_REQUIRED"
	KindUnsupportedBinFormat ErrorKind = "UNSUPPORTED_BIN_FORMAT"
	KindPlanRequired         ErrorKind = "PLAN_REQUIRED"
	KindEnterpriseRequired   ErrorKind = "ENTERPRISE_REQUIRED"
	KindNoCredits            ErrorKind = "NO_CREDITS"
	KindExecutionFailed      ErrorKind = "EXECUTION_FAILED"
	// KindAccessDenied is the unattributed denial (profile lookup failed).
	KindAccessDenied ErrorKind = "ACCESS_DENIED"
)

// Kinds lists every ErrorKind.
var Kinds = []ErrorKind{
	KindVectorRequired,
	KindUnsupportedBinFormat,
	KindPlanRequired,
	KindEnterpriseRequired,
	KindNoCredits,
	KindExecutionFailed,
	KindAccessDenied,
}

// ConversionError is returned by the orchestrator for every rejected request.
// Two ConversionErrors match under errors.Is when their kinds are equal.
type ConversionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func (e *ConversionError) Is(target error) bool {
	t, ok := target.(*ConversionError)
	return ok && t.Kind == e.Kind
}

var (
	ErrVectorRequired       = &ConversionError{Kind: KindVectorRequired}
	ErrUnsupportedBinFormat = &ConversionError{Kind: KindUnsupportedBinFormat}
	ErrPlanRequired         = &ConversionError{Kind: KindPlanRequired}
	ErrEnterpriseRequired   = &ConversionError{Kind: KindEnterpriseRequired}
	ErrNoCredits            = &ConversionError{Kind: KindNoCredits}
	ErrExecutionFailed      = &ConversionError{Kind: KindExecutionFailed}
	ErrAccessDenied         = &ConversionError{Kind: KindAccessDenied}
)

// ExecutionFailed wraps a backend failure without reinterpreting it.
func ExecutionFailed(err error) error {
	return &ConversionError{Kind: KindExecutionFailed, Err: err}
}

// KindOf returns the kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
