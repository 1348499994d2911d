package resolver

import (
	"fmt"
)

// ResolutionError reports a path expression that could not be resolved.
type ResolutionError struct {
	Expr   string
	Reason string
	Err    error
}

func newResolutionError(expr, reason string) *ResolutionError {
	return &ResolutionError{Expr: expr, Reason: reason}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve path %q: %s", e.Expr, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
