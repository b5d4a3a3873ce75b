package availability

import (
	"errors"
	"fmt"
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrStoreUnavailable = errors.New("interval store unavailable")
)

// ParamError names the query parameter that failed validation. Kind is
// ErrMissingParameter or ErrInvalidParameter.
type ParamError struct {
	Kind   error
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	if errors.Is(e.Kind, ErrMissingParameter) {
		return "missing required query param: " + e.Param
	}
	if e.Reason == "" {
		return fmt.Sprintf("invalid query param %s", e.Param)
	}
	return fmt.Sprintf("invalid query param %s: %s", e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error { return e.Kind }

func missing(param string) error {
	return &ParamError{Kind: ErrMissingParameter, Param: param}
}

func invalid(param string, err error) error {
	return &ParamError{Kind: ErrInvalidParameter, Param: param, Reason: err.Error()}
}

// storeError wraps a lower-level failure so callers only see ErrStoreUnavailable
// through errors.Is while the cause stays available for logging.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
