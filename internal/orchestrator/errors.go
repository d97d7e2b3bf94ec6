package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream matches any *UpstreamError with errors.Is.
	ErrUpstream = errors.New("upstream failure")

	// ErrNotLoggedIn is returned by operations that act on behalf of the session user.
	ErrNotLoggedIn = errors.New("no user logged in")
)

// UpstreamError reports a failure of the persistence gateway.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the gateway error, so gateway-specific checks such as
// board.IsNotFound keep working.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}
