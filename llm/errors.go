package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// StatusError is a completed backend call that returned a non-success
// status. Detail carries whatever the backend said about the failure.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("llm backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm backend returned status %d: %s", e.StatusCode, e.Detail)
}

// AsStatusError unwraps err into a StatusError when the call completed with
// a non-success status.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsTimeout reports whether the call failed to complete in time, as opposed
// to failing with a response or a transport error.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
