package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse means the service answered 200 with a body that is not
// valid JSON or does not match the response schema.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is a non-200 answer from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote service returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated: rate
// limits, request timeouts and server errors.
func (e *StatusError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is worth another attempt. Errors other
// than StatusError are transport problems or malformed bodies, which are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
