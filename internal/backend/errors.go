package backend

import (
	"errors"
	"fmt"
)

// ErrNetwork marks transport-level failures (timeout, DNS, refused
// connection) where the outcome of the request is unknown. These are
// distinct from server rejections, which carry an *APIError.
var ErrNetwork = errors.New("network error")

// APIError is a non-2xx response from the backend. Detail holds the
// server-provided error text when the body carried one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// ErrorMessage returns the user-facing text for a client error: the server
// detail for rejections, a generic message for transport failures.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	if errors.Is(err, ErrNetwork) {
		return "Network error. Please check your connection and try again."
	}
	return "Something went wrong. Please try again."
}
