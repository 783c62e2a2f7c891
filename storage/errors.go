package storage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// StatusCode returns the HTTP status of the failed response.
func (e *StatusError) StatusCode() int { return e.Code }

// Gone reports whether the target task no longer exists upstream.
func (e *StatusError) Gone() bool {
	return e.Code == http.StatusNotFound || e.Code == http.StatusGone
}

// IsGone reports whether err carries a 404 or 410 from the API.
func IsGone(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Gone()
}

// countsAsSuccess keeps client errors from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < http.StatusInternalServerError
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case errors.As(err, &se):
		return "status"
	default:
		return "transport"
	}
}
