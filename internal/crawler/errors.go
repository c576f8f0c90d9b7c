package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoStandard is returned by Locate when the directory index lists no
	// standards. Callers treat this as an empty result, not a failure.
	ErrNoStandard = errors.New("no published standard found on the index page")

	// ErrMalformedIndex is returned when the newest index entry lacks its
	// link or its publication date.
	ErrMalformedIndex = errors.New("malformed standard entry on the index page")

	// ErrBodyTooLarge is returned by Fetch when a response body is larger
	// than the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidMaxLevel is returned by Walk for a level outside 1..5.
	ErrInvalidMaxLevel = errors.New("max level must be between 1 and 5")
)

// StatusError is returned when a page responds with a non-2xx status.
type StatusError struct {
	// URL is the requested page.
	URL string

	// StatusCode is the HTTP status received.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s for %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}
