package resilience

import (
	"errors"
	"fmt"
)

// HTTPError is a non-2xx response from a registry endpoint. Snippet holds a
// truncated copy of the response body for the per-row error column.
type HTTPError struct {
	StatusCode int
	URL        string
	Snippet    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Request to %s failed with HTTP %d: %s", e.URL, e.StatusCode, e.Snippet)
}

// IsTransient reports whether an error is safe to retry. Server-side status
// codes (5xx) and transport-level failures are transient; client-side status
// codes (4xx) are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 500
	}
	return true
}
