package edgar

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// APIError represents a non-2xx response from the SEC EDGAR API.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("SEC API returned status %d for %s: %s", e.StatusCode, e.URL, e.Message)
}

// Transient reports whether the failure is worth retrying. The SEC blocks
// misbehaving clients with 429s; those and server-side errors get one more
// attempt after backoff.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// RateLimitError indicates the upstream asked the client to slow down.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limit hit, retry after %s", e.RetryAfter)
}

// retryAfterDelay parses a Retry-After header given in seconds, falling back
// to the standard retry backoff.
func retryAfterDelay(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return retryBackoff
}

// isTransient classifies an error as retryable: timeouts, temporary network
// failures, upstream throttling and transient API statuses.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
