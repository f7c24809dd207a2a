// Package fetcher retrieves rendered HTML for URLs. The pipeline only
// depends on the Fetcher capability; the headless-browser implementation
// lives here too but is injected, never constructed by the core.
package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher retrieves the rendered HTML document for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// ErrorKind classifies fetch failures for retry decisions.
type ErrorKind string

// ErrorKind values.
const (
	KindTimeout     ErrorKind = "TIMEOUT"
	KindHTTPStatus  ErrorKind = "HTTP_STATUS"
	KindUnreachable ErrorKind = "UNREACHABLE"
)

// Error is a classified fetch failure.
type Error struct {
	URL    string
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	case KindTimeout:
		return fmt.Sprintf("fetch %s: timeout", e.URL)
	default:
		return fmt.Sprintf("fetch %s: unreachable: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether a failed fetch is worth repeating.
// Timeouts, rate-limit and server-side statuses are transient; client
// errors such as a 404 on a removed listing are not.
func IsRetryable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case KindTimeout, KindUnreachable:
		return true
	case KindHTTPStatus:
		return fe.Status == 429 || fe.Status >= 500
	}
	return false
}
