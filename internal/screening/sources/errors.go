// Package sources holds the clients for the external systems screening checks consult.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory is the normalized failure taxonomy for external sources.
//
// Every client classifies failures into one of these so checks can map them
// to stage outcomes without inspecting raw messages.
type ErrorCategory string

const (
	// ErrorTimeout indicates the source took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the source returned malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the source is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorContractMismatch indicates an unexpected response shape or status
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected local failure
	ErrorInternal ErrorCategory = "internal"
)

// SourceError wraps an external failure with its category.
type SourceError struct {
	Category  ErrorCategory
	Source    string
	Message   string
	Err       error
	Retryable bool // timeout, outage and rate-limited failures are transient
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("source %s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a categorized error. Nothing in screening retries,
// the flag is informational for logs and callers.
func NewSourceError(category ErrorCategory, source, message string, err error) *SourceError {
	return &SourceError{
		Category: category,
		Source:   source,
		Message:  message,
		Err:      err,
		Retryable: category == ErrorTimeout ||
			category == ErrorProviderOutage ||
			category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a transient source failure.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// CategoryOf extracts the category from err, defaulting to ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportError classifies a failed round trip.
func TransportError(ctx context.Context, source string, err error) *SourceError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewSourceError(ErrorTimeout, source, "request timeout", err)
	}
	return NewSourceError(ErrorProviderOutage, source, "failed to execute request", err)
}

// StatusError classifies a non-2xx response. It returns nil for success codes.
func StatusError(source string, status int) *SourceError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewSourceError(ErrorAuthentication, source, fmt.Sprintf("authentication failed: %d", status), nil)
	case status == http.StatusTooManyRequests:
		return NewSourceError(ErrorRateLimited, source, "rate limit exceeded", nil)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return NewSourceError(ErrorTimeout, source, fmt.Sprintf("upstream timeout: %d", status), nil)
	case status >= 500:
		return NewSourceError(ErrorProviderOutage, source, fmt.Sprintf("provider unavailable: %d", status), nil)
	default:
		return NewSourceError(ErrorContractMismatch, source, fmt.Sprintf("unexpected status: %d", status), nil)
	}
}
