package mcp

import (
	"fmt"
	"time"
)

// APIError is the base error for failures reported by the MCP API.
// More specific error types embed it; callers can match them with
// errors.As.
type APIError struct {
	Message    string
	StatusCode int
	Response   map[string]any // decoded error body, nil when the body was empty or not JSON
	RetryAfter time.Duration  // server-provided Retry-After, zero when absent
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// AuthenticationError is returned for 401 responses (invalid or missing
// API key).
type AuthenticationError struct {
	APIError
}

// PermissionError is returned for 403 responses.
type PermissionError struct {
	APIError
}

// NotFoundError is returned for 404 responses. ResourceID is set when
// the failing call targeted a specific resource.
type NotFoundError struct {
	APIError
	ResourceID string
}

func (e *NotFoundError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s: %s", e.APIError.Error(), e.ResourceID)
	}
	return e.APIError.Error()
}

// ValidationError is returned for 422 responses, and locally when a
// request fails validation before any HTTP attempt is made.
type ValidationError struct {
	APIError
	Fields map[string]any // per-field validation details when the server provides them
}

// RateLimitError is returned for 429 responses. It is transient: the
// client retries it, honoring RetryAfter when the server sent one.
type RateLimitError struct {
	APIError
	RetryAfter time.Duration // zero when the server sent no Retry-After header
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s, retry after %s", e.APIError.Error(), e.RetryAfter)
	}
	return e.APIError.Error()
}

// ConnectionError indicates the endpoint could not be reached at all.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to MCP API: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError indicates a single attempt did not complete within the
// configured timeout.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// InvalidResponseError indicates the server replied with a success
// status but the body was not a JSON object.
type InvalidResponseError struct {
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("malformed response from MCP API: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// ConfigurationError indicates the client or CLI configuration is
// invalid. Setting names the offending field when known.
type ConfigurationError struct {
	Message string
	Setting string
}

func (e *ConfigurationError) Error() string {
	if e.Setting != "" {
		return fmt.Sprintf("%s (setting %q)", e.Message, e.Setting)
	}
	return e.Message
}

// RetriesExhaustedError is returned when every attempt failed with a
// transient error. Err holds the last attempt's failure.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// retriable reports whether err is a transient failure worth retrying.
// Network errors and per-attempt timeouts always qualify; status-coded
// errors only when their status is in the configured retriable set.
func retriable(err error, statuses map[int]bool) bool {
	switch e := err.(type) {
	case *ConnectionError, *TimeoutError:
		return true
	case *RateLimitError:
		return statuses[e.StatusCode]
	case *APIError:
		return statuses[e.StatusCode]
	}
	return false
}
