package mcp

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// maxBackoff caps the exponential curve so a long retry chain never
// sleeps for minutes.
const maxBackoff = 30 * time.Second

// retryDelay computes the sleep before retry attempt n (1-based). A
// server-provided Retry-After on the previous failure, whatever its
// status, takes precedence over the backoff curve.
func (c *Client) retryDelay(attempt int, last error) time.Duration {
	if after := retryAfter(last); after > 0 {
		return after
	}
	if c.backoffFunc != nil {
		return c.backoffFunc(attempt)
	}
	return backoff(c.backoffFactor, attempt)
}

// retryAfter extracts the server's Retry-After hint from a failed
// attempt, zero when none was sent.
func retryAfter(err error) time.Duration {
	var rateLimited *RateLimitError
	if errors.As(err, &rateLimited) {
		return rateLimited.RetryAfter
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// backoff returns factor × 2^(attempt-1) seconds with ±10% jitter,
// capped at maxBackoff.
func backoff(factor float64, attempt int) time.Duration {
	if factor <= 0 || attempt < 1 {
		return 0
	}
	secs := factor * math.Pow(2, float64(attempt-1))
	d := time.Duration(secs * float64(time.Second))
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := 1 + (rand.Float64()-0.5)/5
	return time.Duration(float64(d) * jitter)
}
