package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// retryConfig bounds the connection-phase retry loop shared by both
// providers. Only transient failures (429, 5xx) are retried; anything else
// is returned to the caller immediately.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxAttempts: 3, baseDelay: 500 * time.Millisecond, maxDelay: 8 * time.Second}
}

// httpError carries the status code of a non-2xx HTTP response so retryDo
// can decide whether it's worth retrying.
type httpError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpError) Error() string {
	return "llm: http " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}

func isRetryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	return false
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// retryDo runs fn up to cfg.maxAttempts times, backing off between
// retryable failures and honoring a server-supplied Retry-After when
// present.
func retryDo[T any](ctx context.Context, cfg retryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.baseDelay

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := delay
			var he *httpError
			if errors.As(lastErr, &he) && he.RetryAfter > 0 {
				wait = he.RetryAfter
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			delay *= 2
			if delay > cfg.maxDelay {
				delay = cfg.maxDelay
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}
