package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryPolicy retries rate limits, server errors, timeouts, and empty
// replies with capped exponential backoff. A Retry-After header wins over the
// computed delay.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleeper  func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 3, base: time.Second, max: 10 * time.Second}
}

func (p retryPolicy) maxAttempts() int {
	if p.attempts <= 0 {
		return 1
	}
	return p.attempts
}

// next reports whether attempt should be followed by another, and after how long.
func (p retryPolicy) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxAttempts() || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var status *statusError
	var empty *noContentError
	var netErr net.Error
	switch {
	case errors.As(err, &status):
		if status.Code != http.StatusRequestTimeout && status.Code != http.StatusTooManyRequests && status.Code < 500 {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return p.clamp(status.RetryAfter), true
		}
	case errors.As(err, &empty):
	case errors.As(err, &netErr) && netErr.Timeout():
	default:
		return 0, false
	}
	return p.backoff(attempt), true
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift > 16 {
		shift = 16
	}
	return p.clamp(p.base << shift)
}

func (p retryPolicy) clamp(d time.Duration) time.Duration {
	if p.max > 0 && d > p.max {
		return p.max
	}
	return d
}

func (p retryPolicy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date; anything else is zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
