// Package retry holds the outbound call retry policy. The relay only retries
// connection timeouts, once, without backoff; the policy object keeps that
// rule in one place.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy decides whether and how often a failed call is repeated.
type Policy struct {
	MaxAttempts int              // total attempts including the first; <1 means 1
	Delay       time.Duration    // fixed wait between attempts
	Retryable   func(error) bool // nil means nothing is retried
}

// ConnectTimeoutOnce retries a single time when dialing timed out.
func ConnectTimeoutOnce() Policy {
	return Policy{MaxAttempts: 2, Retryable: IsConnectTimeout}
}

// None never retries.
func None() Policy {
	return Policy{MaxAttempts: 1}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	delay := p.Delay
	backoff := goretry.WithMaxRetries(retries, goretry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && p.Retryable != nil && p.Retryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// IsConnectTimeout reports whether err is a timeout while establishing a
// connection. Timeouts on an established connection are not matched: the
// request may already have reached the server.
func IsConnectTimeout(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return opErr.Timeout()
	}
	return false
}
