// Package retry retries idempotent operations that failed with a transient
// infrastructure error. Non-idempotent writes must not go through it.
package retry

import (
	"context"
	"time"

	apperrors "flightbook/pkg/errors"

	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts = 3
	DefaultBase     = 50 * time.Millisecond
	DefaultJitter   = 20 * time.Millisecond
)

type Policy struct {
	Attempts uint64
	Base     time.Duration
	Jitter   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Base: DefaultBase, Jitter: DefaultJitter}
}

func (p Policy) backoff() goretry.Backoff {
	b := goretry.NewExponential(p.Base)
	if p.Jitter > 0 {
		b = goretry.WithJitter(p.Jitter, b)
	}
	return goretry.WithMaxRetries(p.Attempts, b)
}

// IsTransient reports whether err is a SERVICE_UNAVAILABLE application error.
func IsTransient(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeUnavailable)
}

// Read runs fn until it succeeds, fails permanently or the policy is exhausted.
func Read[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			if IsTransient(err) {
				return goretry.RetryableError(err)
			}
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// Do is Read for idempotent writes that return nothing but an error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Read(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
