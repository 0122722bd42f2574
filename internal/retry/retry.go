// Package retry implements the Retry Controller: bounded exponential
// backoff around a component invocation, honoring per-component
// overrides for which error kinds must never be retried. The bounded
// exponential schedule itself is delegated to
// github.com/cenkalti/backoff/v4 rather than hand-rolled.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ridgeline-security/execengine/internal/errs"
)

// Policy bounds how an operation may be retried.
type Policy struct {
	MaxAttempts       int
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	MaxElapsedTime    time.Duration
	NonRetryableKinds []errs.Kind
}

// DefaultPolicy gives sane default bounds: 3 attempts, 1s initial
// backoff growing by the backoff library's default multiplier (1.5, with
// randomized jitter) up to 30s, capped at 2 minutes total.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
	}
}

func (p Policy) nonRetryable(kind errs.Kind) bool {
	for _, k := range p.NonRetryableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Operation is one attempt at a component invocation. attempt is 1-indexed.
type Operation func(attempt int) (map[string]interface{}, *errs.Error)

// Run retries op according to policy, stopping early on a
// non-retryable error (either by the error's own Retryable() or by the
// policy's NonRetryableKinds override) or once bounds are exhausted. A
// context cancellation that interrupts a backoff sleep surfaces as a
// non-retryable Container error rather than whatever error op last
// returned, since the caller asked to stop, not to fail.
func Run(ctx context.Context, policy Policy, logger *zap.Logger, op Operation) (map[string]interface{}, *errs.Error) {
	exp := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		exp.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	exp.MaxElapsedTime = policy.MaxElapsedTime

	var bo backoff.BackOff = exp
	if policy.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(policy.MaxAttempts-1))
	}
	bo = backoff.WithContext(bo, ctx)

	attempt := 0
	var lastErr *errs.Error
	var result map[string]interface{}

	operation := func() error {
		attempt++
		res, opErr := op(attempt)
		if opErr == nil {
			result = res
			return nil
		}
		lastErr = opErr

		if policy.nonRetryable(opErr.Kind) || !opErr.Retryable() {
			return backoff.Permanent(opErr)
		}
		if logger != nil {
			logger.Warn("component invocation failed, retrying",
				zap.Int("attempt", attempt),
				zap.String("kind", string(opErr.Kind)),
				zap.String("error", opErr.Error()))
		}
		return opErr
	}

	err := backoff.Retry(operation, bo)
	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil {
		return nil, errs.New(errs.Container, "execution cancelled during retry backoff").WithRetryable(false)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errs.Wrap(errs.Unknown, err, "retry controller failed")
}
