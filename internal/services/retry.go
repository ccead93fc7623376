package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/shared"
)

// DefaultCallTimeout bounds one metadata or search call.
const DefaultCallTimeout = 30 * time.Second

// retryDelay is the pause before the single retry.
var retryDelay = time.Second

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so that [WithRetry] returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// WithRetry runs fn with a per-attempt timeout and retries it once on failure.
//
// Cancellation of the parent context and [Permanent] errors are never retried.
func WithRetry[T any](ctx context.Context, logger *log.Logger, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	var zero T
	var lastErr error
	for attempt := range 2 {
		if attempt > 0 {
			if logger != nil {
				logger.Warn("retrying call", "call", name, "err", lastErr)
			}
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		v, err := fn(callCtx)
		cancel()
		if err == nil {
			return v, nil
		}

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s after %s: %w", shared.ErrTimeout, name, timeout, err)
		}
		lastErr = err
	}

	return zero, lastErr
}
