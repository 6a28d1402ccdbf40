package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds op's wall-clock duration via a derived context. The
// operation must honor context cancellation; a run that outlives the
// deadline is reported as context.DeadlineExceeded.
func WithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(tctx) }()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		return tctx.Err()
	}
}

// WithProgressiveTimeout tries op with each timeout in order until one
// succeeds, returning the timeout that worked.
func WithProgressiveTimeout(ctx context.Context, timeouts []time.Duration, op func(context.Context) error) (time.Duration, error) {
	var lastErr error
	for _, timeout := range timeouts {
		if err := WithTimeout(ctx, timeout, op); err == nil {
			return timeout, nil
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no timeouts provided")
	}
	return 0, fmt.Errorf("all timeout attempts exhausted: %w", lastErr)
}
