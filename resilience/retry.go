package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes the exponential backoff retrier.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts"`
	BaseDelay       time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay        time.Duration `json:"max_delay" yaml:"max_delay"`
	ExponentialBase float64       `json:"exponential_base" yaml:"exponential_base"`
}

// DefaultRetryConfig returns the stock retry parameters.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Retrier executes an operation up to MaxAttempts times with exponential
// backoff and ±20% jitter between attempts. A permanent failure stops
// retrying immediately.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier builds a retrier; zero-valued config fields use the defaults.
func NewRetrier(cfg RetryConfig) *Retrier {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.ExponentialBase == 0 {
		cfg.ExponentialBase = def.ExponentialBase
	}
	return &Retrier{cfg: cfg}
}

// Do runs op, retrying transient and unclassified failures. It returns nil
// on the first success, the permanent error as soon as one occurs, or the
// last error once attempts are exhausted.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		lastErr = err
		if attempt < r.cfg.MaxAttempts-1 {
			if err := r.sleep(ctx, r.delay(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("max retries exceeded after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}

// delay computes min(base*multiplier^attempt, max) plus ±20% jitter.
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.ExponentialBase, float64(attempt))
	d = math.Min(d, float64(r.cfg.MaxDelay))
	jitter := d * 0.2 * (rand.Float64() - 0.5)
	return time.Duration(d + jitter)
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
