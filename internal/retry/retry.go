// Package retry runs fallible calls with exponential backoff.
package retry

import (
	"context"
	"time"
)

const (
	// DefaultAttempts is the total number of tries, including the first.
	DefaultAttempts = 3
	// DefaultMultiplier doubles the delay after each failure.
	DefaultMultiplier = 2.0
	// DefaultMaxDelay caps a single backoff sleep.
	DefaultMaxDelay = 30 * time.Second
)

// Config configures exponential backoff retry behavior
type Config struct {
	Attempts   int           // Total attempts, at least 1
	BaseDelay  time.Duration // Delay after the first failure
	MaxDelay   time.Duration // Upper bound for any single delay
	Multiplier float64       // Growth factor between delays

	// OnRetry is called before each backoff sleep with the 1-indexed
	// attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// WithBase returns the default policy with the given first delay.
func WithBase(base time.Duration) Config {
	return Config{
		Attempts:   DefaultAttempts,
		BaseDelay:  base,
		MaxDelay:   DefaultMaxDelay,
		Multiplier: DefaultMultiplier,
	}
}

// Do executes fn until it succeeds or the attempts run out, sleeping
// between failures. No sleep follows the last attempt. On exhaustion the
// last error is returned unchanged. Cancelling ctx stops the loop early.
func Do[T any](ctx context.Context, config Config, fn func() (T, error)) (T, error) {
	var zero T
	attempts := max(config.Attempts, 1)
	multiplier := config.Multiplier
	if multiplier < 1 {
		multiplier = DefaultMultiplier
	}
	backoff := config.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == attempts {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, err, backoff)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * multiplier)
		if config.MaxDelay > 0 && backoff > config.MaxDelay {
			backoff = config.MaxDelay
		}
	}

	return zero, lastErr
}
