package retry

import (
	"context"
	"fmt"
	"time"
)

// Operation is a unit of work that may be attempted more than once.
type Operation[T any] func(ctx context.Context) (T, error)

// Sleeper suspends the caller for d, returning early with an error when
// ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Logger receives one warning per failed retryable attempt.
type Logger interface {
	Warnf(format string, v ...interface{})
}

// RetryEvent describes a failed retryable attempt that will be followed by
// another one.
type RetryEvent struct {
	Attempt     int
	MaxAttempts int
	Err         error
	Delay       time.Duration
}

type runConfig struct {
	sleep   Sleeper
	logger  Logger
	onRetry func(RetryEvent)
	name    string
}

// Option customizes a single Run call.
type Option func(*runConfig)

// WithSleeper replaces the timer-based delay. Tests use it to record delays
// without waiting.
func WithSleeper(s Sleeper) Option {
	return func(c *runConfig) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger logs every failed retryable attempt at warning level.
func WithLogger(l Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithOnRetry registers a hook fired before each inter-attempt delay.
func WithOnRetry(fn func(RetryEvent)) Option {
	return func(c *runConfig) {
		c.onRetry = fn
	}
}

// WithName labels log entries with the operation name.
func WithName(name string) Option {
	return func(c *runConfig) {
		c.name = name
	}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
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

// Run executes op up to policy.MaxAttempts times.
//
// A successful attempt returns immediately. An error rejected by classify is
// returned as is, without consuming the remaining attempts. Retryable errors
// are followed by policy.Backoff(attempt) of suspension, except after the
// final attempt, where Run returns an *ExhaustedError wrapping the last error.
//
// Cancelling ctx during a delay aborts the loop with an error wrapping both
// ctx.Err() and the last attempt's error.
func Run[T any](ctx context.Context, op Operation[T], policy Policy, classify Classifier, opts ...Option) (T, error) {
	var zero T

	cfg := runConfig{sleep: SleepContext}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := policy.Validate(); err != nil {
		return zero, fmt.Errorf("invalid retry policy: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		switch Classify(err, classify) {
		case Success:
			return result, nil
		case FatalFailure:
			return zero, err
		}

		lastErr = err
		if cfg.logger != nil {
			cfg.logger.Warnf("%sattempt %d/%d failed: %v", prefix(cfg.name), attempt, policy.MaxAttempts, err)
		}

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Backoff(attempt)
		if cfg.onRetry != nil {
			cfg.onRetry(RetryEvent{
				Attempt:     attempt,
				MaxAttempts: policy.MaxAttempts,
				Err:         err,
				Delay:       delay,
			})
		}

		if sleepErr := cfg.sleep(ctx, delay); sleepErr != nil {
			return zero, fmt.Errorf("retry aborted after attempt %d/%d: %w (last error: %w)",
				attempt, policy.MaxAttempts, sleepErr, lastErr)
		}
	}

	return zero, &ExhaustedError{
		Attempts: policy.MaxAttempts,
		LastErr:  lastErr,
	}
}

func prefix(name string) string {
	if name == "" {
		return ""
	}
	return name + ": "
}
