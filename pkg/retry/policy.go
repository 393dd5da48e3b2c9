package retry

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the attempt budget used when none is configured.
	DefaultMaxAttempts = 3

	// DefaultBaseInterval is the backoff unit used when none is configured.
	DefaultBaseInterval = 10 * time.Second
)

// Policy configures how many times an operation is attempted and how long
// to wait between attempts. Policies are values: copy them freely, never
// mutate a shared one.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseInterval is multiplied by the failed attempt's index to obtain
	// the delay before the next attempt.
	BaseInterval time.Duration
}

// DefaultPolicy returns a policy of 3 attempts with a 10s base interval.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		BaseInterval: DefaultBaseInterval,
	}
}

// NewPolicy creates a validated policy.
func NewPolicy(maxAttempts int, baseInterval time.Duration) (Policy, error) {
	p := Policy{
		MaxAttempts:  maxAttempts,
		BaseInterval: baseInterval,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseInterval <= 0 {
		return fmt.Errorf("base interval must be positive, got %v", p.BaseInterval)
	}
	return nil
}

// Backoff returns the delay to wait after the given attempt failed.
// attempt is 1-based: the delay before attempt 2 is Backoff(1).
//
// The growth is linear (BaseInterval * attempt), without jitter.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseInterval * time.Duration(attempt)
}
