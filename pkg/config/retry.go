package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pwauto/pkg/retry"
)

const (
	// SectionIDRetry is the identifier for the retry settings section
	SectionIDRetry = "retry"

	defaultMaxRetries      = retry.DefaultMaxAttempts
	defaultRetryIntervalMs = int(retry.DefaultBaseInterval / time.Millisecond)
)

// RetrySection configures how transient browser failures are retried.
type RetrySection struct {
	MaxRetries      int
	RetryIntervalMs int
	mu              sync.RWMutex
}

// NewRetrySection creates a retry section with default settings.
func NewRetrySection() *RetrySection {
	return &RetrySection{
		MaxRetries:      defaultMaxRetries,
		RetryIntervalMs: defaultRetryIntervalMs,
	}
}

// ID returns the section identifier.
func (s *RetrySection) ID() string {
	return SectionIDRetry
}

// Title returns the section title.
func (s *RetrySection) Title() string {
	return "Retry"
}

// Description returns the section description.
func (s *RetrySection) Description() string {
	return "Attempt budget and linear backoff base interval for browser operations."
}

// Data returns the current configuration data.
func (s *RetrySection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"max_retries":       s.MaxRetries,
		"retry_interval_ms": s.RetryIntervalMs,
	}
}

// SetData updates the configuration from the provided data.
func (s *RetrySection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "max_retries":
			n, err := intValue(key, value)
			if err != nil {
				return err
			}
			s.MaxRetries = n
		case "retry_interval_ms":
			n, err := intValue(key, value)
			if err != nil {
				return err
			}
			s.RetryIntervalMs = n
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *RetrySection) Validate() error {
	_, err := s.Policy()
	return err
}

// Reset resets the section to default configuration.
func (s *RetrySection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.MaxRetries = defaultMaxRetries
	s.RetryIntervalMs = defaultRetryIntervalMs
}

// Policy converts the section into a validated retry policy.
func (s *RetrySection) Policy() (retry.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, err := retry.NewPolicy(s.MaxRetries, time.Duration(s.RetryIntervalMs)*time.Millisecond)
	if err != nil {
		return retry.Policy{}, fmt.Errorf("max_retries=%d retry_interval_ms=%d: %w", s.MaxRetries, s.RetryIntervalMs, err)
	}
	return policy, nil
}
