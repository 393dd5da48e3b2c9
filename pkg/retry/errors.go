package retry

import (
	"errors"
	"fmt"
)

// ExhaustedError is returned by Run when every attempt failed with a
// retryable error.
type ExhaustedError struct {
	// Attempts is the number of attempts made (the policy's MaxAttempts).
	Attempts int

	// LastErr is the error returned by the final attempt.
	LastErr error
}

// Error implements error.
func (e *ExhaustedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("retry failed after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("retry failed after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap exposes the last attempt's error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsExhausted reports whether err is (or wraps) an *ExhaustedError.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
