package retry

import (
	"context"
	"errors"
	"strings"
)

// Classifier reports whether an error is transient and worth another attempt.
type Classifier func(error) bool

// Outcome is the result of a single attempt.
type Outcome int

const (
	// Success means the attempt returned no error.
	Success Outcome = iota
	// RetryableFailure means the attempt failed with a transient error.
	RetryableFailure
	// FatalFailure means the attempt failed with an error that must not be retried.
	FatalFailure
)

// String returns the outcome name used in logs and metrics labels.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable"
	case FatalFailure:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps an attempt's error to its Outcome. A nil classifier treats
// every error as fatal.
func Classify(err error, classify Classifier) Outcome {
	if err == nil {
		return Success
	}
	if classify != nil && classify(err) {
		return RetryableFailure
	}
	return FatalFailure
}

// DefaultTransientMessages are error message fragments that mark a browser
// automation failure as transient.
var DefaultTransientMessages = []string{
	"element not ready",
	"element not visible",
	"navigation timeout",
	"page closed",
}

type timeout interface {
	Timeout() bool
}

// IsTimeout reports whether err is a timeout: context.DeadlineExceeded or any
// error in the chain with a Timeout() method returning true (net.Error, os
// deadline errors).
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}

// MessageContains returns a classifier accepting errors whose message
// contains any of the given fragments. Matching is case-sensitive.
func MessageContains(fragments ...string) Classifier {
	return func(err error) bool {
		if err == nil {
			return false
		}
		msg := err.Error()
		for _, f := range fragments {
			if f != "" && strings.Contains(msg, f) {
				return true
			}
		}
		return false
	}
}

// Any returns a classifier accepting an error when at least one of the
// given classifiers does.
func Any(classifiers ...Classifier) Classifier {
	return func(err error) bool {
		for _, c := range classifiers {
			if c != nil && c(err) {
				return true
			}
		}
		return false
	}
}
