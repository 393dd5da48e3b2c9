package automation

import (
	"github.com/entrhq/pwauto/pkg/logging"
	"github.com/entrhq/pwauto/pkg/retry"
)

// ChainOptions configures NewChain.
type ChainOptions struct {
	Policy retry.Policy

	// Logger is used by the logging and retry decorators. Nil disables
	// logging.
	Logger *logging.Logger

	// Metrics, when set, adds the metrics decorator and counts retries.
	Metrics *Metrics

	// RetryOptions are applied after the defaults derived from the fields
	// above.
	RetryOptions []RetryOption
}

// NewChain wraps base as metrics -> logging -> retry -> base. Logging sits
// outside retry so each call is logged once, with the final result.
func NewChain(base Service, opts ChainOptions) Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	retryOpts := []RetryOption{WithRetryLogger(logger.With("retry"))}
	if opts.Metrics != nil {
		retryOpts = append(retryOpts, WithRetryObserver(opts.Metrics.ObserveRetry))
	}
	retryOpts = append(retryOpts, opts.RetryOptions...)

	var svc Service = NewRetryDecorator(base, opts.Policy, retryOpts...)
	svc = NewLoggingDecorator(svc, logger)
	if opts.Metrics != nil {
		svc = NewMetricsDecorator(svc, opts.Metrics)
	}
	return svc
}
