package automation

import (
	"context"
	"errors"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwauto/pkg/logging"
	"github.com/entrhq/pwauto/pkg/retry"
)

// Operation names used in logs and metric labels.
const (
	OpEnsureInstalled = "ensure_installed"
	OpBrowser         = "browser"
	OpGetElement      = "get_element"
	OpGetElementList  = "get_element_list"
	OpScreenshot      = "screenshot"
	OpClose           = "close"
)

// DefaultClassifier retries timeouts (including playwright's) and failures
// whose message names a transient browser condition.
var DefaultClassifier = retry.Any(
	retry.IsTimeout,
	isPlaywrightTimeout,
	retry.MessageContains(retry.DefaultTransientMessages...),
)

func isPlaywrightTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout)
}

// RetryObserver is notified before each retry delay.
type RetryObserver func(operation string, event retry.RetryEvent)

// RetryDecorator retries transient failures of the wrapped service. Installs
// and Close pass straight through.
type RetryDecorator struct {
	inner    Service
	policy   retry.Policy
	classify retry.Classifier
	logger   *logging.Logger
	sleep    retry.Sleeper
	observer RetryObserver
}

var _ Service = (*RetryDecorator)(nil)

// RetryOption customizes a RetryDecorator.
type RetryOption func(*RetryDecorator)

// WithClassifier replaces DefaultClassifier.
func WithClassifier(c retry.Classifier) RetryOption {
	return func(d *RetryDecorator) { d.classify = c }
}

// WithRetryLogger sets where failed attempts are logged.
func WithRetryLogger(l *logging.Logger) RetryOption {
	return func(d *RetryDecorator) { d.logger = l }
}

// WithRetrySleeper replaces the delay between attempts.
func WithRetrySleeper(s retry.Sleeper) RetryOption {
	return func(d *RetryDecorator) { d.sleep = s }
}

// WithRetryObserver registers a hook fired before each delay.
func WithRetryObserver(o RetryObserver) RetryOption {
	return func(d *RetryDecorator) { d.observer = o }
}

// NewRetryDecorator wraps inner with policy.
func NewRetryDecorator(inner Service, policy retry.Policy, opts ...RetryOption) *RetryDecorator {
	d := &RetryDecorator{
		inner:    inner,
		policy:   policy,
		classify: DefaultClassifier,
		logger:   logging.Nop(),
		sleep:    retry.SleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RetryDecorator) options(operation string) []retry.Option {
	opts := []retry.Option{
		retry.WithName(operation),
		retry.WithLogger(d.logger),
		retry.WithSleeper(d.sleep),
	}
	if d.observer != nil {
		observer := d.observer
		opts = append(opts, retry.WithOnRetry(func(ev retry.RetryEvent) {
			observer(operation, ev)
		}))
	}
	return opts
}

func run[T any](ctx context.Context, d *RetryDecorator, operation string, op retry.Operation[T]) (T, error) {
	return retry.Run(ctx, op, d.policy, d.classify, d.options(operation)...)
}

// EnsureInstalled passes through; install failures are not retried here.
func (d *RetryDecorator) EnsureInstalled(ctx context.Context, progress ProgressFunc) error {
	return d.inner.EnsureInstalled(ctx, progress)
}

// Browser implements Service.
func (d *RetryDecorator) Browser(ctx context.Context) (playwright.Browser, error) {
	return run(ctx, d, OpBrowser, d.inner.Browser)
}

// GetElement implements Service.
func (d *RetryDecorator) GetElement(ctx context.Context, req ElementRequest) (string, error) {
	return run(ctx, d, OpGetElement, func(ctx context.Context) (string, error) {
		return d.inner.GetElement(ctx, req)
	})
}

// GetElementList implements Service.
func (d *RetryDecorator) GetElementList(ctx context.Context, req ElementListRequest) ([]string, error) {
	return run(ctx, d, OpGetElementList, func(ctx context.Context) ([]string, error) {
		return d.inner.GetElementList(ctx, req)
	})
}

// Screenshot implements Service.
func (d *RetryDecorator) Screenshot(ctx context.Context, req ScreenshotRequest) (string, error) {
	return run(ctx, d, OpScreenshot, func(ctx context.Context) (string, error) {
		return d.inner.Screenshot(ctx, req)
	})
}

// Close implements Service.
func (d *RetryDecorator) Close() error {
	return d.inner.Close()
}
