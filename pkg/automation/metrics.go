package automation

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/entrhq/pwauto/pkg/retry"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pwauto",
				Name:      "operations_total",
				Help:      "Browser automation operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pwauto",
				Name:      "operation_duration_seconds",
				Help:      "Browser automation operation latency in seconds, retries included.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pwauto",
				Name:      "retries_total",
				Help:      "Retried attempts of browser automation operations.",
			},
			[]string{"operation"},
		),
	}
}

// ObserveRetry counts a retry. It matches RetryObserver.
func (m *Metrics) ObserveRetry(operation string, _ retry.RetryEvent) {
	m.retries.WithLabelValues(operation).Inc()
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// MetricsDecorator records counts and latency of calls to the wrapped
// service.
type MetricsDecorator struct {
	inner   Service
	metrics *Metrics
}

var _ Service = (*MetricsDecorator)(nil)

// NewMetricsDecorator wraps inner.
func NewMetricsDecorator(inner Service, metrics *Metrics) *MetricsDecorator {
	return &MetricsDecorator{inner: inner, metrics: metrics}
}

// EnsureInstalled implements Service.
func (d *MetricsDecorator) EnsureInstalled(ctx context.Context, progress ProgressFunc) error {
	start := time.Now()
	err := d.inner.EnsureInstalled(ctx, progress)
	d.metrics.observe(OpEnsureInstalled, start, err)
	return err
}

// Browser implements Service.
func (d *MetricsDecorator) Browser(ctx context.Context) (playwright.Browser, error) {
	start := time.Now()
	browser, err := d.inner.Browser(ctx)
	d.metrics.observe(OpBrowser, start, err)
	return browser, err
}

// GetElement implements Service.
func (d *MetricsDecorator) GetElement(ctx context.Context, req ElementRequest) (string, error) {
	start := time.Now()
	value, err := d.inner.GetElement(ctx, req)
	d.metrics.observe(OpGetElement, start, err)
	return value, err
}

// GetElementList implements Service.
func (d *MetricsDecorator) GetElementList(ctx context.Context, req ElementListRequest) ([]string, error) {
	start := time.Now()
	values, err := d.inner.GetElementList(ctx, req)
	d.metrics.observe(OpGetElementList, start, err)
	return values, err
}

// Screenshot implements Service.
func (d *MetricsDecorator) Screenshot(ctx context.Context, req ScreenshotRequest) (string, error) {
	start := time.Now()
	path, err := d.inner.Screenshot(ctx, req)
	d.metrics.observe(OpScreenshot, start, err)
	return path, err
}

// Close implements Service.
func (d *MetricsDecorator) Close() error {
	return d.inner.Close()
}
