package automation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pwauto/pkg/logging"
	"github.com/entrhq/pwauto/pkg/retry"
)

type mockService struct {
	mock.Mock
}

var _ Service = (*mockService)(nil)

func (m *mockService) EnsureInstalled(ctx context.Context, progress ProgressFunc) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *mockService) Browser(ctx context.Context) (playwright.Browser, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).(playwright.Browser)
	return b, args.Error(1)
}

func (m *mockService) GetElement(ctx context.Context, req ElementRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) GetElementList(ctx context.Context, req ElementListRequest) ([]string, error) {
	args := m.Called(ctx, req)
	values, _ := args.Get(0).([]string)
	return values, args.Error(1)
}

func (m *mockService) Screenshot(ctx context.Context, req ScreenshotRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) Close() error {
	return m.Called().Error(0)
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testPolicy(t *testing.T, attempts int) retry.Policy {
	t.Helper()
	p, err := retry.NewPolicy(attempts, 10*time.Second)
	require.NoError(t, err)
	return p
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrElementNotReady, true},
		{fmt.Errorf("wrap: %w", playwright.ErrTimeout), true},
		{context.DeadlineExceeded, true},
		{errors.New("Target page closed unexpectedly: page closed"), true},
		{errors.New("navigation timeout of 30000 ms exceeded"), true},
		{errors.New("element not visible"), true},
		{errors.New("net::ERR_NAME_NOT_RESOLVED"), false},
		{context.Canceled, false},
		{ErrClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultClassifier(tt.err))
		})
	}
}

func TestRetryDecorator_RetriesTransientFailures(t *testing.T) {
	inner := &mockService{}
	req := ElementRequest{URL: "https://example.com", Selector: "#price"}
	inner.On("GetElement", mock.Anything, req).Return("", ErrElementNotReady).Twice()
	inner.On("GetElement", mock.Anything, req).Return("42.00", nil).Once()

	sleeps := &recordedSleeps{}
	var observed []retry.RetryEvent
	d := NewRetryDecorator(inner, testPolicy(t, 3),
		WithRetrySleeper(sleeps.sleep),
		WithRetryObserver(func(op string, ev retry.RetryEvent) {
			assert.Equal(t, OpGetElement, op)
			observed = append(observed, ev)
		}),
	)

	value, err := d.GetElement(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "42.00", value)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, sleeps.delays)
	assert.Len(t, observed, 2)
	inner.AssertNumberOfCalls(t, "GetElement", 3)
}

func TestRetryDecorator_Exhausted(t *testing.T) {
	inner := &mockService{}
	inner.On("GetElementList", mock.Anything, mock.Anything).Return(nil, playwright.ErrTimeout)

	sleeps := &recordedSleeps{}
	d := NewRetryDecorator(inner, testPolicy(t, 3), WithRetrySleeper(sleeps.sleep))

	_, err := d.GetElementList(context.Background(), ElementListRequest{Selector: "a"})
	require.Error(t, err)
	assert.True(t, retry.IsExhausted(err))
	assert.ErrorIs(t, err, playwright.ErrTimeout)
	assert.Contains(t, err.Error(), "retry failed after 3 attempts")
	inner.AssertNumberOfCalls(t, "GetElementList", 3)
	assert.Len(t, sleeps.delays, 2)
}

func TestRetryDecorator_FatalFailureNotRetried(t *testing.T) {
	inner := &mockService{}
	fatal := errors.New("net::ERR_NAME_NOT_RESOLVED")
	inner.On("Screenshot", mock.Anything, mock.Anything).Return("", fatal)

	sleeps := &recordedSleeps{}
	d := NewRetryDecorator(inner, testPolicy(t, 5), WithRetrySleeper(sleeps.sleep))

	_, err := d.Screenshot(context.Background(), ScreenshotRequest{URL: "https://nowhere.invalid"})
	assert.Same(t, fatal, err)
	inner.AssertNumberOfCalls(t, "Screenshot", 1)
	assert.Empty(t, sleeps.delays)
}

func TestRetryDecorator_BrowserRetried(t *testing.T) {
	inner := &mockService{}
	browser := newFakeBrowser()
	inner.On("Browser", mock.Anything).Return(nil, fmt.Errorf("connect: %w", context.DeadlineExceeded)).Once()
	inner.On("Browser", mock.Anything).Return(browser, nil).Once()

	d := NewRetryDecorator(inner, testPolicy(t, 2), WithRetrySleeper((&recordedSleeps{}).sleep))

	got, err := d.Browser(context.Background())
	require.NoError(t, err)
	assert.Same(t, browser, got)
}

func TestRetryDecorator_PassThrough(t *testing.T) {
	inner := &mockService{}
	installErr := errors.New("install browsers failed")
	inner.On("EnsureInstalled", mock.Anything, mock.Anything).Return(installErr).Once()
	inner.On("Close").Return(nil).Once()

	d := NewRetryDecorator(inner, testPolicy(t, 3), WithRetrySleeper((&recordedSleeps{}).sleep))

	assert.Same(t, installErr, d.EnsureInstalled(context.Background(), nil))
	assert.NoError(t, d.Close())
	inner.AssertExpectations(t)
}

func TestRetryDecorator_CancelledDuringDelay(t *testing.T) {
	inner := &mockService{}
	inner.On("GetElement", mock.Anything, mock.Anything).Return("", ErrElementNotReady)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewRetryDecorator(inner, testPolicy(t, 3), WithRetrySleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := d.GetElement(ctx, ElementRequest{Selector: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	inner.AssertNumberOfCalls(t, "GetElement", 1)
}

func TestLoggingDecorator(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("automation", &buf)
	logger.SetLevel(logging.LevelDebug)

	inner := &mockService{}
	req := ElementListRequest{URL: "https://example.com", Selector: "a"}
	inner.On("GetElementList", mock.Anything, req).Return([]string{"/a", "/b"}, nil).Once()
	failure := errors.New("boom")
	inner.On("GetElement", mock.Anything, mock.Anything).Return("", failure).Once()
	inner.On("EnsureInstalled", mock.Anything, mock.Anything).Return(nil).Once()

	d := NewLoggingDecorator(inner, logger)

	values, err := d.GetElementList(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, values)

	_, err = d.GetElement(context.Background(), ElementRequest{URL: "https://example.com", Selector: "h1"})
	assert.Same(t, failure, err)

	require.NoError(t, d.EnsureInstalled(context.Background(), nil))

	out := buf.String()
	assert.Contains(t, out, "[INFO] getting elements from url: https://example.com, selector: a")
	assert.Contains(t, out, "got 2 elements:\n/a\n/b")
	assert.Contains(t, out, "[ERROR] get element from https://example.com failed: boom")
	assert.Contains(t, out, "[DEBUG] ensure installed")
	inner.AssertExpectations(t)
}

func TestMetricsDecorator(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	inner := &mockService{}
	inner.On("GetElement", mock.Anything, mock.Anything).Return("ok", nil).Once()
	inner.On("GetElement", mock.Anything, mock.Anything).Return("", errors.New("fatal")).Once()

	d := NewMetricsDecorator(inner, metrics)
	_, _ = d.GetElement(context.Background(), ElementRequest{})
	_, _ = d.GetElement(context.Background(), ElementRequest{})
	metrics.ObserveRetry(OpGetElement, retry.RetryEvent{})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.operations.WithLabelValues(OpGetElement, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.operations.WithLabelValues(OpGetElement, "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.retries.WithLabelValues(OpGetElement)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
}

func TestNewChain(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("automation", &buf)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	inner := &mockService{}
	inner.On("GetElement", mock.Anything, mock.Anything).Return("", ErrElementNotReady).Once()
	inner.On("GetElement", mock.Anything, mock.Anything).Return("done", nil).Once()
	inner.On("Close").Return(nil).Once()

	svc := NewChain(inner, ChainOptions{
		Policy:       testPolicy(t, 3),
		Logger:       logger,
		Metrics:      metrics,
		RetryOptions: []RetryOption{WithRetrySleeper((&recordedSleeps{}).sleep)},
	})

	metricsLayer, ok := svc.(*MetricsDecorator)
	require.True(t, ok, "metrics is the outermost layer")
	loggingLayer, ok := metricsLayer.inner.(*LoggingDecorator)
	require.True(t, ok, "logging wraps retry")
	_, ok = loggingLayer.inner.(*RetryDecorator)
	require.True(t, ok, "retry wraps the base service")

	value, err := svc.GetElement(context.Background(), ElementRequest{Selector: "h1"})
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	// One logged call, one retry warning.
	out := buf.String()
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("getting element")))
	assert.Contains(t, out, "[automation.retry] [WARN] get_element: attempt 1/3 failed: element not ready")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.operations.WithLabelValues(OpGetElement, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.retries.WithLabelValues(OpGetElement)))

	require.NoError(t, svc.Close())
	inner.AssertExpectations(t)

	plain := NewChain(inner, ChainOptions{Policy: testPolicy(t, 1)})
	_, ok = plain.(*LoggingDecorator)
	assert.True(t, ok, "no metrics layer without Metrics")
}
