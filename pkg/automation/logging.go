package automation

import (
	"context"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwauto/pkg/logging"
)

// LoggingDecorator logs calls to the wrapped service. Arguments, results and
// errors are passed through untouched.
type LoggingDecorator struct {
	inner  Service
	logger *logging.Logger
}

var _ Service = (*LoggingDecorator)(nil)

// NewLoggingDecorator wraps inner.
func NewLoggingDecorator(inner Service, logger *logging.Logger) *LoggingDecorator {
	return &LoggingDecorator{inner: inner, logger: logger}
}

// EnsureInstalled implements Service.
func (d *LoggingDecorator) EnsureInstalled(ctx context.Context, progress ProgressFunc) error {
	err := d.inner.EnsureInstalled(ctx, progress)
	if err != nil {
		d.logger.Errorf("ensure installed failed: %v", err)
		return err
	}
	d.logger.Debugf("ensure installed")
	return nil
}

// Browser implements Service.
func (d *LoggingDecorator) Browser(ctx context.Context) (playwright.Browser, error) {
	browser, err := d.inner.Browser(ctx)
	if err != nil {
		d.logger.Errorf("get browser failed: %v", err)
		return browser, err
	}
	d.logger.Debugf("get browser")
	return browser, nil
}

// GetElement implements Service.
func (d *LoggingDecorator) GetElement(ctx context.Context, req ElementRequest) (string, error) {
	d.logger.Infof("getting element from url: %s, selector: %s", req.URL, req.Selector)

	value, err := d.inner.GetElement(ctx, req)
	if err != nil {
		d.logger.Errorf("get element from %s failed: %v", req.URL, err)
		return value, err
	}

	d.logger.Infof("got element: %s", value)
	return value, nil
}

// GetElementList implements Service.
func (d *LoggingDecorator) GetElementList(ctx context.Context, req ElementListRequest) ([]string, error) {
	d.logger.Infof("getting elements from url: %s, selector: %s", req.URL, req.Selector)

	values, err := d.inner.GetElementList(ctx, req)
	if err != nil {
		d.logger.Errorf("get elements from %s failed: %v", req.URL, err)
		return values, err
	}

	d.logger.Infof("got %d elements:\n%s", len(values), strings.Join(values, "\n"))
	return values, nil
}

// Screenshot implements Service.
func (d *LoggingDecorator) Screenshot(ctx context.Context, req ScreenshotRequest) (string, error) {
	d.logger.Infof("taking screenshot of url: %s", req.URL)

	path, err := d.inner.Screenshot(ctx, req)
	if err != nil {
		d.logger.Errorf("screenshot of %s failed: %v", req.URL, err)
		return path, err
	}

	d.logger.Infof("saved screenshot: %s", path)
	return path, nil
}

// Close implements Service.
func (d *LoggingDecorator) Close() error {
	err := d.inner.Close()
	if err != nil {
		d.logger.Errorf("close failed: %v", err)
		return err
	}
	d.logger.Debugf("closed")
	return nil
}
