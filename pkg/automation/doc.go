// Package automation provides a browser automation service built on
// playwright-go.
//
// The Service interface fetches element values, element lists and
// screenshots from web pages. PlaywrightService is the base implementation:
// it lazily starts one shared browser (launching Chromium or connecting to a
// remote server over WebSocket or CDP), opens a fresh browser context per
// call and attaches cookies before navigating.
//
// Cross-cutting behaviour is layered on with decorators that implement the
// same interface:
//
//   - RetryDecorator retries transient failures (timeouts, elements that are
//     not ready yet) with linear backoff from package retry.
//   - LoggingDecorator logs each call and its result.
//   - MetricsDecorator exports prometheus counters and latency histograms.
//
// NewChain assembles them in the order metrics, logging, retry, base:
//
//	base := automation.NewPlaywrightService(opts, automation.WithInstaller(inst))
//	svc := automation.NewChain(base, automation.ChainOptions{
//		Policy:  policy,
//		Logger:  logger,
//		Metrics: automation.NewMetrics(registry),
//	})
//	defer svc.Close()
//
//	title, err := svc.GetElement(ctx, automation.ElementRequest{
//		URL:      "https://example.com",
//		Selector: "h1",
//	})
package automation
