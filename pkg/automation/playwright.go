package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/singleflight"

	"github.com/entrhq/pwauto/pkg/logging"
)

// Mode selects how the browser is obtained.
type Mode string

const (
	// ModeDefault launches bundled Chromium.
	ModeDefault Mode = "default"
	// ModeLocal launches an installed browser channel.
	ModeLocal Mode = "local"
	// ModeWS connects to a remote playwright server.
	ModeWS Mode = "ws"
	// ModeCDP connects over the Chrome DevTools Protocol.
	ModeCDP Mode = "cdp"
)

// ParseMode maps a configured mode, in any letter case, to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeDefault, ModeLocal, ModeWS, ModeCDP:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q: expected default, local, cdp or ws", s)
}

const (
	DefaultChannel     = "msedge"
	DefaultWSServer    = "ws://playwright-server:3000/"
	DefaultCDPServer   = "http://playwright-server:9222/"
	FallbackCDPServer  = "http://localhost:9222/"
	DefaultPageTimeout = 60 * time.Second
)

// Options configures the PlaywrightService.
type Options struct {
	Headless bool
	Mode     Mode

	// Server overrides the mode's default endpoint for ws and cdp.
	Server string

	// Channel is the browser channel for ModeLocal (default msedge).
	Channel string

	SlowMo            time.Duration
	PageTimeout       time.Duration
	ElementTimeout    time.Duration
	ScreenshotTimeout time.Duration

	// DriverDirectory is where the playwright driver was installed.
	DriverDirectory string

	// ScreenshotDir receives screenshots taken without an explicit path.
	ScreenshotDir string
}

func (o Options) withDefaults() Options {
	o.Mode = Mode(strings.ToLower(strings.TrimSpace(string(o.Mode))))
	if o.Mode == "" {
		o.Mode = ModeLocal
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = DefaultPageTimeout
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = DefaultPageTimeout
	}
	if o.ScreenshotTimeout <= 0 {
		o.ScreenshotTimeout = DefaultPageTimeout
	}
	if o.ScreenshotDir == "" {
		o.ScreenshotDir = "screenshots"
	}
	return o
}

// Launcher starts a browser for opts. stop releases the engine behind the
// browser once the browser is closed.
type Launcher func(opts Options) (browser playwright.Browser, stop func() error, err error)

// LaunchPlaywright starts the playwright driver and launches or connects to
// Chromium according to opts.Mode. Unknown modes fall back to CDP on
// localhost.
func LaunchPlaywright(opts Options) (playwright.Browser, func() error, error) {
	pw, err := playwright.Run(&playwright.RunOptions{
		DriverDirectory:     opts.DriverDirectory,
		SkipInstallBrowsers: true,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := connect(pw.Chromium, opts)
	if err != nil {
		_ = pw.Stop()
		return nil, nil, err
	}

	return browser, pw.Stop, nil
}

func connect(chromium playwright.BrowserType, opts Options) (playwright.Browser, error) {
	slowMo := playwright.Float(float64(opts.SlowMo / time.Millisecond))

	switch opts.Mode {
	case ModeDefault:
		return chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			SlowMo:   slowMo,
			Timeout:  playwright.Float(0),
		})

	case ModeLocal:
		channel := opts.Channel
		if channel == "" {
			channel = DefaultChannel
		}
		return chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Channel:           playwright.String(channel),
			Headless:          playwright.Bool(opts.Headless),
			SlowMo:            slowMo,
			Timeout:           playwright.Float(0),
			IgnoreDefaultArgs: []string{"--enable-automation"},
			Args:              []string{"--no-sandbox", "--disable-gpu"},
		})

	case ModeWS:
		return chromium.Connect(serverOr(opts.Server, DefaultWSServer))

	case ModeCDP:
		return chromium.ConnectOverCDP(serverOr(opts.Server, DefaultCDPServer))

	default:
		return chromium.ConnectOverCDP(serverOr(opts.Server, FallbackCDPServer))
	}
}

func serverOr(server, fallback string) string {
	if server != "" {
		return server
	}
	return fallback
}

// PlaywrightService is the base Service backed by playwright-go. The browser
// is created lazily, shared by all callers and recreated after it
// disconnects.
type PlaywrightService struct {
	opts      Options
	installer Installer
	launch    Launcher
	logger    *logging.Logger
	now       func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	browser playwright.Browser
	stop    func() error
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// ServiceOption customizes a PlaywrightService.
type ServiceOption func(*PlaywrightService)

// WithInstaller sets the collaborator used by EnsureInstalled.
func WithInstaller(inst Installer) ServiceOption {
	return func(s *PlaywrightService) { s.installer = inst }
}

// WithLauncher replaces LaunchPlaywright.
func WithLauncher(l Launcher) ServiceOption {
	return func(s *PlaywrightService) { s.launch = l }
}

// WithServiceLogger sets the logger for browser lifecycle events.
func WithServiceLogger(l *logging.Logger) ServiceOption {
	return func(s *PlaywrightService) { s.logger = l }
}

// NewPlaywrightService creates the base service. No browser is started until
// first use.
func NewPlaywrightService(opts Options, options ...ServiceOption) *PlaywrightService {
	s := &PlaywrightService{
		opts:   opts.withDefaults(),
		launch: LaunchPlaywright,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// EnsureInstalled implements Service.
func (s *PlaywrightService) EnsureInstalled(ctx context.Context, progress ProgressFunc) error {
	if s.installer == nil {
		return ErrNoInstaller
	}
	return s.installer.EnsureInstalled(ctx, progress)
}

// Browser implements Service. Concurrent callers share a single
// initialization.
func (s *PlaywrightService) Browser(ctx context.Context) (playwright.Browser, error) {
	if browser, err := s.connected(); browser != nil || err != nil {
		return browser, err
	}

	ch := s.group.DoChan("browser", func() (interface{}, error) {
		return s.initialize()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(playwright.Browser), nil
	}
}

// connected returns the cached browser while it is connected.
func (s *PlaywrightService) connected() (playwright.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.browser != nil && s.browser.IsConnected() {
		return s.browser, nil
	}
	return nil, nil
}

func (s *PlaywrightService) initialize() (playwright.Browser, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.browser != nil && s.browser.IsConnected() {
		browser := s.browser
		s.mu.Unlock()
		return browser, nil
	}
	staleStop := s.stop
	hadBrowser := s.browser != nil
	s.browser, s.stop = nil, nil
	s.mu.Unlock()

	if hadBrowser {
		s.logger.Warnf("browser disconnected, reinitializing")
	}
	if staleStop != nil {
		if err := staleStop(); err != nil {
			s.logger.Debugf("failed to stop stale playwright driver: %v", err)
		}
	}

	s.logger.Debugf("initializing browser (mode=%s)", s.opts.Mode)
	browser, stop, err := s.launch(s.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBrowser, err)
	}
	if browser == nil {
		if stop != nil {
			_ = stop()
		}
		return nil, fmt.Errorf("%w: no browser handle", ErrNoBrowser)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		_ = browser.Close()
		if stop != nil {
			_ = stop()
		}
		return nil, ErrClosed
	}

	s.browser, s.stop = browser, stop
	return browser, nil
}

// Close implements Service.
func (s *PlaywrightService) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		browser, stop := s.browser, s.stop
		s.browser, s.stop = nil, nil
		s.mu.Unlock()

		var errs []error
		if browser != nil {
			if err := browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
			}
		}
		if stop != nil {
			if err := stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// withPage opens a fresh browser context, attaches cookies, navigates to
// rawURL and runs fn on the page. The context is closed afterwards.
func (s *PlaywrightService) withPage(ctx context.Context, rawURL, cookieHeader string, fn func(page playwright.Page) error) error {
	cookies, err := cookiesForURL(cookieHeader, rawURL)
	if err != nil {
		return err
	}

	browser, err := s.Browser(ctx)
	if err != nil {
		return err
	}

	browserCtx, err := browser.NewContext()
	if err != nil {
		return fmt.Errorf("failed to create browser context: %w", err)
	}
	defer func() {
		if err := browserCtx.Close(); err != nil {
			s.logger.Debugf("failed to close browser context: %v", err)
		}
	}()

	if len(cookies) > 0 {
		if err := browserCtx.AddCookies(cookies); err != nil {
			return fmt.Errorf("failed to add cookies: %w", err)
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	if rawURL != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := page.Goto(rawURL, playwright.PageGotoOptions{Timeout: millis(s.opts.PageTimeout)}); err != nil {
			return fmt.Errorf("navigation to %s failed: %w", rawURL, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(page)
}

// GetElement implements Service.
func (s *PlaywrightService) GetElement(ctx context.Context, req ElementRequest) (string, error) {
	req = req.WithDefaults()
	if !req.State.Valid() {
		return "", fmt.Errorf("invalid wait state %q", req.State)
	}

	var value string
	err := s.withPage(ctx, req.URL, req.Cookies, func(page playwright.Page) error {
		var err error
		value, err = extractElement(page, req, s.opts.ElementTimeout)
		return err
	})
	return value, err
}

// GetElementList implements Service.
func (s *PlaywrightService) GetElementList(ctx context.Context, req ElementListRequest) ([]string, error) {
	req = req.WithDefaults()

	var values []string
	err := s.withPage(ctx, req.URL, req.Cookies, func(page playwright.Page) error {
		var err error
		values, err = extractAll(page, req, s.opts.ElementTimeout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Screenshot implements Service.
func (s *PlaywrightService) Screenshot(ctx context.Context, req ScreenshotRequest) (string, error) {
	path := req.Path
	if path == "" {
		path = filepath.Join(s.opts.ScreenshotDir, screenshotName(s.now()))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	err := s.withPage(ctx, req.URL, req.Cookies, func(page playwright.Page) error {
		_, err := page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(req.FullPage),
			Path:     playwright.String(path),
			Timeout:  millis(s.opts.ScreenshotTimeout),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// screenshotName returns screenshot_YYYYMMDD_HHMMSS_mmm.png.
func screenshotName(t time.Time) string {
	return fmt.Sprintf("screenshot_%s_%03d.png", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}
