package automation

import (
	"errors"
)

var (
	// ErrElementNotReady means the element was missing, empty or did not
	// contain the expected text yet. It is retryable.
	ErrElementNotReady = errors.New("element not ready")

	// ErrClosed is returned once the service has been closed.
	ErrClosed = errors.New("automation service closed")

	// ErrNoBrowser is returned when initialization produced no browser.
	ErrNoBrowser = errors.New("browser initialization failed")

	// ErrNoInstaller is returned by EnsureInstalled when no installer was
	// configured.
	ErrNoInstaller = errors.New("no installer configured")
)
