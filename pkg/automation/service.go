package automation

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwauto/pkg/installer"
)

// ProgressFunc receives installation progress messages.
type ProgressFunc = installer.ProgressFunc

// WaitState is the element state GetElement waits for.
type WaitState string

const (
	WaitAttached WaitState = "attached"
	WaitDetached WaitState = "detached"
	WaitVisible  WaitState = "visible"
	WaitHidden   WaitState = "hidden"
)

// Valid reports whether s is one of the known wait states.
func (s WaitState) Valid() bool {
	switch s {
	case WaitAttached, WaitDetached, WaitVisible, WaitHidden:
		return true
	}
	return false
}

const (
	// AttributeHTML reads an element's inner markup.
	AttributeHTML = "html"

	// AttributeText reads an element's inner text.
	AttributeText = "text"

	// DefaultElementAttribute is read by GetElement when none is given.
	DefaultElementAttribute = AttributeText

	// DefaultListAttribute is read by GetElementList when none is given.
	DefaultListAttribute = "href"
)

// ElementRequest describes a single-element fetch.
type ElementRequest struct {
	URL      string
	Selector string

	// ReadyText, when set, must be contained in the value read.
	ReadyText string

	// State defaults to WaitVisible.
	State WaitState

	// Attribute is "html", "text" (default) or an attribute name.
	Attribute string

	// Cookies is a "name=value; name2=value2" header attached before
	// navigation.
	Cookies string
}

// WithDefaults fills unset fields.
func (r ElementRequest) WithDefaults() ElementRequest {
	if r.State == "" {
		r.State = WaitVisible
	}
	if r.Attribute == "" {
		r.Attribute = DefaultElementAttribute
	}
	return r
}

// ElementListRequest describes a fetch of every element matching a selector.
type ElementListRequest struct {
	URL      string
	Selector string

	// Attribute is "html", "text" or an attribute name (default "href").
	Attribute string

	Cookies string
}

// WithDefaults fills unset fields.
func (r ElementListRequest) WithDefaults() ElementListRequest {
	if r.Attribute == "" {
		r.Attribute = DefaultListAttribute
	}
	return r
}

// ScreenshotRequest describes a page capture.
type ScreenshotRequest struct {
	URL      string
	Cookies  string
	FullPage bool

	// Path is the output file. Empty writes a timestamped PNG into the
	// configured screenshot directory.
	Path string
}

// Service is the browser automation facade. Decorators implement it too, so
// callers cannot tell whether they hold the base service or a chain.
type Service interface {
	// EnsureInstalled installs the driver and browsers if needed.
	EnsureInstalled(ctx context.Context, progress ProgressFunc) error

	// Browser returns the shared, connected browser, initializing it once.
	Browser(ctx context.Context) (playwright.Browser, error)

	// GetElement reads one attribute of the element matching the request.
	GetElement(ctx context.Context, req ElementRequest) (string, error)

	// GetElementList reads one attribute of every matching element, in
	// document order.
	GetElementList(ctx context.Context, req ElementListRequest) ([]string, error)

	// Screenshot captures the page and returns the written file path.
	Screenshot(ctx context.Context, req ScreenshotRequest) (string, error)

	// Close releases the browser. Only the first call has an effect.
	Close() error
}

// Installer is the collaborator that performs EnsureInstalled.
type Installer interface {
	EnsureInstalled(ctx context.Context, progress installer.ProgressFunc) error
}
