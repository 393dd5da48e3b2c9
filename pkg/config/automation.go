package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/pwauto/pkg/automation"
)

const (
	// SectionIDAutomation is the identifier for the browser automation section
	SectionIDAutomation = "automation"

	defaultHeadless            = true
	defaultMode                = string(automation.ModeLocal)
	defaultSlowMoMs            = 100
	defaultPageTimeoutMs       = 60000
	defaultElementTimeoutMs    = 60000
	defaultScreenshotTimeoutMs = 60000
	defaultScreenshotDir       = "screenshots"
)

// AutomationSection configures how the browser is launched or connected to.
type AutomationSection struct {
	Headless            bool
	Mode                string
	Server              string
	Channel             string
	SlowMoMs            int
	PageTimeoutMs       int
	ElementTimeoutMs    int
	ScreenshotTimeoutMs int
	ScreenshotDir       string
	mu                  sync.RWMutex
}

// NewAutomationSection creates an automation section with default settings.
func NewAutomationSection() *AutomationSection {
	s := &AutomationSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *AutomationSection) ID() string {
	return SectionIDAutomation
}

// Title returns the section title.
func (s *AutomationSection) Title() string {
	return "Browser Automation"
}

// Description returns the section description.
func (s *AutomationSection) Description() string {
	return "Browser connection mode, remote server endpoint and page timeouts."
}

// Data returns the current configuration data.
func (s *AutomationSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"headless":              s.Headless,
		"mode":                  s.Mode,
		"server":                s.Server,
		"channel":               s.Channel,
		"slow_mo_ms":            s.SlowMoMs,
		"page_timeout_ms":       s.PageTimeoutMs,
		"element_timeout_ms":    s.ElementTimeoutMs,
		"screenshot_timeout_ms": s.ScreenshotTimeoutMs,
		"screenshot_dir":        s.ScreenshotDir,
	}
}

// SetData updates the configuration from the provided data.
func (s *AutomationSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for key, value := range data {
		switch key {
		case "headless":
			s.Headless, err = boolValue(key, value)
		case "mode":
			s.Mode, err = stringValue(key, value)
			s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
		case "server":
			s.Server, err = stringValue(key, value)
		case "channel":
			s.Channel, err = stringValue(key, value)
		case "slow_mo_ms":
			s.SlowMoMs, err = intValue(key, value)
		case "page_timeout_ms":
			s.PageTimeoutMs, err = intValue(key, value)
		case "element_timeout_ms":
			s.ElementTimeoutMs, err = intValue(key, value)
		case "screenshot_timeout_ms":
			s.ScreenshotTimeoutMs, err = intValue(key, value)
		case "video_timeout_ms":
			// older name for the capture timeout
			if _, ok := data["screenshot_timeout_ms"]; !ok {
				s.ScreenshotTimeoutMs, err = intValue(key, value)
			}
		case "screenshot_dir":
			s.ScreenshotDir, err = stringValue(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *AutomationSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := automation.ParseMode(s.Mode); err != nil {
		return err
	}
	if s.SlowMoMs < 0 {
		return fmt.Errorf("slow_mo_ms must not be negative, got %d", s.SlowMoMs)
	}
	for key, ms := range map[string]int{
		"page_timeout_ms":       s.PageTimeoutMs,
		"element_timeout_ms":    s.ElementTimeoutMs,
		"screenshot_timeout_ms": s.ScreenshotTimeoutMs,
	} {
		if ms <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, ms)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *AutomationSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Headless = defaultHeadless
	s.Mode = defaultMode
	s.Server = ""
	s.Channel = ""
	s.SlowMoMs = defaultSlowMoMs
	s.PageTimeoutMs = defaultPageTimeoutMs
	s.ElementTimeoutMs = defaultElementTimeoutMs
	s.ScreenshotTimeoutMs = defaultScreenshotTimeoutMs
	s.ScreenshotDir = defaultScreenshotDir
}

// Options converts the section into service options. driverDir is where the
// playwright driver was installed.
func (s *AutomationSection) Options(driverDir string) automation.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return automation.Options{
		Headless:          s.Headless,
		Mode:              automation.Mode(strings.ToLower(s.Mode)),
		Server:            s.Server,
		Channel:           s.Channel,
		SlowMo:            time.Duration(s.SlowMoMs) * time.Millisecond,
		PageTimeout:       time.Duration(s.PageTimeoutMs) * time.Millisecond,
		ElementTimeout:    time.Duration(s.ElementTimeoutMs) * time.Millisecond,
		ScreenshotTimeout: time.Duration(s.ScreenshotTimeoutMs) * time.Millisecond,
		ScreenshotDir:     s.ScreenshotDir,
		DriverDirectory:   driverDir,
	}
}
