package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/pwauto/pkg/installer"
)

const (
	// SectionIDInstaller is the identifier for the installer section
	SectionIDInstaller = "installer"
)

var defaultBrowsers = []string{"chromium"}

// InstallerSection configures where and what the installer installs.
type InstallerSection struct {
	BaseDir        string
	Browsers       []string
	WithDeps       string
	RuntimeName    string
	RuntimeCommand string
	RuntimeArgs    []string
	BootstrapURL   string
	BootstrapArgs  []string
	ManualURL      string
	mu             sync.RWMutex
}

// NewInstallerSection creates an installer section with default settings.
func NewInstallerSection() *InstallerSection {
	s := &InstallerSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *InstallerSection) ID() string {
	return SectionIDInstaller
}

// Title returns the section title.
func (s *InstallerSection) Title() string {
	return "Installer"
}

// Description returns the section description.
func (s *InstallerSection) Description() string {
	return "Install location, browsers and the optional runtime bootstrap."
}

// Data returns the current configuration data.
func (s *InstallerSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"base_dir":        s.BaseDir,
		"browsers":        stringsToInterfaces(s.Browsers),
		"with_deps":       s.WithDeps,
		"runtime_name":    s.RuntimeName,
		"runtime_command": s.RuntimeCommand,
		"runtime_args":    stringsToInterfaces(s.RuntimeArgs),
		"bootstrap_url":   s.BootstrapURL,
		"bootstrap_args":  stringsToInterfaces(s.BootstrapArgs),
		"manual_url":      s.ManualURL,
	}
}

// SetData updates the configuration from the provided data.
func (s *InstallerSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for key, value := range data {
		switch key {
		case "base_dir":
			s.BaseDir, err = stringValue(key, value)
		case "browsers":
			s.Browsers, err = stringSliceValue(key, value)
		case "with_deps":
			// YAML decodes bare true/false as bool
			if b, ok := value.(bool); ok {
				s.WithDeps = fmt.Sprint(b)
			} else {
				s.WithDeps, err = stringValue(key, value)
			}
		case "runtime_name":
			s.RuntimeName, err = stringValue(key, value)
		case "runtime_command":
			s.RuntimeCommand, err = stringValue(key, value)
		case "runtime_args":
			s.RuntimeArgs, err = argsValue(key, value)
		case "bootstrap_url":
			s.BootstrapURL, err = stringValue(key, value)
		case "bootstrap_args":
			s.BootstrapArgs, err = argsValue(key, value)
		case "manual_url":
			s.ManualURL, err = stringValue(key, value)
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
func (s *InstallerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch installer.DepsMode(s.WithDeps) {
	case installer.DepsAuto, installer.DepsAlways, installer.DepsNever:
	default:
		return fmt.Errorf("with_deps must be auto, true or false, got %q", s.WithDeps)
	}

	if s.BootstrapURL != "" && s.RuntimeCommand == "" {
		return fmt.Errorf("bootstrap_url requires runtime_command")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *InstallerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BaseDir = ""
	s.Browsers = append([]string(nil), defaultBrowsers...)
	s.WithDeps = string(installer.DepsAuto)
	s.RuntimeName = ""
	s.RuntimeCommand = ""
	s.RuntimeArgs = nil
	s.BootstrapURL = ""
	s.BootstrapArgs = nil
	s.ManualURL = ""
}

// InstallerConfig converts the section into an installer configuration.
// The runtime check is only enabled when runtime_command is set.
func (s *InstallerSection) InstallerConfig() installer.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := installer.Config{
		BaseDir:  s.BaseDir,
		Browsers: append([]string(nil), s.Browsers...),
		Deps:     installer.DepsMode(s.WithDeps),
	}
	if s.RuntimeCommand != "" {
		cfg.Runtime = &installer.RuntimeSpec{
			Name:          s.RuntimeName,
			Command:       s.RuntimeCommand,
			Args:          append([]string(nil), s.RuntimeArgs...),
			BootstrapURL:  s.BootstrapURL,
			BootstrapArgs: append([]string(nil), s.BootstrapArgs...),
			ManualURL:     s.ManualURL,
		}
	}
	return cfg
}
