package config

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// SectionIDServer is the identifier for the HTTP server section
	SectionIDServer = "server"

	defaultAddress = ":8080"
)

// ServerSection configures the HTTP API.
type ServerSection struct {
	Address string

	// AllowedHosts are glob patterns matched against the host of requested
	// URLs, e.g. "*.example.com".
	AllowedHosts []string
	mu           sync.RWMutex
}

// NewServerSection creates a server section with default settings.
func NewServerSection() *ServerSection {
	s := &ServerSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *ServerSection) ID() string {
	return SectionIDServer
}

// Title returns the section title.
func (s *ServerSection) Title() string {
	return "HTTP Server"
}

// Description returns the section description.
func (s *ServerSection) Description() string {
	return "Listen address and the hosts the API may be asked to open."
}

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"address":       s.Address,
		"allowed_hosts": stringsToInterfaces(s.AllowedHosts),
	}
}

// SetData updates the configuration from the provided data.
func (s *ServerSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for key, value := range data {
		switch key {
		case "address":
			s.Address, err = stringValue(key, value)
		case "allowed_hosts":
			s.AllowedHosts, err = stringSliceValue(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the address and that every host pattern compiles.
func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Address == "" {
		return fmt.Errorf("address must not be empty")
	}
	for _, pattern := range s.AllowedHosts {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid allowed_hosts pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Address = defaultAddress
	s.AllowedHosts = []string{"*"}
}

// Snapshot returns the address and a copy of the host patterns.
func (s *ServerSection) Snapshot() (string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Address, append([]string(nil), s.AllowedHosts...)
}
