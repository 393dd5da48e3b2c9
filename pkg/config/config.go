package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over store with every section
// registered at its defaults.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)

	for _, section := range []Section{
		NewRetrySection(),
		NewAutomationSection(),
		NewInstallerSection(),
		NewServerSection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return nil, err
		}
	}

	return manager, nil
}

// Initialize creates, loads and validates the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	if err := manager.Validate(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func globalSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}

	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}

	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetRetry returns the retry section from global config.
// Returns nil if config is not initialized.
func GetRetry() *RetrySection {
	return globalSection[*RetrySection](SectionIDRetry)
}

// GetAutomation returns the automation section from global config.
// Returns nil if config is not initialized.
func GetAutomation() *AutomationSection {
	return globalSection[*AutomationSection](SectionIDAutomation)
}

// GetInstaller returns the installer section from global config.
// Returns nil if config is not initialized.
func GetInstaller() *InstallerSection {
	return globalSection[*InstallerSection](SectionIDInstaller)
}

// GetServer returns the server section from global config.
// Returns nil if config is not initialized.
func GetServer() *ServerSection {
	return globalSection[*ServerSection](SectionIDServer)
}
