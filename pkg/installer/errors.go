package installer

import (
	"errors"
	"fmt"
)

// InstallError reports a failed installation step. It is never retried by
// the automation service; callers of EnsureInstalled decide whether to try
// again.
type InstallError struct {
	// Step names the failed stage (runtime, driver, browsers...).
	Step string

	// Message is a human readable description, including any manual
	// installation hint.
	Message string

	// Result holds the process output when the step ran an external command.
	Result *ProcResult

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *InstallError) Error() string {
	msg := fmt.Sprintf("install %s failed", e.Step)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Result != nil {
		msg += "\n" + e.Result.Summary()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// IsInstallError reports whether err is (or wraps) an *InstallError.
func IsInstallError(err error) bool {
	var installErr *InstallError
	return errors.As(err, &installErr)
}
