package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultCheckTimeout bounds quick probes such as "<tool> --version".
	DefaultCheckTimeout = 30 * time.Second

	// DefaultInstallTimeout bounds long-running installer processes.
	DefaultInstallTimeout = 10 * time.Minute
)

// ProcResult captures the outcome of an external process.
type ProcResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Summary renders the exit code and non-empty output streams for error
// messages.
func (r ProcResult) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ExitCode=%d\n", r.ExitCode)
	if out := strings.TrimSpace(r.Stdout); out != "" {
		sb.WriteString("StdOut: " + out + "\n")
	}
	if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
		sb.WriteString("StdErr: " + errOut + "\n")
	}
	return sb.String()
}

// ProcessRunner runs external processes.
type ProcessRunner interface {
	// Run executes name with args and waits for it to exit. A non-zero exit
	// code is reported through ProcResult, not as an error. Errors are
	// reserved for processes that could not be started, or that were killed
	// because the timeout elapsed or ctx was cancelled.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (ProcResult, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	// Env is appended to the current environment.
	Env []string
}

// Run implements ProcessRunner.
func (r ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (ProcResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ProcResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("process '%s' timed out or cancelled: %w", commandLine, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to start/execute process '%s': %w", commandLine, err)
	}

	return result, nil
}

// MakeExecutable marks path as executable on platforms that have a mode bit
// for it.
func MakeExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode()|0o111)
}
