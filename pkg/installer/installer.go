package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/entrhq/pwauto/pkg/logging"
)

// ProgressFunc receives human readable progress messages. A nil ProgressFunc
// is valid and discards messages.
type ProgressFunc func(message string)

func (p ProgressFunc) report(format string, v ...interface{}) {
	if p != nil {
		p(fmt.Sprintf(format, v...))
	}
}

// DepsMode controls whether the browser install also installs system
// dependencies.
type DepsMode string

const (
	// DepsAuto installs system dependencies on Linux only.
	DepsAuto DepsMode = "auto"
	// DepsAlways always passes --with-deps.
	DepsAlways DepsMode = "true"
	// DepsNever never passes --with-deps.
	DepsNever DepsMode = "false"
)

// RuntimeSpec describes an external runtime that must be present before the
// CLI can be installed, and how to bootstrap it when it is missing.
type RuntimeSpec struct {
	// Name is used in progress messages, e.g. "Node.js".
	Name string

	// Command and Args probe the runtime; exit code 0 means installed.
	Command string
	Args    []string

	// BootstrapURL points at the platform install script (.ps1 on Windows,
	// shell script elsewhere). Empty means the runtime cannot be bootstrapped.
	BootstrapURL  string
	BootstrapArgs []string

	// ManualURL is suggested to the user when bootstrapping fails.
	ManualURL string
}

// Config configures an Installer.
type Config struct {
	// BaseDir holds the tools/ and scripts/ directories.
	BaseDir string

	// Browsers to install, e.g. ["chromium"]. Empty installs the CLI defaults.
	Browsers []string

	// Deps selects --with-deps behaviour (default DepsAuto).
	Deps DepsMode

	// Runtime is optional; nil skips the runtime check.
	Runtime *RuntimeSpec
}

// Installer verifies and bootstraps the automation engine's binaries.
type Installer struct {
	cfg        Config
	runner     ProcessRunner
	downloader Downloader
	driver     Driver
	goos       string
	logger     *logging.Logger
}

// Option customizes an Installer.
type Option func(*Installer)

// WithProcessRunner replaces the os/exec runner.
func WithProcessRunner(r ProcessRunner) Option {
	return func(i *Installer) { i.runner = r }
}

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d Downloader) Option {
	return func(i *Installer) { i.downloader = d }
}

// WithDriver replaces the playwright-go driver adapter.
func WithDriver(d Driver) Option {
	return func(i *Installer) { i.driver = d }
}

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Option {
	return func(i *Installer) { i.goos = goos }
}

// WithLogger sets the logger used for step diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// DefaultBaseDir returns the directory of the running executable, falling
// back to the working directory.
func DefaultBaseDir() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// New creates an Installer. Unless WithDriver is given, the playwright-go
// driver is rooted at <BaseDir>/tools.
func New(cfg Config, opts ...Option) (*Installer, error) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = DefaultBaseDir()
	}
	if cfg.Deps == "" {
		cfg.Deps = DepsAuto
	}

	i := &Installer{
		cfg:        cfg,
		runner:     ExecRunner{},
		downloader: HTTPDownloader{},
		goos:       runtime.GOOS,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.driver == nil {
		driver, err := NewPlaywrightDriver(i.ToolsDir(), i.runner)
		if err != nil {
			return nil, err
		}
		i.driver = driver
	}

	return i, nil
}

// ToolsDir is where the CLI is installed.
func (i *Installer) ToolsDir() string {
	return filepath.Join(i.cfg.BaseDir, "tools")
}

// ScriptsDir is where bootstrap scripts are downloaded.
func (i *Installer) ScriptsDir() string {
	return filepath.Join(i.cfg.BaseDir, "scripts")
}

// EnsureInstalled makes sure the runtime (if configured), the playwright CLI
// and the browser binaries are installed. Every step is idempotent.
// Cancelling ctx aborts in-flight downloads and processes.
func (i *Installer) EnsureInstalled(ctx context.Context, progress ProgressFunc) error {
	for _, dir := range []string{i.ToolsDir(), i.ScriptsDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return &InstallError{Step: "layout", Message: "failed to create " + dir, Err: err}
		}
	}

	if i.cfg.Runtime != nil {
		if err := i.ensureRuntime(ctx, progress); err != nil {
			return err
		}
	}

	if err := i.ensureDriver(ctx, progress); err != nil {
		return err
	}

	return i.installBrowsers(ctx, progress)
}

func (i *Installer) ensureRuntime(ctx context.Context, progress ProgressFunc) error {
	spec := i.cfg.Runtime
	name := spec.Name
	if name == "" {
		name = spec.Command
	}
	args := spec.Args
	if len(args) == 0 {
		args = []string{"--version"}
	}

	progress.report("Checking for %s...", name)

	result, err := i.runner.Run(ctx, DefaultCheckTimeout, spec.Command, args...)
	if err == nil && result.ExitCode == 0 {
		progress.report("%s found: %s", name, strings.TrimSpace(result.Stdout))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &InstallError{Step: "runtime", Message: "cancelled", Err: ctxErr}
	}
	i.logger.Debugf("runtime probe %s failed: %v", spec.Command, err)

	progress.report("Failed to find %s.", name)

	if spec.BootstrapURL == "" {
		return &InstallError{
			Step:    "runtime",
			Message: fmt.Sprintf("%s is not installed and no bootstrap script is configured%s", name, manualHint(spec.ManualURL)),
			Err:     err,
		}
	}

	scriptPath, command, commandArgs := i.bootstrapCommand(spec)

	progress.report("Downloading %s install script...", name)
	if err := i.downloader.Download(ctx, spec.BootstrapURL, scriptPath); err != nil {
		return &InstallError{Step: "runtime", Message: "failed to download install script", Err: err}
	}
	progress.report("Downloaded %s install script.", name)

	if !i.isWindows() {
		if err := MakeExecutable(scriptPath); err != nil {
			i.logger.Warnf("failed to make %s executable: %v", scriptPath, err)
		}
	}

	progress.report("Installing %s...", name)
	result, err = i.runner.Run(ctx, DefaultInstallTimeout, command, commandArgs...)
	if err != nil {
		return &InstallError{Step: "runtime", Message: name + " install did not complete", Err: err}
	}
	if result.ExitCode != 0 {
		return &InstallError{
			Step:    "runtime",
			Message: fmt.Sprintf("%s install failed%s", name, manualHint(spec.ManualURL)),
			Result:  &result,
		}
	}

	progress.report("Installed %s.", name)
	return nil
}

func (i *Installer) bootstrapCommand(spec *RuntimeSpec) (scriptPath, command string, args []string) {
	if i.isWindows() {
		scriptPath = filepath.Join(i.ScriptsDir(), "runtime-install.ps1")
		args = append([]string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", scriptPath}, spec.BootstrapArgs...)
		return scriptPath, "powershell", args
	}
	scriptPath = filepath.Join(i.ScriptsDir(), "runtime-install.sh")
	return scriptPath, scriptPath, append([]string(nil), spec.BootstrapArgs...)
}

func (i *Installer) ensureDriver(ctx context.Context, progress ProgressFunc) error {
	progress.report("Checking for Playwright CLI...")

	if i.driver.Installed(ctx) {
		name, _ := i.driver.Command()
		progress.report("Playwright CLI found in tools: %s", name)
		return nil
	}

	progress.report("Playwright CLI not found in tools. Installing to %s...", i.ToolsDir())
	if err := i.driver.Install(ctx); err != nil {
		return &InstallError{Step: "driver", Message: "failed to install the Playwright CLI", Err: err}
	}

	name, _ := i.driver.Command()
	progress.report("Installed Playwright CLI to tools: %s", name)
	return nil
}

func (i *Installer) installBrowsers(ctx context.Context, progress ProgressFunc) error {
	cliArgs := []string{"install"}
	if i.withDeps() {
		cliArgs = append(cliArgs, "--with-deps")
	}
	cliArgs = append(cliArgs, i.cfg.Browsers...)

	name, args := i.driver.Command(cliArgs...)
	progress.report("Running Playwright CLI: %s", strings.Join(cliArgs, " "))

	result, err := i.runner.Run(ctx, DefaultInstallTimeout, name, args...)
	if err != nil {
		return &InstallError{Step: "browsers", Message: "Playwright install did not complete", Err: err}
	}
	if result.ExitCode != 0 {
		return &InstallError{Step: "browsers", Message: "Playwright install failed", Result: &result}
	}

	progress.report("Playwright install succeeded.")
	return nil
}

func (i *Installer) withDeps() bool {
	switch i.cfg.Deps {
	case DepsAlways:
		return true
	case DepsNever:
		return false
	default:
		return i.goos == "linux"
	}
}

func (i *Installer) isWindows() bool {
	return i.goos == "windows"
}

func manualHint(url string) string {
	if url == "" {
		return ""
	}
	return ". Please visit " + url + " for manual installation"
}
