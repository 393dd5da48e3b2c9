package installer

import (
	"context"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Driver is the playwright CLI installed under the tools directory.
type Driver interface {
	// Installed reports whether the CLI is present and runnable.
	Installed(ctx context.Context) bool

	// Install downloads the CLI into the tools directory.
	Install(ctx context.Context) error

	// Command returns the executable and arguments that run the CLI with args.
	Command(args ...string) (name string, cmdArgs []string)
}

// PlaywrightDriver adapts playwright-go's driver management to Driver.
type PlaywrightDriver struct {
	driver *playwright.PlaywrightDriver
	runner ProcessRunner
}

// NewPlaywrightDriver creates a driver rooted at dir. Browsers are never
// installed implicitly; EnsureInstalled runs the CLI's install command.
func NewPlaywrightDriver(dir string, runner ProcessRunner) (*PlaywrightDriver, error) {
	driver, err := playwright.NewDriver(&playwright.RunOptions{
		DriverDirectory:     dir,
		SkipInstallBrowsers: true,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create playwright driver: %w", err)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PlaywrightDriver{driver: driver, runner: runner}, nil
}

// Installed implements Driver.
func (d *PlaywrightDriver) Installed(ctx context.Context) bool {
	name, args := d.Command("--version")
	result, err := d.runner.Run(ctx, DefaultCheckTimeout, name, args...)
	return err == nil && result.ExitCode == 0
}

// Install implements Driver. playwright-go's installer does not take a
// context, so cancellation abandons the download and returns immediately.
func (d *PlaywrightDriver) Install(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- d.driver.Install()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("playwright driver install cancelled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// Command implements Driver.
func (d *PlaywrightDriver) Command(args ...string) (string, []string) {
	cmd := d.driver.Command(args...)
	return cmd.Path, cmd.Args[1:]
}
