// Package installer verifies and bootstraps the binaries the browser
// automation service depends on.
//
// EnsureInstalled lays out <base>/tools and <base>/scripts, optionally checks
// for an external runtime and bootstraps it from a downloaded platform script,
// installs the playwright-go driver into tools/ when it is missing, and
// finally runs the driver's "install" command for the configured browsers
// (adding --with-deps on Linux).
//
// External processes run through a ProcessRunner so tests can substitute a
// fake:
//
//	inst, err := installer.New(installer.Config{Browsers: []string{"chromium"}})
//	if err != nil {
//		return err
//	}
//	err = inst.EnsureInstalled(ctx, func(msg string) { log.Println(msg) })
package installer
