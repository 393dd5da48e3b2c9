// Package main runs the pwauto HTTP service: a Playwright-backed page reader
// that extracts elements and screenshots on request.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/entrhq/pwauto/pkg/api"
	"github.com/entrhq/pwauto/pkg/automation"
	"github.com/entrhq/pwauto/pkg/config"
	"github.com/entrhq/pwauto/pkg/installer"
	"github.com/entrhq/pwauto/pkg/logging"
)

const (
	version = "0.1.0"

	shutdownTimeout = 15 * time.Second
)

// Config holds the command line configuration
type Config struct {
	ConfigPath  string
	Address     string
	LogLevel    string
	LogFile     bool
	Install     bool
	InstallOnly bool
	ShowVersion bool
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("pwauto v%s\n", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatalf("pwauto: %v", err)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ConfigPath, "config", os.Getenv("PWAUTO_CONFIG"), "Path to the YAML config file (default ~/.pwauto/config.yaml)")
	flag.StringVar(&cfg.Address, "addr", os.Getenv("PWAUTO_ADDR"), "Listen address (overrides server.address)")
	flag.StringVar(&cfg.LogLevel, "log-level", envOr("PWAUTO_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.LogFile, "log-file", false, "Write logs to ~/.pwauto/logs instead of stderr")
	flag.BoolVar(&cfg.Install, "install", false, "Install the driver and browsers before serving")
	flag.BoolVar(&cfg.InstallOnly, "install-only", false, "Install the driver and browsers, then exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pwauto - browser automation over HTTP\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pwauto [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(os.Stderr, "  PWAUTO_CONFIG      Config file path\n")
		fmt.Fprintf(os.Stderr, "  PWAUTO_ADDR        Listen address\n")
		fmt.Fprintf(os.Stderr, "  PWAUTO_LOG_LEVEL   Log level\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pwauto -install-only\n")
		fmt.Fprintf(os.Stderr, "  pwauto -addr :9000 -log-level debug\n")
	}

	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(cfg *Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.SetDefaultLevel(level)

	if cfg.LogFile {
		// NewLogger falls back to stderr on error; keep running either way
		logger, _ := logging.NewLogger("pwauto")
		return logger, nil
	}
	return logging.NewStderrLogger("pwauto"), nil
}

func run(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := config.Initialize(cfg.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	if fs, ok := config.Global().Store().(*config.FileStore); ok {
		logger.Infof("configuration loaded from %s", fs.Path())
	}

	inst, err := installer.New(
		config.GetInstaller().InstallerConfig(),
		installer.WithLogger(logger.With("installer")),
	)
	if err != nil {
		return fmt.Errorf("failed to create installer: %w", err)
	}

	policy, err := config.GetRetry().Policy()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	base := automation.NewPlaywrightService(
		config.GetAutomation().Options(inst.ToolsDir()),
		automation.WithInstaller(inst),
		automation.WithServiceLogger(logger.With("playwright")),
	)
	svc := automation.NewChain(base, automation.ChainOptions{
		Policy:  policy,
		Logger:  logger.With("automation"),
		Metrics: automation.NewMetrics(registry),
	})
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warnf("failed to close browser: %v", err)
		}
	}()

	if cfg.Install || cfg.InstallOnly {
		progress := func(msg string) { logger.Infof("%s", msg) }
		if err := svc.EnsureInstalled(ctx, progress); err != nil {
			return err
		}
		if cfg.InstallOnly {
			return nil
		}
	}

	addr, hosts := config.GetServer().Snapshot()
	if cfg.Address != "" {
		addr = cfg.Address
	}

	server, err := api.New(svc, api.Options{
		Address:      addr,
		AllowedHosts: hosts,
		Logger:       logger.With("http"),
		Gatherer:     registry,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
