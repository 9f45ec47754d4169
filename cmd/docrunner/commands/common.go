package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docrunner/internal/config"
)

// Global state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition and global flags.
type CLI struct {
	Config   string           `short:"c" help:"Service configuration file path" type:"path"`
	Manifest string           `short:"m" help:"Build manifest path inside the project" default:".docs.yaml"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Validate ValidateCmd `cmd:"" help:"Validate a build manifest without building"`
	Build    BuildCmd    `cmd:"" help:"Run one documentation build"`
	Env      EnvCmd      `cmd:"" help:"Show the resolved build environment for a manifest"`
	Init     InitCmd     `cmd:"" help:"Write a starter build manifest"`
	History  HistoryCmd  `cmd:"" help:"Inspect past builds"`
	Daemon   DaemonCmd   `cmd:"" help:"Run the build service in daemon mode"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	level := parseLogLevel(c.Verbose)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel resolves the log level from the verbose flag and the
// DOCRUNNER_LOG_LEVEL environment variable. The flag wins.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(os.Getenv("DOCRUNNER_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig loads the service configuration and applies the global manifest
// flag as the default manifest path.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Manifest != "" {
		cfg.Build.Manifest = c.Manifest
	}
	return cfg, nil
}
