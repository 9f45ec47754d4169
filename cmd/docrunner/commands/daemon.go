package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docrunner/internal/daemon"
	"git.home.luguber.info/inful/docrunner/internal/pipeline"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Path    string `arg:"" optional:"" help:"Local project directory to serve" default:"."`
	URL     string `short:"u" help:"Git repository URL to build instead of a local directory"`
	Ref     string `short:"r" help:"Branch or tag to build (remote projects only)"`
	Output  string `short:"o" help:"Output directory for built docs"`
	Project string `help:"Project name for logs and history"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	req := pipeline.BuildRequest{
		Project:      d.Project,
		Ref:          d.Ref,
		ManifestPath: root.Manifest,
		OutputDir:    d.Output,
	}
	if d.URL != "" {
		req.URL = d.URL
	} else {
		req.Path = d.Path
	}

	dm, err := daemon.New(cfg, req)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return dm.Run(ctx)
}
