package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docrunner/internal/events"
	"git.home.luguber.info/inful/docrunner/internal/history"
	"git.home.luguber.info/inful/docrunner/internal/pipeline"
)

// BuildCmd implements the 'build' command: one build, local or remote.
type BuildCmd struct {
	Path    string   `arg:"" optional:"" help:"Local project directory" default:"."`
	URL     string   `short:"u" help:"Git repository URL to build instead of a local directory"`
	Ref     string   `short:"r" help:"Branch or tag to build (remote builds only)"`
	Output  string   `short:"o" help:"Output directory for built docs"`
	Project string   `help:"Project name for logs and history"`
	Format  []string `short:"f" help:"Override the manifest's output formats"`
	Keep    bool     `help:"Keep the build workspace for inspection"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.Keep {
		cfg.Workspace.Keep = true
	}

	opts := []pipeline.ServiceOption{}
	if cfg.History.Path != "" {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, pipeline.WithStore(store))
	}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, pipeline.WithPublisher(pub))
	}

	svc, err := pipeline.NewService(cfg, opts...)
	if err != nil {
		return err
	}

	req := pipeline.BuildRequest{
		Project:      b.Project,
		Ref:          b.Ref,
		ManifestPath: root.Manifest,
		OutputDir:    b.Output,
		Formats:      b.Format,
		Trigger:      "cli",
	}
	if b.URL != "" {
		req.URL = b.URL
	} else {
		req.Path = b.Path
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := svc.Run(ctx, req)
	printReport(report)
	return err
}

func printReport(report *pipeline.BuildReport) {
	fmt.Printf("build %s: %s (%s)\n", report.ID, report.Outcome, report.Duration.Round(time.Millisecond))
	for _, stage := range report.Stages {
		line := fmt.Sprintf("  %-13s %s", stage.Name, stage.Outcome)
		if stage.Error != "" {
			line += "  " + stage.Error
		}
		fmt.Println(line)
	}
	if report.OutputDir != "" && report.Outcome == pipeline.OutcomeSuccess {
		fmt.Printf("artifacts: %s\n", report.OutputDir)
	}
	if len(report.BrokenLinks) > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d broken internal links\n", len(report.BrokenLinks))
	}
}
