package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/history"
)

// HistoryCmd implements the 'history' command group.
type HistoryCmd struct {
	List  HistoryListCmd  `cmd:"" default:"withargs" help:"List recent builds"`
	Show  HistoryShowCmd  `cmd:"" help:"Show one build in detail"`
	Prune HistoryPruneCmd `cmd:"" help:"Delete builds older than a retention window"`
}

// HistoryListCmd lists recent builds from the history store.
type HistoryListCmd struct {
	Limit int `short:"n" help:"Maximum number of builds to show" default:"20"`
}

func (h *HistoryListCmd) Run(_ *Global, root *CLI) error {
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer store.Close()

	builds, err := store.ListBuilds(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		fmt.Println("no builds recorded")
		return nil
	}

	for _, b := range builds {
		fmt.Printf("%s  %-10s %-20s %-8s %s\n",
			b.Started.Format(time.RFC3339), shortID(b.ID), b.Project, b.Outcome,
			b.Duration.Round(time.Millisecond))
	}
	return nil
}

// HistoryShowCmd prints one build's record and stage history.
type HistoryShowCmd struct {
	ID string `arg:"" help:"Build ID (full or unique prefix)"`
}

func (h *HistoryShowCmd) Run(_ *Global, root *CLI) error {
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	record, err := resolveBuild(ctx, store, h.ID)
	if err != nil {
		return err
	}

	summary, err := history.SummarizeFromStore(ctx, store, record.ID)
	if err != nil {
		return err
	}

	fmt.Printf("build:    %s\n", record.ID)
	fmt.Printf("project:  %s\n", record.Project)
	if record.Ref != "" {
		fmt.Printf("ref:      %s\n", record.Ref)
	}
	if record.Commit != "" {
		fmt.Printf("commit:   %s\n", record.Commit)
	}
	fmt.Printf("outcome:  %s\n", record.Outcome)
	fmt.Printf("started:  %s\n", record.Started.Format(time.RFC3339))
	fmt.Printf("duration: %s\n", record.Duration.Round(time.Millisecond))
	if record.Error != "" {
		fmt.Printf("error:    %s\n", record.Error)
	}
	if len(summary.StagesDone) > 0 {
		fmt.Printf("stages:   %s\n", strings.Join(summary.StagesDone, ", "))
	}
	return nil
}

// HistoryPruneCmd deletes builds and their events past the retention window.
type HistoryPruneCmd struct {
	OlderThan time.Duration `help:"Delete builds started earlier than this long ago" default:"720h"`
}

func (h *HistoryPruneCmd) Run(_ *Global, root *CLI) error {
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Prune(context.Background(), time.Now().Add(-h.OlderThan))
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d builds\n", n)
	return nil
}

func openStore(root *CLI) (history.Store, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.History.Path == "" {
		return nil, derrors.New(derrors.CategoryConfig, derrors.SeverityError,
			"build history is disabled; set history.path in the service configuration")
	}
	return history.NewSQLiteStore(cfg.History.Path)
}

// resolveBuild accepts a full ID or a unique prefix.
func resolveBuild(ctx context.Context, store history.Store, id string) (*history.BuildRecord, error) {
	record, err := store.GetBuild(ctx, id)
	if err == nil {
		return record, nil
	}

	builds, listErr := store.ListBuilds(ctx, 0)
	if listErr != nil {
		return nil, err
	}
	var match *history.BuildRecord
	for i := range builds {
		if strings.HasPrefix(builds[i].ID, id) {
			if match != nil {
				return nil, derrors.ValidationFailed("id", "prefix matches multiple builds")
			}
			match = &builds[i]
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
