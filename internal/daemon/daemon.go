// Package daemon runs the build service in long-lived mode: an HTTP API for
// triggering and inspecting builds, an optional periodic schedule, and an
// optional manifest watcher. Builds are single-flight; triggers arriving
// while a build runs are coalesced into one follow-up build.
package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docrunner/internal/config"
	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/events"
	"git.home.luguber.info/inful/docrunner/internal/history"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/metrics"
	"git.home.luguber.info/inful/docrunner/internal/observability"
	"git.home.luguber.info/inful/docrunner/internal/pipeline"
)

// Daemon is the long-running build service for one project.
type Daemon struct {
	cfg      *config.Config
	request  pipeline.BuildRequest // template for every triggered build
	svc      *pipeline.Service
	store    history.Store
	recorder metrics.Recorder
	pub      events.Publisher

	server    *Server
	scheduler *Scheduler
	watcher   *ManifestWatcher

	triggers chan trigger // capacity 1 coalesces trigger bursts
	started  time.Time

	mu         sync.RWMutex
	building   bool
	lastReport *pipeline.BuildReport
}

// New assembles a daemon from configuration. The request acts as the
// template for every build the daemon runs.
func New(cfg *config.Config, req pipeline.BuildRequest) (*Daemon, error) {
	d := &Daemon{
		cfg:      cfg,
		request:  req,
		store:    history.NopStore{},
		recorder: metrics.NoopRecorder{},
		pub:      events.NopPublisher{},
		triggers: make(chan trigger, 1),
	}
	if req.Trigger == "" {
		d.request.Trigger = "api"
	}

	if cfg.History.Path != "" {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CategoryStorage, derrors.SeverityFatal, "open history store")
		}
		d.store = store
	}
	if cfg.Daemon.MetricsEnabled {
		d.recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
	}
	pub, err := events.NewPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}
	d.pub = pub

	svc, err := pipeline.NewService(cfg,
		pipeline.WithStore(d.store),
		pipeline.WithRecorder(d.recorder),
		pipeline.WithPublisher(d.pub),
	)
	if err != nil {
		return nil, err
	}
	d.svc = svc
	d.server = NewServer(cfg.Daemon.Listen, d)
	return d, nil
}

// Run serves until ctx is canceled, then shuts everything down in order.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()
	observability.InfoContext(ctx, "daemon starting",
		logfields.URL(d.cfg.Daemon.Listen), logfields.Project(d.request.Project))

	if err := d.server.Start(ctx); err != nil {
		return err
	}

	if interval := d.cfg.ScheduleInterval(); interval > 0 {
		sched, err := NewScheduler()
		if err != nil {
			return err
		}
		if err := sched.SchedulePeriodic(interval, func() { d.Trigger("schedule") }); err != nil {
			return err
		}
		sched.Start()
		d.scheduler = sched
	}

	if d.cfg.Daemon.WatchManifest && d.request.Path != "" {
		watcher, err := NewManifestWatcher(d.manifestPath(), d.cfg.WatchDebounce(), func() {
			d.Trigger("watch")
		})
		if err != nil {
			return err
		}
		watcher.Start(ctx)
		d.watcher = watcher
	}

	d.loop(ctx)
	return d.shutdown()
}

// trigger is one build request; ref optionally overrides the template ref
// for remote projects.
type trigger struct {
	source string
	ref    string
}

// Trigger requests a build. It reports false when a trigger is already
// pending; the pending build will pick up the same state anyway.
func (d *Daemon) Trigger(source string) bool {
	return d.TriggerRef(source, "")
}

// TriggerRef requests a build of a specific ref.
func (d *Daemon) TriggerRef(source, ref string) bool {
	select {
	case d.triggers <- trigger{source: source, ref: ref}:
		return true
	default:
		return false
	}
}

// loop serializes builds: one at a time, in trigger order.
func (d *Daemon) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tr := <-d.triggers:
			d.runBuild(ctx, tr)
		}
	}
}

func (d *Daemon) runBuild(ctx context.Context, tr trigger) {
	d.mu.Lock()
	d.building = true
	d.mu.Unlock()

	req := d.request
	req.Trigger = tr.source
	if tr.ref != "" && req.URL != "" {
		req.Ref = tr.ref
	}
	report, err := d.svc.Run(ctx, req)
	if err != nil {
		observability.ErrorContext(ctx, "build failed",
			logfields.BuildID(report.ID), logfields.Error(err))
	}

	d.mu.Lock()
	d.building = false
	d.lastReport = report
	d.mu.Unlock()
}

func (d *Daemon) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := d.server.Stop(shutdownCtx)
	if d.scheduler != nil {
		if stopErr := d.scheduler.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.pub.Close()
	if closeErr := d.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	observability.InfoContext(context.Background(), "daemon stopped")
	return err
}

// Status is the health endpoint payload.
type Status struct {
	Status      string                `json:"status"`
	Uptime      string                `json:"uptime"`
	Building    bool                  `json:"building"`
	LastBuild   *pipeline.BuildReport `json:"last_build,omitempty"`
	WatchActive bool                  `json:"watch_active"`
}

func (d *Daemon) status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Status{
		Status:      "ok",
		Uptime:      time.Since(d.started).Truncate(time.Second).String(),
		Building:    d.building,
		LastBuild:   d.lastReport,
		WatchActive: d.watcher != nil,
	}
}

func (d *Daemon) manifestPath() string {
	manifestPath := d.request.ManifestPath
	if manifestPath == "" {
		manifestPath = d.cfg.Build.Manifest
	}
	if filepath.IsAbs(manifestPath) {
		return manifestPath
	}
	return filepath.Join(d.request.Path, manifestPath)
}
