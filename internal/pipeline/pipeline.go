// Package pipeline orchestrates a full documentation build: checkout,
// environment provisioning, command stages, native rendering and artifact
// collection, with history, metrics and event publishing along the way.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docrunner/internal/config"
	"git.home.luguber.info/inful/docrunner/internal/doctool"
	"git.home.luguber.info/inful/docrunner/internal/environment"
	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/events"
	"git.home.luguber.info/inful/docrunner/internal/git"
	"git.home.luguber.info/inful/docrunner/internal/history"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/manifest"
	"git.home.luguber.info/inful/docrunner/internal/metrics"
	"git.home.luguber.info/inful/docrunner/internal/observability"
	"git.home.luguber.info/inful/docrunner/internal/retry"
	"git.home.luguber.info/inful/docrunner/internal/runner"
	"git.home.luguber.info/inful/docrunner/internal/workspace"
)

// StepRunner executes ordered command steps. Satisfied by runner.Runner.
type StepRunner interface {
	Run(ctx context.Context, steps []runner.Step) ([]runner.StepResult, error)
}

// CheckoutClient fetches a project ref into a directory and returns the
// commit hash. Satisfied by git.Client.
type CheckoutClient interface {
	Checkout(ctx context.Context, url, ref, targetDir string) (string, error)
}

// RunnerFactory builds the step runner for one build, given the resolved
// environment variables every step inherits.
type RunnerFactory func(baseEnv []string) StepRunner

// Service runs builds end to end.
type Service struct {
	cfg       *config.Config
	checkout  CheckoutClient
	store     history.Store
	publisher events.Publisher
	recorder  metrics.Recorder
	policy    retry.Policy
	newRunner RunnerFactory
}

// ServiceOption overrides a Service collaborator, mainly for tests and for
// the daemon which shares one recorder and store across builds.
type ServiceOption func(*Service)

func WithCheckoutClient(c CheckoutClient) ServiceOption {
	return func(s *Service) { s.checkout = c }
}

func WithStore(st history.Store) ServiceOption {
	return func(s *Service) { s.store = st }
}

func WithPublisher(p events.Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithRecorder(r metrics.Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithRunnerFactory(f RunnerFactory) ServiceOption {
	return func(s *Service) { s.newRunner = f }
}

// NewService wires a build service from configuration. Collaborators default
// to the real implementations; history stays disabled unless a store is
// provided or history.path is configured.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		cfg:       cfg,
		checkout:  git.NewClient(cfg.Build.CloneDepth),
		store:     history.NopStore{},
		publisher: events.NopPublisher{},
		recorder:  metrics.NoopRecorder{},
		policy:    retry.FromConfig(cfg),
	}
	s.newRunner = func(baseEnv []string) StepRunner {
		return runner.New(
			runner.WithDefaultTimeout(cfg.StepTimeout()),
			runner.WithBaseEnv(baseEnv),
		)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes one build and returns its report. The report is always
// non-nil; err carries the first fatal stage error when the build failed.
func (s *Service) Run(ctx context.Context, req BuildRequest) (*BuildReport, error) {
	buildID := uuid.NewString()
	started := time.Now()

	if req.Project == "" {
		req.Project = deriveProject(req)
	}
	ctx = observability.WithBuildID(ctx, buildID)
	ctx = observability.WithProject(ctx, req.Project)

	report := &BuildReport{
		ID:      buildID,
		Project: req.Project,
		Ref:     req.Ref,
		Started: started,
	}

	observability.InfoContext(ctx, "build started",
		logfields.Ref(req.Ref), logfields.URL(req.URL), logfields.Path(req.Path))
	s.emitStarted(ctx, req, buildID)

	ws := workspace.NewManager(s.cfg.Workspace.Dir, s.cfg.Workspace.Keep)
	err := s.execute(ctx, req, buildID, ws, report)
	if cleanupErr := ws.Cleanup(); cleanupErr != nil {
		observability.WarnContext(ctx, "workspace cleanup failed", logfields.Error(cleanupErr))
	}

	report.Duration = time.Since(started)
	report.Outcome = OutcomeSuccess
	if err != nil {
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		if ctx.Err() != nil {
			report.Outcome = OutcomeCanceled
		}
	}

	s.recorder.ObserveBuildDuration(report.Duration)
	s.recorder.IncBuildOutcome(report.Outcome)
	s.emitFinished(ctx, req, report)

	observability.InfoContext(ctx, "build finished",
		logfields.Outcome(report.Outcome),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, err
}

// execute runs the stages in order and stops at the first fatal error.
func (s *Service) execute(ctx context.Context, req BuildRequest, buildID string, ws *workspace.Manager, report *BuildReport) error {
	if err := ws.Create(buildID); err != nil {
		return err
	}

	sourceDir, err := s.stageCheckout(ctx, req, ws, report)
	if err != nil {
		return err
	}

	plan, err := s.stageProvision(ctx, req, sourceDir, ws.OutputDir(), report)
	if err != nil {
		return err
	}

	run := s.newRunner(stepEnv(req, plan))
	for _, stage := range plan.Stages {
		if err := s.runCommandStage(ctx, run, plan, stage, report); err != nil {
			return err
		}
	}

	return s.stageCollect(ctx, req, plan, report)
}

// stageCheckout fetches the project. Local paths build in place; remote URLs
// are cloned into the workspace, retrying per policy on transient failures.
func (s *Service) stageCheckout(ctx context.Context, req BuildRequest, ws *workspace.Manager, report *BuildReport) (string, error) {
	stageCtx := observability.WithStage(ctx, "checkout")
	stageStart := time.Now()

	var sourceDir string
	var err error
	if req.Path != "" {
		sourceDir, err = filepath.Abs(req.Path)
	} else {
		sourceDir = ws.SourceDir()
		var commit string
		for attempt := 1; ; attempt++ {
			commit, err = s.checkout.Checkout(stageCtx, req.URL, req.Ref, sourceDir)
			if err == nil || !s.policy.ShouldRetry(err, attempt) {
				break
			}
			delay := s.policy.Delay(attempt)
			observability.WarnContext(stageCtx, "checkout failed, retrying",
				logfields.Attempt(attempt), logfields.Error(err),
				logfields.DurationMS(float64(delay.Milliseconds())))
			s.recorder.IncRetry("checkout")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				err = ctx.Err()
			}
			if ctx.Err() != nil {
				break
			}
		}
		report.Commit = commit
	}

	s.finishStage(stageCtx, report, StageReport{
		Name:     "checkout",
		Outcome:  stageOutcome(err),
		Error:    errString(err),
		Duration: time.Since(stageStart),
	})
	return sourceDir, err
}

// stageProvision loads the manifest, resolves the environment and probes the
// host toolchains. Probe misses are warnings; the steps themselves fail if a
// tool is genuinely absent.
func (s *Service) stageProvision(ctx context.Context, req BuildRequest, sourceDir, outputDir string, report *BuildReport) (*BuildPlan, error) {
	stageCtx := observability.WithStage(ctx, "provision")
	stageStart := time.Now()

	plan, err := s.provision(stageCtx, req, sourceDir, outputDir)

	s.finishStage(stageCtx, report, StageReport{
		Name:     "provision",
		Outcome:  stageOutcome(err),
		Error:    errString(err),
		Duration: time.Since(stageStart),
	})
	return plan, err
}

func (s *Service) provision(ctx context.Context, req BuildRequest, sourceDir, outputDir string) (*BuildPlan, error) {
	manifestPath := req.ManifestPath
	if manifestPath == "" {
		manifestPath = s.cfg.Build.Manifest
	}
	m, err := manifest.Load(filepath.Join(sourceDir, manifestPath))
	if err != nil {
		return nil, err
	}
	if len(req.Formats) > 0 {
		m.Formats = req.Formats
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	env, err := environment.Resolve(m)
	if err != nil {
		return nil, err
	}
	observability.InfoContext(ctx, "environment resolved",
		logfields.Image(env.Image), logfields.Tool(string(m.Tool())))

	for _, probe := range environment.Probe(ctx, env) {
		if !probe.Found {
			observability.WarnContext(ctx, "tool not found on host",
				logfields.Tool(probe.Tool), logfields.Error(probe.Err))
		}
	}

	plan := NewPlanBuilder(req).
		WithDirs(sourceDir, outputDir).
		WithManifest(m).
		WithEnvironment(env).
		ResolveStages().
		Build()
	return plan, nil
}

// runCommandStage executes one command stage through the step runner. The
// build stage of a builtin project renders natively instead of shelling out.
func (s *Service) runCommandStage(ctx context.Context, run StepRunner, plan *BuildPlan, stage CommandStage, report *BuildReport) error {
	stageCtx := observability.WithStage(ctx, stage.Name)
	stageStart := time.Now()

	var results []runner.StepResult
	var err error
	switch {
	case stage.Name == "build" && plan.Manifest.Tool() == manifest.ToolBuiltin:
		err = s.renderBuiltin(stageCtx, plan)
	default:
		results, err = run.Run(stageCtx, stage.Steps)
		s.recorder.IncCommandsExecuted(executedCount(results))
	}

	s.finishStage(stageCtx, report, StageReport{
		Name:     stage.Name,
		Outcome:  stageOutcome(err),
		Error:    errString(err),
		Duration: time.Since(stageStart),
		Steps:    results,
	})
	return err
}

func (s *Service) renderBuiltin(ctx context.Context, plan *BuildPlan) error {
	m := plan.Manifest
	docsDir := filepath.Join(plan.SourceDir, m.Builtin.Docs)
	pages, err := doctool.RenderBuiltin(ctx, docsDir, plan.OutputDir, m.Builtin.Title)
	if err != nil {
		return err
	}
	observability.InfoContext(ctx, "rendered markdown pages",
		logfields.Path(plan.OutputDir), logfields.Tool("builtin"),
		slog.Int("pages", pages))
	return nil
}

// stageCollect verifies internal links in the rendered html and copies the
// artifacts to the configured output directory.
func (s *Service) stageCollect(ctx context.Context, req BuildRequest, plan *BuildPlan, report *BuildReport) error {
	stageCtx := observability.WithStage(ctx, "collect")
	stageStart := time.Now()

	err := s.collect(stageCtx, req, plan, report)

	s.finishStage(stageCtx, report, StageReport{
		Name:     "collect",
		Outcome:  stageOutcome(err),
		Error:    errString(err),
		Duration: time.Since(stageStart),
	})
	return err
}

func (s *Service) collect(ctx context.Context, req BuildRequest, plan *BuildPlan, report *BuildReport) error {
	htmlDir := filepath.Join(plan.OutputDir, "html")
	broken, err := doctool.VerifyLinks(htmlDir)
	if err != nil {
		observability.WarnContext(ctx, "link verification skipped", logfields.Error(err))
	}
	for _, link := range broken {
		observability.WarnContext(ctx, "broken internal link",
			logfields.Path(link.Page), logfields.URL(link.Target))
	}
	report.BrokenLinks = broken
	if len(broken) > 0 && plan.Manifest.FailOnWarning() {
		return derrors.DocToolFailed(string(plan.Manifest.Tool()),
			fmt.Errorf("%d broken internal links", len(broken)))
	}

	dest := req.OutputDir
	if dest == "" {
		dest = s.cfg.Build.OutputDir
	}
	if dest == "" {
		report.OutputDir = plan.OutputDir
		return nil
	}
	if err := copyTree(plan.OutputDir, dest); err != nil {
		return derrors.WorkspaceError("collect artifacts", err)
	}
	report.OutputDir = dest
	return nil
}

// finishStage records one stage everywhere it is observed: report, log,
// metrics, history and the event bus.
func (s *Service) finishStage(ctx context.Context, report *BuildReport, stage StageReport) {
	report.Stages = append(report.Stages, stage)

	if stage.Error != "" {
		observability.ErrorContext(ctx, "stage failed",
			logfields.Stage(stage.Name), slog.String(logfields.KeyError, stage.Error),
			logfields.DurationMS(float64(stage.Duration.Milliseconds())))
	} else {
		observability.InfoContext(ctx, "stage completed",
			logfields.Stage(stage.Name),
			logfields.DurationMS(float64(stage.Duration.Milliseconds())))
	}

	s.recorder.ObserveStageDuration(stage.Name, stage.Duration)
	s.recorder.IncStageResult(stage.Name, metrics.ResultLabel(stage.Outcome))

	payload, _ := json.Marshal(map[string]string{
		"stage":   stage.Name,
		"outcome": stage.Outcome,
		"error":   stage.Error,
	})
	if err := s.store.AppendEvent(ctx, report.ID, history.EventStageCompleted, payload, nil); err != nil {
		observability.WarnContext(ctx, "history append failed", logfields.Error(err))
	}
	s.publisher.StageCompleted(ctx, events.BuildEvent{
		BuildID:   report.ID,
		Project:   report.Project,
		Ref:       report.Ref,
		Stage:     stage.Name,
		Outcome:   stage.Outcome,
		Error:     stage.Error,
		Timestamp: time.Now(),
	})
}

func (s *Service) emitStarted(ctx context.Context, req BuildRequest, buildID string) {
	meta := map[string]string{"project": req.Project, "trigger": req.Trigger}
	if err := s.store.AppendEvent(ctx, buildID, history.EventBuildStarted, nil, meta); err != nil {
		observability.WarnContext(ctx, "history append failed", logfields.Error(err))
	}
	s.publisher.BuildStarted(ctx, events.BuildEvent{
		BuildID:   buildID,
		Project:   req.Project,
		Ref:       req.Ref,
		Timestamp: time.Now(),
	})
}

func (s *Service) emitFinished(ctx context.Context, req BuildRequest, report *BuildReport) {
	payload, _ := json.Marshal(map[string]string{
		"outcome": report.Outcome,
		"error":   report.Error,
	})
	if err := s.store.AppendEvent(ctx, report.ID, history.EventBuildFinished, payload, nil); err != nil {
		observability.WarnContext(ctx, "history append failed", logfields.Error(err))
	}
	rec := history.BuildRecord{
		ID:       report.ID,
		Project:  report.Project,
		Ref:      report.Ref,
		Commit:   report.Commit,
		Outcome:  report.Outcome,
		Error:    report.Error,
		Started:  report.Started,
		Duration: report.Duration,
	}
	if err := s.store.RecordBuild(ctx, rec); err != nil {
		observability.WarnContext(ctx, "history record failed", logfields.Error(err))
	}
	s.publisher.BuildFinished(ctx, events.BuildEvent{
		BuildID:   report.ID,
		Project:   report.Project,
		Ref:       report.Ref,
		Outcome:   report.Outcome,
		Error:     report.Error,
		Timestamp: time.Now(),
	})
}

// stepEnv is the environment every step inherits: the resolved toolchain
// vars plus the well-known build vars.
func stepEnv(req BuildRequest, plan *BuildPlan) []string {
	version := req.Ref
	if version == "" {
		version = "latest"
	}
	env := append([]string{}, plan.Environment.Vars...)
	return append(env,
		"DOCRUNNER_OUTPUT="+plan.OutputDir,
		"DOCRUNNER_VERSION="+version,
	)
}

func executedCount(results []runner.StepResult) int {
	n := 0
	for _, r := range results {
		if r.Status != runner.StatusSkipped {
			n++
		}
	}
	return n
}

// deriveProject names the build after the last path element of its source.
func deriveProject(req BuildRequest) string {
	if req.URL == "" && req.Path == "" {
		return "docs"
	}
	src := req.URL
	if src == "" {
		abs, err := filepath.Abs(req.Path)
		if err == nil {
			src = abs
		} else {
			src = req.Path
		}
	}
	base := filepath.Base(src)
	if ext := filepath.Ext(base); ext == ".git" {
		base = base[:len(base)-len(ext)]
	}
	if base == "." || base == "/" || base == "" {
		return "docs"
	}
	return base
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
