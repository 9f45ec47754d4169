package pipeline

import (
	"strconv"

	"git.home.luguber.info/inful/docrunner/internal/doctool"
	"git.home.luguber.info/inful/docrunner/internal/environment"
	"git.home.luguber.info/inful/docrunner/internal/manifest"
	"git.home.luguber.info/inful/docrunner/internal/runner"
)

// BuildRequest describes what to build and where it came from.
type BuildRequest struct {
	Project      string   // display name; derived from URL/path when empty
	URL          string   // git repository URL (exclusive with Path)
	Path         string   // local project directory (exclusive with URL)
	Ref          string   // branch or tag, empty for the default branch
	ManifestPath string   // manifest path inside the project
	OutputDir    string   // final artifact directory
	Formats      []string // overrides the manifest's formats when non-empty
	Trigger      string   // cli|api|schedule|watch
}

// BuildPlan is an immutable execution plan derived from the checked-out
// project's manifest. It captures the resolved environment and the ordered
// command stages before anything runs.
type BuildPlan struct {
	Request     BuildRequest
	Manifest    *manifest.Manifest
	Environment *environment.Environment
	SourceDir   string
	OutputDir   string // workspace output directory tools write into

	// Stages holds the ordered command stages; native stages (builtin
	// rendering, link verification) are handled by the pipeline itself.
	Stages []CommandStage
}

// CommandStage is a named, ordered list of steps executed by the runner.
type CommandStage struct {
	Name  string
	Steps []runner.Step
}

// PlanBuilder constructs a BuildPlan in the order the pipeline needs it.
type PlanBuilder struct {
	plan BuildPlan
}

// NewPlanBuilder creates a builder for the given request.
func NewPlanBuilder(req BuildRequest) *PlanBuilder {
	return &PlanBuilder{plan: BuildPlan{Request: req}}
}

// WithDirs sets the source and workspace output directories.
func (b *PlanBuilder) WithDirs(sourceDir, outputDir string) *PlanBuilder {
	b.plan.SourceDir = sourceDir
	b.plan.OutputDir = outputDir
	return b
}

// WithManifest attaches the loaded manifest.
func (b *PlanBuilder) WithManifest(m *manifest.Manifest) *PlanBuilder {
	b.plan.Manifest = m
	return b
}

// WithEnvironment attaches the resolved environment.
func (b *PlanBuilder) WithEnvironment(env *environment.Environment) *PlanBuilder {
	b.plan.Environment = env
	return b
}

// ResolveStages derives the ordered command stages from the manifest.
// build.commands replaces every default stage; otherwise the job hooks wrap
// the install and build stages in manifest order.
func (b *PlanBuilder) ResolveStages() *PlanBuilder {
	m := b.plan.Manifest
	if m == nil {
		return b
	}

	if m.HasCustomCommands() {
		b.plan.Stages = []CommandStage{
			jobStage("commands", m.Build.Commands),
		}
		return b
	}

	stages := []CommandStage{
		jobStage("post_checkout", m.Build.Jobs.PostCheckout),
		jobStage("pre_install", m.Build.Jobs.PreInstall),
		{Name: "install", Steps: doctool.InstallSteps(m)},
		jobStage("post_install", m.Build.Jobs.PostInstall),
		jobStage("pre_build", m.Build.Jobs.PreBuild),
		{Name: "build", Steps: doctool.BuildSteps(m, b.plan.SourceDir, b.plan.OutputDir)},
		jobStage("post_build", m.Build.Jobs.PostBuild),
	}

	// Empty stages are dropped so reports and metrics only show work that
	// actually ran. The build stage survives even empty: the builtin tool
	// renders natively and still reports under that stage name.
	b.plan.Stages = b.plan.Stages[:0]
	for _, stage := range stages {
		if len(stage.Steps) > 0 || stage.Name == "build" {
			b.plan.Stages = append(b.plan.Stages, stage)
		}
	}
	return b
}

// Build returns the constructed plan.
func (b *PlanBuilder) Build() *BuildPlan {
	return &b.plan
}

// jobStage numbers each command so step names in logs and reports are stable.
func jobStage(name string, commands []string) CommandStage {
	stage := CommandStage{Name: name}
	for i, cmd := range commands {
		stage.Steps = append(stage.Steps, runner.Step{
			Name:    stageStepName(name, i),
			Command: cmd,
		})
	}
	return stage
}

func stageStepName(stage string, i int) string {
	return stage + "[" + strconv.Itoa(i) + "]"
}
