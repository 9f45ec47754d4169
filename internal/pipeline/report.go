package pipeline

import (
	"time"

	"git.home.luguber.info/inful/docrunner/internal/doctool"
	"git.home.luguber.info/inful/docrunner/internal/runner"
)

// Build outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// StageReport is the result of one pipeline stage.
type StageReport struct {
	Name     string              `json:"name"`
	Outcome  string              `json:"outcome"`
	Error    string              `json:"error,omitempty"`
	Duration time.Duration       `json:"duration"`
	Steps    []runner.StepResult `json:"steps,omitempty"`
}

// BuildReport is the full result of one build, returned to the CLI and the
// daemon and summarized into the history store.
type BuildReport struct {
	ID          string               `json:"id"`
	Project     string               `json:"project"`
	Ref         string               `json:"ref,omitempty"`
	Commit      string               `json:"commit,omitempty"`
	Outcome     string               `json:"outcome"`
	Error       string               `json:"error,omitempty"`
	Started     time.Time            `json:"started"`
	Duration    time.Duration        `json:"duration"`
	Stages      []StageReport        `json:"stages"`
	OutputDir   string               `json:"output_dir,omitempty"`
	BrokenLinks []doctool.BrokenLink `json:"broken_links,omitempty"`
}

// StageOutcome maps a stage error to its report outcome.
func stageOutcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return OutcomeFailed
}
