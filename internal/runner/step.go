package runner

import "time"

// Step is one shell command executed during a build.
type Step struct {
	Name    string        // stable identifier, e.g. "post_install[2]"
	Command string        // passed to sh -c verbatim
	Dir     string        // working directory
	Env     []string      // KEY=VALUE pairs appended to the base environment
	Timeout time.Duration // zero uses the runner default
}

// Status is the terminal state of a step.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusCanceled Status = "canceled"
)

// StepResult records what happened to one step.
type StepResult struct {
	Name     string        `json:"name"`
	Command  string        `json:"command"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"` // bounded combined stdout+stderr tail
	Started  time.Time     `json:"started,omitempty"`
	Duration time.Duration `json:"duration"`
}
