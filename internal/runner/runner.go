// Package runner executes build steps strictly in sequence, the way the
// manifest declares them: one process at a time, in order, aborting the
// remainder on the first failure.
package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

const (
	// defaultOutputLimit bounds captured combined output per step so a
	// runaway command cannot exhaust memory.
	defaultOutputLimit = 64 * 1024

	// waitDelay is how long a killed process group gets before Wait gives
	// up on its output pipes. The group kill reaches forked children, so
	// this only covers processes that re-parented out of the group.
	waitDelay = 2 * time.Second
)

// Runner executes steps sequentially with a shared base environment.
type Runner struct {
	defaultTimeout time.Duration
	baseEnv        []string
	outputLimit    int
	shell          string
}

// Option configures a Runner.
type Option func(*Runner)

// WithDefaultTimeout sets the per-step timeout applied when a step has none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

// WithBaseEnv appends KEY=VALUE pairs to every step's environment.
func WithBaseEnv(env []string) Option {
	return func(r *Runner) { r.baseEnv = append(r.baseEnv, env...) }
}

// WithOutputLimit overrides the per-step captured-output bound.
func WithOutputLimit(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.outputLimit = n
		}
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		defaultTimeout: 30 * time.Minute,
		outputLimit:    defaultOutputLimit,
		shell:          "sh",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes steps in declaration order. It stops at the first failure and
// returns every result gathered so far, with the remaining steps marked
// skipped. The returned error is nil only when every step succeeded.
func (r *Runner) Run(ctx context.Context, steps []Step) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			results = append(results, r.skipRemaining(steps[i:], StatusCanceled)...)
			return results, derrors.Wrap(err, derrors.CategoryCommand, derrors.SeverityFatal, "build canceled").
				WithContext("step", step.Name)
		}

		res := r.runStep(ctx, step)
		results = append(results, res)

		switch res.Status {
		case StatusSuccess:
			continue
		case StatusCanceled:
			results = append(results, r.skipRemaining(steps[i+1:], StatusCanceled)...)
			return results, derrors.Wrap(ctx.Err(), derrors.CategoryCommand, derrors.SeverityFatal, "build canceled").
				WithContext("step", step.Name)
		default:
			results = append(results, r.skipRemaining(steps[i+1:], StatusSkipped)...)
			err := derrors.CommandFailed(step.Name, res.ExitCode, errors.New(lastLine(res.Output))).
				WithContext("command", step.Command)
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) StepResult {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := StepResult{
		Name:    step.Name,
		Command: step.Command,
		Started: time.Now(),
	}

	observability.InfoContext(ctx, "Running build step",
		logfields.Step(step.Name))

	out := newTailBuffer(r.outputLimit)
	cmd := exec.CommandContext(stepCtx, r.shell, "-c", step.Command)
	cmd.Dir = step.Dir
	cmd.Env = append(append(os.Environ(), r.baseEnv...), step.Env...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay

	// Each step runs in its own process group so timeout and cancellation
	// reach the whole shell pipeline, not just sh itself. Children forked
	// by the step would otherwise hold the output pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	err := cmd.Run()
	res.Duration = time.Since(res.Started)
	res.Output = out.String()

	switch {
	case err == nil:
		res.Status = StatusSuccess
	case ctx.Err() != nil:
		// The build context (not the per-step timeout) was canceled.
		res.Status = StatusCanceled
		observability.WarnContext(ctx, "Build step canceled",
			logfields.Step(step.Name), logfields.DurationMS(float64(res.Duration.Milliseconds())))
	default:
		res.Status = StatusFailed
		res.ExitCode = exitCodeOf(err)
		observability.ErrorContext(ctx, "Build step failed",
			logfields.Step(step.Name),
			logfields.ExitCode(res.ExitCode),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}
	return res
}

func (r *Runner) skipRemaining(steps []Step, status Status) []StepResult {
	skipped := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		skipped = append(skipped, StepResult{Name: s.Name, Command: s.Command, Status: status})
	}
	return skipped
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func lastLine(output string) string {
	lines := nonEmptyLines(output)
	if len(lines) == 0 {
		return "command exited with a failure status"
	}
	return lines[len(lines)-1]
}
