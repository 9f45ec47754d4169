package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for
// the docrunner CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate process exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var re *RunnerError
	if stderrors.As(err, &re) {
		return a.exitCodeFromRunner(re)
	}
	return 1
}

// exitCodeFromRunner maps RunnerError categories to exit codes.
func (a *CLIErrorAdapter) exitCodeFromRunner(err *RunnerError) int {
	switch err.Category {
	case CategoryValidation, CategoryConfig:
		return 2 // Invalid manifest / configuration
	case CategoryCommand:
		// Surface the failed build command's own exit code when known.
		if err.ExitCode > 0 {
			return err.ExitCode
		}
		return 1
	case CategoryCheckout, CategoryNetwork:
		return 8 // External system error
	case CategoryProvision, CategoryDocTool:
		return 11 // Build environment / tool error
	case CategoryDaemon, CategoryStorage:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1
	}
}

// FormatError formats an error for user-facing display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	var re *RunnerError
	if stderrors.As(err, &re) {
		return a.formatRunner(re)
	}
	return fmt.Sprintf("Error: %v", err)
}

// formatRunner formats a RunnerError for display.
func (a *CLIErrorAdapter) formatRunner(err *RunnerError) string {
	if a.verbose {
		return err.Error()
	}
	msg := err.Message
	if field, ok := err.Context["field"]; ok {
		msg = fmt.Sprintf("%s (%v)", msg, field)
	}
	if reason, ok := err.Context["reason"]; ok {
		msg = fmt.Sprintf("%s: %v", msg, reason)
	}
	if err.Cause != nil {
		return fmt.Sprintf("Error: %s: %v", msg, err.Cause)
	}
	return fmt.Sprintf("Error: %s", msg)
}

// Handle logs the error and returns the exit code the caller should use.
func (a *CLIErrorAdapter) Handle(err error) int {
	if err == nil {
		return 0
	}
	a.logger.Error(a.FormatError(err), slog.String("category", string(GetCategory(err))))
	return a.ExitCodeFor(err)
}
