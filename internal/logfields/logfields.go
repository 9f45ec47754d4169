// Package logfields centralizes canonical slog attribute names so field keys
// stay consistent across packages.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyProject    = "project"
	KeyRef        = "ref"
	KeyStage      = "stage"
	KeyStep       = "step"
	KeyTool       = "tool"
	KeyImage      = "image"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyDurationMS = "duration_ms"
	KeyOutcome    = "outcome"
	KeyExitCode   = "exit_code"
	KeyAttempt    = "attempt"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Project(name string) slog.Attr   { return slog.String(KeyProject, name) }
func Ref(ref string) slog.Attr        { return slog.String(KeyRef, ref) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Image(name string) slog.Attr     { return slog.String(KeyImage, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
