package errors

import (
	"fmt"
	"testing"
)

// TestErrorFormatting checks both cause and no-cause render paths.
func TestErrorFormatting(t *testing.T) {
	plain := New(CategoryConfig, SeverityFatal, "build manifest not found")
	if got := plain.Error(); got != "config (fatal): build manifest not found" {
		t.Fatalf("unexpected format: %q", got)
	}

	wrapped := Wrap(fmt.Errorf("boom"), CategoryCommand, SeverityFatal, "build command failed")
	if got := wrapped.Error(); got != "command (fatal): build command failed: boom" {
		t.Fatalf("unexpected wrapped format: %q", got)
	}
}

// TestUnwrap verifies errors.As / Unwrap interop through wrapping layers.
func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("tcp timeout")
	err := WrapRetryable(cause, CategoryNetwork, SeverityError, "fetch failed")

	outer := fmt.Errorf("while cloning: %w", err)
	if !IsCategory(outer, CategoryNetwork) {
		t.Fatalf("expected network category through wrapping")
	}
	if !IsRetryable(outer) {
		t.Fatalf("expected retryable through wrapping")
	}
	if GetCategory(fmt.Errorf("plain")) != CategoryInternal {
		t.Fatalf("plain errors should classify as internal")
	}
}

// TestWithContext ensures context map accumulation.
func TestWithContext(t *testing.T) {
	err := ValidationFailed("build.os", "unknown image")
	if err.Context["field"] != "build.os" {
		t.Fatalf("missing field context: %v", err.Context)
	}
	err.WithContext("extra", 42)
	if err.Context["extra"] != 42 {
		t.Fatalf("missing extra context")
	}
}

// TestExitCodes covers the CLI adapter's category mapping.
func TestExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ValidationFailed("version", "must be 2"), 2},
		{ManifestNotFound("x.yaml"), 2},
		{UnsupportedVersion(3), 2},
		{CommandFailed("post_install", 127, fmt.Errorf("sh: not found")), 127},
		{CommandFailed("post_install", 0, fmt.Errorf("signal")), 1},
		{CheckoutFailed("https://example/repo.git", fmt.Errorf("auth")), 8},
		{DaemonError("already running"), 12},
		{fmt.Errorf("unclassified"), 1},
	}
	for _, c := range cases {
		if got := a.ExitCodeFor(c.err); got != c.want {
			t.Fatalf("err %v: expected exit %d got %d", c.err, c.want, got)
		}
	}
}

// TestGetExitCode verifies child exit code extraction.
func TestGetExitCode(t *testing.T) {
	if got := GetExitCode(fmt.Errorf("plain")); got != -1 {
		t.Fatalf("expected -1 got %d", got)
	}
	err := CommandFailed("build", 2, fmt.Errorf("sphinx error"))
	if got := GetExitCode(err); got != 2 {
		t.Fatalf("expected 2 got %d", got)
	}
}
