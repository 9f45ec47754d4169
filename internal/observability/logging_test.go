package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContextAccumulation verifies values stack without clobbering earlier ones.
func TestContextAccumulation(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "b-123")
	ctx = WithProject(ctx, "docs")
	ctx = WithStage(ctx, "provision")

	lc := GetContext(ctx)
	assert.Equal(t, "b-123", lc.BuildID)
	assert.Equal(t, "docs", lc.Project)
	assert.Equal(t, "provision", lc.Stage)

	// Overwriting one field keeps the others.
	ctx = WithStage(ctx, "build")
	lc = GetContext(ctx)
	assert.Equal(t, "build", lc.Stage)
	assert.Equal(t, "b-123", lc.BuildID)
}

// TestEmptyContext returns a zero LogContext rather than panicking.
func TestEmptyContext(t *testing.T) {
	lc := GetContext(context.Background())
	assert.Empty(t, lc.BuildID)
	assert.Empty(t, lc.Project)
	assert.Empty(t, lc.Stage)
}

// TestLogAttrsEmitted checks context attributes land in the log output.
func TestLogAttrsEmitted(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	ctx := WithStage(WithBuildID(context.Background(), "b-9"), "checkout")
	InfoContext(ctx, "cloning", slog.String("url", "https://example/repo.git"))

	out := buf.String()
	require.NotEmpty(t, out)
	assert.True(t, strings.Contains(out, "build.id=b-9"), out)
	assert.True(t, strings.Contains(out, "stage=checkout"), out)
	assert.True(t, strings.Contains(out, "url=https://example/repo.git"), out)
}
