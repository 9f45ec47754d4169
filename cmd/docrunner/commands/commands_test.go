package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/history"
)

const validManifest = `version: 2
build:
  os: ubuntu-24.04
  tools:
    python: "3.13"
sphinx:
  configuration: docs/conf.py
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".docs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testGlobal() *Global {
	return &Global{Logger: slog.Default()}
}

func TestValidateCmd(t *testing.T) {
	path := writeManifest(t, validManifest)

	cmd := ValidateCmd{Path: path}
	require.NoError(t, cmd.Run(testGlobal(), &CLI{}))
}

func TestValidateCmdRejectsBadManifest(t *testing.T) {
	path := writeManifest(t, "version: 2\nbuild: {}\n")

	cmd := ValidateCmd{Path: path}
	err := cmd.Run(testGlobal(), &CLI{})
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryValidation))
}

func TestValidateCmdMissingFile(t *testing.T) {
	cmd := ValidateCmd{Path: filepath.Join(t.TempDir(), "nope.yaml")}
	err := cmd.Run(testGlobal(), &CLI{})
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}

func TestEnvCmd(t *testing.T) {
	path := writeManifest(t, validManifest)

	cmd := EnvCmd{Path: path}
	require.NoError(t, cmd.Run(testGlobal(), &CLI{}))
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docs.yaml")
	root := &CLI{Manifest: path}

	cmd := InitCmd{}
	require.NoError(t, cmd.Run(testGlobal(), root))

	// The generated manifest must validate.
	validate := ValidateCmd{Path: path}
	require.NoError(t, validate.Run(testGlobal(), root))

	// A second init without --force must not overwrite.
	require.Error(t, cmd.Run(testGlobal(), root))
	cmd.Force = true
	require.NoError(t, cmd.Run(testGlobal(), root))
}

func TestHistoryPrune(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	cfgPath := filepath.Join(dir, "docrunner.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("history:\n  path: "+dbPath+"\n"), 0o644))

	store, err := history.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.RecordBuild(context.Background(), history.BuildRecord{
		ID: "old", Project: "demo", Outcome: "success",
		Started: time.Now().Add(-90 * 24 * time.Hour),
	}))
	require.NoError(t, store.RecordBuild(context.Background(), history.BuildRecord{
		ID: "recent", Project: "demo", Outcome: "success",
		Started: time.Now(),
	}))
	require.NoError(t, store.Close())

	root := &CLI{Config: cfgPath, Manifest: ".docs.yaml"}
	cmd := HistoryPruneCmd{OlderThan: 30 * 24 * time.Hour}
	require.NoError(t, cmd.Run(testGlobal(), root))

	store, err = history.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	builds, err := store.ListBuilds(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "recent", builds[0].ID)
}

func TestHistoryRequiresStore(t *testing.T) {
	root := &CLI{Manifest: ".docs.yaml"}
	cmd := HistoryListCmd{Limit: 5}
	err := cmd.Run(testGlobal(), root)
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv("DOCRUNNER_LOG_LEVEL", "warn")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(false))

	t.Setenv("DOCRUNNER_LOG_LEVEL", "error")
	assert.Equal(t, slog.LevelError, parseLogLevel(false))

	t.Setenv("DOCRUNNER_LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))

	// The verbose flag wins over the environment.
	t.Setenv("DOCRUNNER_LOG_LEVEL", "error")
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))
}
