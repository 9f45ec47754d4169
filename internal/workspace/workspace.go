// Package workspace manages the per-build scratch directories projects are
// checked out and built in.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docrunner/internal/logfields"
)

// Manager handles build workspace directories (ephemeral or kept).
type Manager struct {
	baseDir string
	dir     string
	keep    bool
}

// NewManager creates a workspace manager rooted at baseDir. An empty baseDir
// uses the system temp directory. When keep is true, Cleanup leaves the
// workspace on disk for inspection.
func NewManager(baseDir string, keep bool) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir, keep: keep}
}

// Create creates a workspace directory unique to buildID.
func (m *Manager) Create(buildID string) error {
	dir := filepath.Join(m.baseDir, fmt.Sprintf("docrunner-%s", buildID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create workspace directory: %w", err)
	}
	m.dir = dir
	slog.Debug("Created build workspace", logfields.Path(dir))
	return nil
}

// Path returns the workspace directory, empty before Create.
func (m *Manager) Path() string {
	return m.dir
}

// SourceDir returns the project checkout directory inside the workspace.
func (m *Manager) SourceDir() string {
	if m.dir == "" {
		return ""
	}
	return filepath.Join(m.dir, "source")
}

// OutputDir returns the artifact output directory inside the workspace.
func (m *Manager) OutputDir() string {
	if m.dir == "" {
		return ""
	}
	return filepath.Join(m.dir, "output")
}

// Cleanup removes the workspace unless it is configured to be kept.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if m.keep {
		slog.Info("Keeping build workspace", logfields.Path(m.dir))
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("remove workspace directory: %w", err)
	}
	slog.Debug("Removed build workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
