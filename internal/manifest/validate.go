package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
)

var knownFormats = map[string]bool{
	"html":    true,
	"htmlzip": true,
	"pdf":     true,
	"epub":    true,
}

// Validate checks structural manifest invariants. Environment values
// (build.os image, tool versions) are validated by environment.Resolve, which
// owns the version tables.
func (m *Manifest) Validate() error {
	if m.Version != 2 {
		return derrors.UnsupportedVersion(int(m.Version))
	}
	if m.Build.OS == "" {
		return derrors.ValidationFailed("build.os", "an OS image is required")
	}

	toolSections := 0
	if m.Sphinx != nil {
		toolSections++
	}
	if m.MkDocs != nil {
		toolSections++
	}
	if m.Builtin != nil {
		toolSections++
	}
	if toolSections > 1 {
		return derrors.ValidationFailed("sphinx/mkdocs/builtin", "only one documentation tool section is allowed")
	}

	for _, f := range m.Formats {
		if !knownFormats[f] {
			return derrors.ValidationFailed("formats", fmt.Sprintf("unknown format %q", f))
		}
	}

	if m.HasCustomCommands() && m.Build.Jobs.hasAny() {
		return derrors.ValidationFailed("build.commands", "build.commands replaces the default stages and cannot be combined with build.jobs")
	}

	if m.Sphinx != nil {
		if err := validateProjectPath("sphinx.configuration", m.Sphinx.Configuration); err != nil {
			return err
		}
		switch m.Sphinx.Builder {
		case "html", "dirhtml", "singlehtml":
		default:
			return derrors.ValidationFailed("sphinx.builder", fmt.Sprintf("unknown builder %q", m.Sphinx.Builder))
		}
	}
	if m.MkDocs != nil {
		if err := validateProjectPath("mkdocs.configuration", m.MkDocs.Configuration); err != nil {
			return err
		}
	}
	if m.Builtin != nil {
		if err := validateProjectPath("builtin.docs", m.Builtin.Docs); err != nil {
			return err
		}
	}

	if m.Python != nil {
		for i, req := range m.Python.Install {
			hasReqs := req.Requirements != ""
			hasPath := req.Path != ""
			if hasReqs == hasPath {
				return derrors.ValidationFailed(
					fmt.Sprintf("python.install[%d]", i),
					"exactly one of requirements or path is required")
			}
			if hasReqs {
				if err := validateProjectPath(fmt.Sprintf("python.install[%d].requirements", i), req.Requirements); err != nil {
					return err
				}
			}
			if req.Method != "" && req.Method != "pip" {
				return derrors.ValidationFailed(
					fmt.Sprintf("python.install[%d].method", i),
					fmt.Sprintf("unknown install method %q", req.Method))
			}
		}
	}

	return nil
}

func (j Jobs) hasAny() bool {
	return len(j.PostCheckout)+len(j.PreInstall)+len(j.PostInstall)+len(j.PreBuild)+len(j.PostBuild) > 0
}

// validateProjectPath rejects absolute paths and traversal outside the
// project root.
func validateProjectPath(field, path string) error {
	if path == "" {
		return derrors.ValidationFailed(field, "a path is required")
	}
	if filepath.IsAbs(path) {
		return derrors.ValidationFailed(field, "path must be relative to the project root")
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return derrors.ValidationFailed(field, "path escapes the project root")
	}
	return nil
}
