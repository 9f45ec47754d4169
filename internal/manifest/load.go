package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
)

// Load reads, expands, parses and validates a build manifest from path.
// The file on disk is never modified.
func Load(path string) (*Manifest, error) {
	// Best effort .env loading so ${VAR} references can be resolved locally.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, derrors.ManifestNotFound(path)
		}
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "read build manifest").
			WithContext("path", path)
	}
	return Parse(data)
}

// Parse decodes manifest bytes. Unknown top-level keys are rejected so typos
// surface as errors instead of silently ignored configuration.
func Parse(data []byte) (*Manifest, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	// Peek at the version first so version errors beat strict-decode errors
	// and the user gets a precise message for v1/v3 files.
	var versionProbe struct {
		Version any `yaml:"version"`
	}
	if err := yaml.Unmarshal(expanded, &versionProbe); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "parse build manifest")
	}
	if err := checkVersion(versionProbe.Version); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, derrors.UnsupportedVersion(nil)
		}
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "parse build manifest")
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// checkVersion accepts only schema version 2 (integer or the string "2").
func checkVersion(v any) error {
	switch version := v.(type) {
	case nil:
		return derrors.UnsupportedVersion(nil)
	case int:
		if version == 2 {
			return nil
		}
	case string:
		if version == "2" {
			return nil
		}
	}
	err := derrors.UnsupportedVersion(v)
	if n, ok := v.(int); ok && n > 2 {
		err = err.WithContext("hint", fmt.Sprintf("version %d is newer than this runner supports", n))
	}
	return err
}

func (m *Manifest) applyDefaults() {
	if len(m.Formats) == 0 {
		m.Formats = []string{"html"}
	}
	// Sphinx is the default tool; give the implicit section its defaults too.
	if m.Sphinx == nil && m.MkDocs == nil && m.Builtin == nil {
		m.Sphinx = &Sphinx{}
	}
	if m.Sphinx != nil {
		if m.Sphinx.Configuration == "" {
			m.Sphinx.Configuration = "docs/conf.py"
		}
		if m.Sphinx.Builder == "" {
			m.Sphinx.Builder = "html"
		}
	}
	if m.MkDocs != nil && m.MkDocs.Configuration == "" {
		m.MkDocs.Configuration = "mkdocs.yml"
	}
	if m.Builtin != nil && m.Builtin.Docs == "" {
		m.Builtin.Docs = "docs"
	}
	// Job lists are never nil after defaulting so callers can range freely.
	if m.Build.Jobs.PostCheckout == nil {
		m.Build.Jobs.PostCheckout = []string{}
	}
	if m.Build.Jobs.PreInstall == nil {
		m.Build.Jobs.PreInstall = []string{}
	}
	if m.Build.Jobs.PostInstall == nil {
		m.Build.Jobs.PostInstall = []string{}
	}
	if m.Build.Jobs.PreBuild == nil {
		m.Build.Jobs.PreBuild = []string{}
	}
	if m.Build.Jobs.PostBuild == nil {
		m.Build.Jobs.PostBuild = []string{}
	}
}
