package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
)

const sampleManifest = `
version: 2

sphinx:
  configuration: docs/conf.py

build:
  os: ubuntu-24.04
  tools:
    python: "3.13"
  jobs:
    post_install:
      - env | sort
      - ls -la $VIRTUAL_ENV/bin || true
      - python --version && which python
      - curl -LsSf https://astral.sh/uv/install.sh | sh
      - uv sync --group docs
`

// TestParseSample parses a representative manifest end to end.
func TestParseSample(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, Version(2), m.Version)
	assert.Equal(t, ToolSphinx, m.Tool())
	assert.Equal(t, "docs/conf.py", m.Sphinx.Configuration)
	assert.Equal(t, "ubuntu-24.04", m.Build.OS)
	assert.Equal(t, "3.13", m.Build.Tools["python"])

	require.Len(t, m.Build.Jobs.PostInstall, 5)
	assert.Equal(t, "env | sort", m.Build.Jobs.PostInstall[0])
	assert.Equal(t, "uv sync --group docs", m.Build.Jobs.PostInstall[4])

	// Defaults applied.
	assert.Equal(t, []string{"html"}, m.Formats)
	assert.Equal(t, "html", m.Sphinx.Builder)
	assert.NotNil(t, m.Build.Jobs.PreInstall)
	assert.Empty(t, m.Build.Jobs.PreInstall)
}

// TestVersionHandling accepts only schema version 2, int or string.
func TestVersionHandling(t *testing.T) {
	for _, ok := range []string{"version: 2\nbuild: {os: ubuntu-24.04}", "version: \"2\"\nbuild: {os: ubuntu-24.04}"} {
		m, err := Parse([]byte(ok))
		require.NoError(t, err, ok)
		assert.Equal(t, Version(2), m.Version)
	}

	for _, bad := range []string{
		"",
		"build: {os: ubuntu-24.04}",
		"version: 1\nbuild: {os: ubuntu-24.04}",
		"version: 3\nbuild: {os: ubuntu-24.04}",
		"version: two\nbuild: {os: ubuntu-24.04}",
	} {
		_, err := Parse([]byte(bad))
		require.Error(t, err, "input %q", bad)
		assert.True(t, derrors.IsCategory(err, derrors.CategoryConfig), "input %q got %v", bad, err)
	}
}

// TestUnknownKeysRejected makes typos hard errors instead of silent no-ops.
func TestUnknownKeysRejected(t *testing.T) {
	_, err := Parse([]byte("version: 2\nbiuld: {os: ubuntu-24.04}\nbuild: {os: ubuntu-24.04}"))
	require.Error(t, err)
}

// TestDefaultTool defaults to sphinx with its standard conf path.
func TestDefaultTool(t *testing.T) {
	m, err := Parse([]byte("version: 2\nbuild: {os: ubuntu-24.04}"))
	require.NoError(t, err)
	assert.Equal(t, ToolSphinx, m.Tool())
	assert.Equal(t, "docs/conf.py", m.Sphinx.Configuration)
}

// TestToolExclusivity rejects two tool sections.
func TestToolExclusivity(t *testing.T) {
	in := `
version: 2
build: {os: ubuntu-24.04}
sphinx: {configuration: docs/conf.py}
mkdocs: {configuration: mkdocs.yml}
`
	_, err := Parse([]byte(in))
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryValidation))
}

// TestPathValidation rejects absolute and escaping paths.
func TestPathValidation(t *testing.T) {
	for _, conf := range []string{"/etc/conf.py", "../outside/conf.py", "docs/../../conf.py"} {
		m := &Manifest{
			Version: 2,
			Build:   Build{OS: "ubuntu-24.04"},
			Sphinx:  &Sphinx{Configuration: conf, Builder: "html"},
		}
		err := m.Validate()
		require.Error(t, err, conf)
		assert.True(t, derrors.IsCategory(err, derrors.CategoryValidation), conf)
	}

	// A dotted but contained path is fine.
	m := &Manifest{
		Version: 2,
		Build:   Build{OS: "ubuntu-24.04"},
		Sphinx:  &Sphinx{Configuration: "docs/../docs/conf.py", Builder: "html"},
	}
	require.NoError(t, m.Validate())
}

// TestPythonInstallValidation enforces requirements/path exclusivity.
func TestPythonInstallValidation(t *testing.T) {
	base := func(install []InstallRequirement) *Manifest {
		return &Manifest{
			Version: 2,
			Build:   Build{OS: "ubuntu-24.04"},
			Sphinx:  &Sphinx{Configuration: "docs/conf.py", Builder: "html"},
			Python:  &Python{Install: install},
		}
	}

	require.NoError(t, base([]InstallRequirement{{Requirements: "docs/requirements.txt"}}).Validate())
	require.NoError(t, base([]InstallRequirement{{Path: ".", ExtraReqs: []string{"docs"}}}).Validate())

	require.Error(t, base([]InstallRequirement{{}}).Validate())
	require.Error(t, base([]InstallRequirement{{Requirements: "r.txt", Path: "."}}).Validate())
	require.Error(t, base([]InstallRequirement{{Path: ".", Method: "conda"}}).Validate())
}

// TestCommandsJobsConflict: build.commands replaces the default stages.
func TestCommandsJobsConflict(t *testing.T) {
	in := `
version: 2
build:
  os: ubuntu-24.04
  commands:
    - make html
  jobs:
    post_install:
      - echo hi
`
	_, err := Parse([]byte(in))
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryValidation))
}

// TestUnknownFormat is rejected.
func TestUnknownFormat(t *testing.T) {
	_, err := Parse([]byte("version: 2\nformats: [docx]\nbuild: {os: ubuntu-24.04}"))
	require.Error(t, err)
}

// TestEnvExpansion resolves ${VAR} in manifest values.
func TestEnvExpansion(t *testing.T) {
	t.Setenv("DOCRUNNER_TEST_OS", "ubuntu-22.04")
	m, err := Parse([]byte("version: 2\nbuild: {os: ${DOCRUNNER_TEST_OS}}"))
	require.NoError(t, err)
	assert.Equal(t, "ubuntu-22.04", m.Build.OS)
}

// TestLoadAndInit round-trips the starter manifest through Load.
func TestLoadAndInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".docs.yaml")

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "existing file without force")
	require.NoError(t, Init(path, true))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ubuntu-24.04", m.Build.OS)
	assert.Equal(t, "3.13", m.Build.Tools["python"])
	assert.Equal(t, ToolSphinx, m.Tool())

	// Load never mutates the file.
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = Load(path)
	require.NoError(t, err)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestLoadMissing classifies the error as config with the path attached.
func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}
