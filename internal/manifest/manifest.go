// Package manifest loads and validates the project build manifest: the
// versioned YAML file that declares the build environment (OS image and
// toolchain versions), the documentation tool, and the per-phase command
// lists the runner executes.
package manifest

import "gopkg.in/yaml.v3"

// Manifest represents the version 2 build manifest.
type Manifest struct {
	Version Version        `yaml:"version"`
	Formats []string       `yaml:"formats,omitempty"`
	Build   Build          `yaml:"build"`
	Python  *Python        `yaml:"python,omitempty"`
	Sphinx  *Sphinx        `yaml:"sphinx,omitempty"`
	MkDocs  *MkDocs        `yaml:"mkdocs,omitempty"`
	Builtin *Builtin       `yaml:"builtin,omitempty"`
	Search  map[string]any `yaml:"search,omitempty"` // passed through to the docs tool, not interpreted
}

// Version is the manifest schema version. YAML emitters disagree on whether
// the scalar is quoted, so both the integer 2 and the string "2" decode.
type Version int

// UnmarshalYAML accepts integer or numeric-string scalars.
func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	var n int
	if err := node.Decode(&n); err == nil {
		*v = Version(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "2" {
		*v = 2
	} else {
		*v = 0
	}
	return nil
}

// Build declares the environment and user command hooks.
type Build struct {
	OS    string            `yaml:"os"`
	Tools map[string]string `yaml:"tools,omitempty"` // toolchain name -> version alias
	Jobs  Jobs              `yaml:"jobs,omitempty"`
	// Commands replaces the default install/build stages entirely when set.
	Commands []string `yaml:"commands,omitempty"`
}

// Jobs holds user commands run around the built-in stages, in declaration order.
type Jobs struct {
	PostCheckout []string `yaml:"post_checkout,omitempty"`
	PreInstall   []string `yaml:"pre_install,omitempty"`
	PostInstall  []string `yaml:"post_install,omitempty"`
	PreBuild     []string `yaml:"pre_build,omitempty"`
	PostBuild    []string `yaml:"post_build,omitempty"`
}

// Python configures dependency installation for python-based docs tools.
type Python struct {
	Install []InstallRequirement `yaml:"install,omitempty"`
}

// InstallRequirement is one python dependency source.
type InstallRequirement struct {
	Requirements string   `yaml:"requirements,omitempty"` // requirements file path
	Path         string   `yaml:"path,omitempty"`         // local package path
	Method       string   `yaml:"method,omitempty"`       // pip (default)
	ExtraReqs    []string `yaml:"extra_requirements,omitempty"`
}

// Sphinx configures a Sphinx documentation build.
type Sphinx struct {
	Configuration string `yaml:"configuration,omitempty"` // conf.py path
	Builder       string `yaml:"builder,omitempty"`       // html|dirhtml|singlehtml
	FailOnWarning bool   `yaml:"fail_on_warning,omitempty"`
}

// MkDocs configures a MkDocs documentation build.
type MkDocs struct {
	Configuration string `yaml:"configuration,omitempty"` // mkdocs.yml path
	FailOnWarning bool   `yaml:"fail_on_warning,omitempty"`
}

// Builtin configures the native Markdown renderer (no external interpreter).
type Builtin struct {
	Docs          string `yaml:"docs,omitempty"`  // docs source directory
	Title         string `yaml:"title,omitempty"` // site title
	FailOnWarning bool   `yaml:"fail_on_warning,omitempty"`
}

// Tool names the documentation tool a manifest selects.
type Tool string

const (
	ToolSphinx  Tool = "sphinx"
	ToolMkDocs  Tool = "mkdocs"
	ToolBuiltin Tool = "builtin"
)

// Tool returns the selected documentation tool. Validation guarantees at most
// one tool section is present; an unset section defaults to sphinx.
func (m *Manifest) Tool() Tool {
	switch {
	case m.MkDocs != nil:
		return ToolMkDocs
	case m.Builtin != nil:
		return ToolBuiltin
	default:
		return ToolSphinx
	}
}

// FailOnWarning reports whether the selected tool escalates warnings
// (tool warnings, broken internal links) to build failures.
func (m *Manifest) FailOnWarning() bool {
	switch m.Tool() {
	case ToolMkDocs:
		return m.MkDocs.FailOnWarning
	case ToolBuiltin:
		return m.Builtin.FailOnWarning
	default:
		return m.Sphinx != nil && m.Sphinx.FailOnWarning
	}
}

// HasCustomCommands reports whether build.commands replaces the default stages.
func (m *Manifest) HasCustomCommands() bool {
	return len(m.Build.Commands) > 0
}
