// Package environment resolves a manifest's build environment (OS image and
// toolchain versions) into the concrete tool set and environment variables a
// build runs with.
package environment

import (
	"fmt"
	"path"
	"sort"
	"strings"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/manifest"
)

// toolRoot is the install prefix tool homes are derived from.
const toolRoot = "/opt/docrunner/tools"

// Environment is the fully resolved build environment.
type Environment struct {
	Image string         `yaml:"image"`
	Tools []ResolvedTool `yaml:"tools"`
	Vars  []string       `yaml:"vars"` // KEY=VALUE pairs exported to every step
}

// ResolvedTool is one toolchain pinned to a concrete version.
type ResolvedTool struct {
	Name      string `yaml:"name"`
	Requested string `yaml:"requested"`
	Resolved  string `yaml:"resolved"`
	Home      string `yaml:"home"`
}

// Resolve validates build.os and build.tools against the known tables and
// produces the environment. Resolution is deterministic: tools are ordered by
// name and aliases always resolve against a fixed table.
func Resolve(m *manifest.Manifest) (*Environment, error) {
	image, err := resolveImage(m.Build.OS)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.Build.Tools))
	for name := range m.Build.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	env := &Environment{Image: image}
	pathEntries := make([]string, 0, len(names))
	for _, name := range names {
		requested := m.Build.Tools[name]
		resolved, err := resolveToolVersion(name, requested)
		if err != nil {
			return nil, err
		}
		home := path.Join(toolRoot, name, resolved)
		env.Tools = append(env.Tools, ResolvedTool{
			Name:      name,
			Requested: requested,
			Resolved:  resolved,
			Home:      home,
		})
		pathEntries = append(pathEntries, path.Join(home, "bin"))
		env.Vars = append(env.Vars, fmt.Sprintf("%s_HOME=%s", strings.ToUpper(name), home))
	}

	env.Vars = append(env.Vars, "DOCRUNNER_IMAGE="+image)
	if len(pathEntries) > 0 {
		env.Vars = append(env.Vars, "DOCRUNNER_TOOL_PATH="+strings.Join(pathEntries, ":"))
	}
	return env, nil
}

// ToolPath returns the colon-joined bin directories of all resolved tools.
func (e *Environment) ToolPath() string {
	entries := make([]string, 0, len(e.Tools))
	for _, t := range e.Tools {
		entries = append(entries, path.Join(t.Home, "bin"))
	}
	return strings.Join(entries, ":")
}

// Tool returns the resolved tool with the given name, if present.
func (e *Environment) Tool(name string) (ResolvedTool, bool) {
	for _, t := range e.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ResolvedTool{}, false
}

func resolveImage(requested string) (string, error) {
	if requested == imageLTSLatest {
		return latestLTSImage, nil
	}
	for _, img := range knownImages {
		if img == requested {
			return img, nil
		}
	}
	accepted := append([]string{}, knownImages...)
	accepted = append(accepted, imageLTSLatest)
	return "", derrors.UnknownImage(requested, accepted)
}

func resolveToolVersion(tool, requested string) (string, error) {
	versions, ok := toolVersions[tool]
	if !ok {
		known := make([]string, 0, len(toolVersions))
		for name := range toolVersions {
			known = append(known, name)
		}
		sort.Strings(known)
		return "", derrors.New(derrors.CategoryValidation, derrors.SeverityFatal, "unknown toolchain").
			WithContext("tool", tool).
			WithContext("accepted", known)
	}

	if requested == "latest" {
		return versions[len(versions)-1], nil
	}

	// Exact match first, then major-alias: the newest table entry whose
	// major component matches (e.g. "3" -> newest 3.x).
	for _, v := range versions {
		if v == requested {
			return v, nil
		}
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if strings.HasPrefix(versions[i], requested+".") {
			return versions[i], nil
		}
	}
	return "", derrors.UnknownToolVersion(tool, requested, versions)
}
