// Package doctool turns the manifest's documentation tool selection into
// executable build steps, and provides a native Markdown renderer for
// projects that want no external toolchain at all.
package doctool

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docrunner/internal/manifest"
	"git.home.luguber.info/inful/docrunner/internal/runner"
)

// InstallSteps builds the dependency installation steps for python-based
// tools from the manifest's python.install list, in declaration order.
func InstallSteps(m *manifest.Manifest) []runner.Step {
	var steps []runner.Step
	if m.Python == nil {
		return steps
	}
	for i, req := range m.Python.Install {
		name := fmt.Sprintf("python.install[%d]", i)
		switch {
		case req.Requirements != "":
			steps = append(steps, runner.Step{
				Name:    name,
				Command: fmt.Sprintf("python -m pip install --upgrade -r %s", shellQuote(req.Requirements)),
			})
		case req.Path != "":
			target := req.Path
			if len(req.ExtraReqs) > 0 {
				target = fmt.Sprintf("%s[%s]", req.Path, strings.Join(req.ExtraReqs, ","))
			}
			steps = append(steps, runner.Step{
				Name:    name,
				Command: fmt.Sprintf("python -m pip install --upgrade %s", shellQuote(target)),
			})
		}
	}
	return steps
}

// BuildSteps returns the documentation build commands for external tools.
// The builtin tool produces no steps; callers render it natively with
// RenderBuiltin.
func BuildSteps(m *manifest.Manifest, srcDir, outDir string) []runner.Step {
	switch m.Tool() {
	case manifest.ToolSphinx:
		return sphinxSteps(m, srcDir, outDir)
	case manifest.ToolMkDocs:
		return mkdocsSteps(m, srcDir, outDir)
	default:
		return nil
	}
}

func sphinxSteps(m *manifest.Manifest, srcDir, outDir string) []runner.Step {
	confDir := filepath.Dir(filepath.Join(srcDir, m.Sphinx.Configuration))
	warnFlag := ""
	if m.Sphinx.FailOnWarning {
		warnFlag = " -W --keep-going"
	}

	var steps []runner.Step
	for _, format := range m.Formats {
		formatOut := filepath.Join(outDir, format)
		switch format {
		case "html":
			steps = append(steps, runner.Step{
				Name: "sphinx." + format,
				Command: fmt.Sprintf("python -m sphinx -b %s%s %s %s",
					m.Sphinx.Builder, warnFlag, shellQuote(confDir), shellQuote(formatOut)),
			})
		case "htmlzip":
			htmlOut := filepath.Join(outDir, "htmlzip-src")
			steps = append(steps,
				runner.Step{
					Name: "sphinx.htmlzip.render",
					Command: fmt.Sprintf("python -m sphinx -b html%s %s %s",
						warnFlag, shellQuote(confDir), shellQuote(htmlOut)),
				},
				runner.Step{
					Name: "sphinx.htmlzip.archive",
					Command: fmt.Sprintf("mkdir -p %s && cd %s && zip -qr %s .",
						shellQuote(formatOut), shellQuote(htmlOut), shellQuote(filepath.Join(formatOut, "docs.zip"))),
				},
			)
		case "pdf":
			steps = append(steps, runner.Step{
				Name: "sphinx.pdf",
				Command: fmt.Sprintf("python -m sphinx -M latexpdf %s %s%s",
					shellQuote(confDir), shellQuote(formatOut), warnFlag),
			})
		case "epub":
			steps = append(steps, runner.Step{
				Name: "sphinx.epub",
				Command: fmt.Sprintf("python -m sphinx -b epub%s %s %s",
					warnFlag, shellQuote(confDir), shellQuote(formatOut)),
			})
		}
	}
	return steps
}

func mkdocsSteps(m *manifest.Manifest, srcDir, outDir string) []runner.Step {
	strict := ""
	if m.MkDocs.FailOnWarning {
		strict = " --strict"
	}
	// MkDocs renders html only; other requested formats have no mkdocs
	// equivalent and are ignored.
	return []runner.Step{{
		Name: "mkdocs.html",
		Command: fmt.Sprintf("python -m mkdocs build%s -f %s -d %s",
			strict,
			shellQuote(filepath.Join(srcDir, m.MkDocs.Configuration)),
			shellQuote(filepath.Join(outDir, "html"))),
	}}
}

// shellQuote single-quotes a path for sh -c command lines.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
