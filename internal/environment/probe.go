package environment

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// ProbeResult reports what a toolchain looks like on the build host.
type ProbeResult struct {
	Tool    string
	Path    string
	Version string
	Found   bool
	Err     error // LookPath or version probe failure
}

// probeBinaries maps toolchain names to the binary probed on the host.
var probeBinaries = map[string]string{
	"python": "python3",
	"nodejs": "node",
	"go":     "go",
	"rust":   "rustc",
	"ruby":   "ruby",
}

// Probe reports the interpreter version and path for each resolved tool as
// found on the build host. Missing tools are reported, not fatal: the host is
// expected to provision them and probing exists for diagnostics.
func Probe(ctx context.Context, env *Environment) []ProbeResult {
	results := make([]ProbeResult, 0, len(env.Tools))
	for _, tool := range env.Tools {
		binary, ok := probeBinaries[tool.Name]
		if !ok {
			binary = tool.Name
		}
		results = append(results, probeOne(ctx, tool.Name, binary))
	}
	return results
}

func probeOne(ctx context.Context, tool, binary string) ProbeResult {
	res := ProbeResult{Tool: tool}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	path, err := exec.LookPath(binary)
	if err != nil {
		res.Err = err
		observability.WarnContext(ctx, "Toolchain not found on host", logfields.Tool(tool))
		return res
	}
	res.Path = path
	res.Found = true

	out, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	if err != nil {
		res.Err = err
		observability.WarnContext(ctx, "Toolchain version probe failed",
			logfields.Tool(tool), logfields.Error(err))
		return res
	}
	res.Version = strings.TrimSpace(string(out))
	observability.DebugContext(ctx, "Toolchain probed",
		logfields.Tool(tool), logfields.Path(path))
	return res
}
