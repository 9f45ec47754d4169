package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docrunner/internal/environment"
	"git.home.luguber.info/inful/docrunner/internal/manifest"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	Path string `arg:"" optional:"" help:"Manifest path (defaults to the global --manifest flag)"`
}

func (v *ValidateCmd) Run(_ *Global, root *CLI) error {
	path := v.Path
	if path == "" {
		path = root.Manifest
	}

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	env, err := environment.Resolve(m)
	if err != nil {
		return err
	}

	fmt.Printf("%s is valid (tool: %s, formats: %v)\n", path, m.Tool(), m.Formats)
	fmt.Printf("image: %s\n", env.Image)
	for _, tool := range env.Tools {
		fmt.Printf("tool:  %s %s\n", tool.Name, tool.Resolved)
	}
	return nil
}
