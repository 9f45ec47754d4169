package commands

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docrunner/internal/environment"
	"git.home.luguber.info/inful/docrunner/internal/manifest"
)

// EnvCmd implements the 'env' command: resolve and print the build
// environment a manifest asks for, without building anything.
type EnvCmd struct {
	Path string `arg:"" optional:"" help:"Manifest path (defaults to the global --manifest flag)"`
}

func (e *EnvCmd) Run(_ *Global, root *CLI) error {
	path := e.Path
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

	out, err := yaml.Marshal(env)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
