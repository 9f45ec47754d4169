package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docrunner/internal/manifest"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing manifest"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if err := manifest.Init(root.Manifest, i.Force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", root.Manifest)
	return nil
}
