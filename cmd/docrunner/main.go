package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docrunner/cmd/docrunner/commands"
	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
)

var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("docrunner"),
		kong.Description("Self-hosted documentation build runner."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	if err != nil {
		adapter := derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Handle(err))
	}
}
