package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docmake/cmd/docmake/commands"
	"git.home.luguber.info/inful/docmake/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("docmake"),
		kong.Description("Sphinx documentation build orchestrator"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
