package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docmake/internal/config"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config     string           `short:"c" help:"Configuration file path" default:"docmake.yaml"`
	ProjectDir string           `short:"C" name:"project-dir" help:"Project root directory (overrides PROJ_DIR)"`
	Verbose    bool             `short:"v" help:"Enable verbose logging"`
	Version    kong.VersionFlag `name:"version" help:"Show version and exit"`

	Help      HelpCmd      `cmd:"" help:"Print the documentation builder's own help"`
	Contents  ContentsCmd  `cmd:"" help:"Run the secondary contents build"`
	Build     BuildCmd     `cmd:"" aliases:"html" help:"Build HTML documentation (runs contents first)"`
	Prod      ProdCmd      `cmd:"" help:"Build multi-version production documentation"`
	Clean     CleanCmd     `cmd:"" help:"Clean contents and documentation build outputs"`
	Sourcedir SourcedirCmd `cmd:"" help:"Print the resolved absolute source directory"`
	Builddir  BuilddirCmd  `cmd:"" help:"Print the resolved absolute build directory"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Versions  VersionsCmd  `cmd:"" help:"List git versions the multi-version build covers"`
	History   HistoryCmd   `cmd:"" help:"Show recent build history"`
	Preview   PreviewCmd   `cmd:"" help:"Watch sources, rebuild on change and serve the site"`
}

// AfterApply runs after flag parsing; bootstrap logging before any
// config is loaded. loadConfig replaces this logger with the configured
// one once the logging section is available.
func (c *CLI) AfterApply() error {
	level := config.NormalizeLogLevel(os.Getenv(config.EnvLogLevel)).SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads configuration, applies the CLI project-dir override
// and reconfigures the default logger from the logging section.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if root.ProjectDir != "" {
		cfg.Project.Dir = root.ProjectDir
	}
	slog.SetDefault(cfg.Logger(os.Stderr, root.Verbose))
	return cfg, nil
}
