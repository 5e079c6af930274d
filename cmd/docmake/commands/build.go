package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docmake/internal/build"
	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/history"
	"git.home.luguber.info/inful/docmake/internal/logfields"
	"git.home.luguber.info/inful/docmake/internal/sphinx"
	"git.home.luguber.info/inful/docmake/internal/versioning"
)

// BuildCmd implements the 'build' command (aliased as 'html').
type BuildCmd struct {
	NoContents bool `help:"Skip the contents pre-build (same as NO_CONTENTS_BUILD)"`
	NoVerify   bool `help:"Skip the post-build link check"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if b.NoContents {
		cfg.Contents.Disabled = true
	}
	return runBuild(cfg, build.Request{Mode: build.ModeHTML, SkipVerify: b.NoVerify})
}

// ProdCmd implements the multi-version production build.
type ProdCmd struct {
	NoVerify bool `help:"Skip the post-build link check"`
}

func (p *ProdCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Report the version set the multi-version builder will cover. A
	// repository that cannot be opened is not fatal: the builder does its
	// own ref selection.
	if versions, err := versioning.Discover(cfg.ProjectDir(), cfg.Versioning); err == nil {
		for _, v := range versions {
			slog.Info("Version selected",
				logfields.Version(v.Name),
				slog.String("type", string(v.Type)),
				slog.String("display", v.DisplayName))
		}
	} else {
		slog.Warn("Version discovery unavailable", logfields.Error(err))
	}

	return runBuild(cfg, build.Request{Mode: build.ModeProd, SkipVerify: p.NoVerify})
}

// runBuild wires a build service with history and executes one build.
func runBuild(cfg *config.Config, req build.Request) error {
	service := build.NewService(cfg)

	if path := cfg.HistoryPath(); path != "" {
		if store, err := history.Open(path); err == nil {
			defer store.Close()
			service.WithHistory(store)
		} else {
			slog.Warn("Build history unavailable", logfields.Error(err))
		}
	}

	result, err := service.Run(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Printf("Build finished: %s (%s) in %s\n", result.Outcome, result.Mode, result.Duration.Round(time.Millisecond))
	return nil
}

// ContentsCmd runs only the secondary contents build.
type ContentsCmd struct{}

func (c *ContentsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return build.NewService(cfg).RunContents(context.Background())
}

// CleanCmd runs the contents clean target, then the builder's clean mode.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return build.NewService(cfg).Clean(context.Background())
}

// HelpCmd prints the wrapped builder's own help output.
type HelpCmd struct{}

func (h *HelpCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return sphinx.NewRunner(cfg).Make(context.Background(), sphinx.ModeHelp)
}
