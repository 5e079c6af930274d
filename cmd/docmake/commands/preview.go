package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docmake/internal/daemon"
)

// PreviewCmd serves the built site and rebuilds on source changes.
type PreviewCmd struct {
	Addr string `help:"Listen address (overrides config)"`
}

func (p *PreviewCmd) Run(global *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if p.Addr != "" {
		cfg.Daemon.Addr = p.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		global.Logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Stop(shutdownCtx); err != nil {
		slog.Warn("Shutdown did not complete cleanly", "error", err)
	}
	return nil
}
