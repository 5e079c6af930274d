// Package contents runs the secondary contents build that generates
// input pages before the main documentation pass.
package contents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/logfields"
)

// Builder executes the configured contents build and clean commands.
type Builder struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// NewBuilder creates a contents builder writing tool output to stdout/stderr.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
}

// WithOutput redirects tool output (for tests).
func (b *Builder) WithOutput(stdout, stderr io.Writer) *Builder {
	b.stdout = stdout
	b.stderr = stderr
	return b
}

// Enabled reports whether the contents pre-build should run. Disabled by
// config or by the NO_CONTENTS_BUILD environment override.
func (b *Builder) Enabled() bool {
	return !b.cfg.Contents.Disabled
}

// Build runs the contents build command.
func (b *Builder) Build(ctx context.Context) error {
	return b.run(ctx, b.cfg.ContentsCommand())
}

// Clean runs the contents clean command. A missing command binary is a
// warning, not a failure: clean should still proceed to the main
// builder's clean mode.
func (b *Builder) Clean(ctx context.Context) error {
	command := b.cfg.ContentsCleanCommand()
	if _, err := exec.LookPath(command[0]); err != nil {
		slog.Warn("Contents clean command not found, skipping", logfields.Command(command[0]))
		return nil
	}
	return b.run(ctx, command)
}

func (b *Builder) run(ctx context.Context, command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty contents command")
	}
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = b.cfg.ProjectDir()
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	slog.Debug("Running contents build", logfields.Command(command[0]), slog.Any("args", command[1:]))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("contents command %s failed: %w", command[0], err)
	}
	return nil
}
