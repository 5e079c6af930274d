// Package sphinx invokes the external documentation builder binaries.
// It renders nothing itself: sphinx-build and sphinx-multiversion do the
// work, docmake forwards directories and options and propagates their
// exit status.
package sphinx

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

// Mode is a sphinx-build -M mode.
type Mode string

const (
	ModeHelp  Mode = "help"
	ModeHTML  Mode = "html"
	ModeClean Mode = "clean"
)

// Runner executes the configured sphinx binaries against the resolved
// source and build directories.
type Runner struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// NewRunner creates a runner writing tool output to stdout/stderr.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
}

// WithOutput redirects tool output (for tests).
func (r *Runner) WithOutput(stdout, stderr io.Writer) *Runner {
	r.stdout = stdout
	r.stderr = stderr
	return r
}

// Available reports whether the sphinx-build binary can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.cfg.Sphinx.Build)
	return err == nil
}

// MultiversionAvailable reports whether the multi-version binary can be found.
func (r *Runner) MultiversionAvailable() bool {
	_, err := exec.LookPath(r.cfg.Sphinx.Multiversion)
	return err == nil
}

// Make runs `sphinx-build -M <mode> <sourcedir> <builddir> [opts...]`.
func (r *Runner) Make(ctx context.Context, mode Mode) error {
	args := []string{"-M", string(mode), r.cfg.SourceDir(), r.cfg.BuildDir()}
	args = append(args, r.cfg.Sphinx.Opts...)
	return r.run(ctx, r.cfg.Sphinx.Build, args, nil)
}

// Multiversion runs `sphinx-multiversion <sourcedir> <builddir>/html [opts...]`
// with the contents pre-build disabled in the child environment, matching
// the production target of the original wrapper.
func (r *Runner) Multiversion(ctx context.Context) error {
	args := []string{r.cfg.SourceDir(), r.cfg.HTMLDir()}
	args = append(args, r.cfg.Sphinx.Opts...)
	env := append(os.Environ(), config.EnvNoContentsBuild+"=true")
	return r.run(ctx, r.cfg.Sphinx.Multiversion, args, env)
}

func (r *Runner) run(ctx context.Context, bin string, args []string, env []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = r.cfg.ProjectDir()
	cmd.Env = env
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	slog.Debug("Running documentation builder", logfields.Command(bin), slog.Any("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", bin, err)
	}
	return nil
}
