// Package build provides the canonical build execution pipeline for
// docmake. All execution paths (CLI, daemon) route through Service.
package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/contents"
	"git.home.luguber.info/inful/docmake/internal/history"
	"git.home.luguber.info/inful/docmake/internal/landing"
	"git.home.luguber.info/inful/docmake/internal/linkcheck"
	"git.home.luguber.info/inful/docmake/internal/logfields"
	"git.home.luguber.info/inful/docmake/internal/metrics"
	"git.home.luguber.info/inful/docmake/internal/sphinx"
)

// Mode selects which build pipeline runs.
type Mode string

const (
	// ModeHTML is the regular single-version HTML build.
	ModeHTML Mode = "html"
	// ModeProd is the multi-version production build.
	ModeProd Mode = "prod"
)

// Outcome is the final build status.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Request contains the inputs for one build execution.
type Request struct {
	Mode Mode

	// SkipVerify disables the post-build link check.
	SkipVerify bool
}

// Result contains the outcome of a build execution.
type Result struct {
	BuildID        string
	Mode           Mode
	Outcome        Outcome
	StartedAt      time.Time
	Duration       time.Duration
	StageDurations map[StageName]time.Duration
	LinkIssues     []linkcheck.Issue
}

// Service executes documentation builds: contents pre-build, sphinx
// invocation, post-processing and verification.
type Service struct {
	cfg      *config.Config
	runner   *sphinx.Runner
	contents *contents.Builder
	landing  *landing.Renderer
	recorder metrics.Recorder
	store    *history.Store
}

// NewService creates a build service with default collaborators.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:      cfg,
		runner:   sphinx.NewRunner(cfg),
		contents: contents.NewBuilder(cfg),
		landing:  landing.NewRenderer(cfg),
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder.
func (s *Service) WithRecorder(rec metrics.Recorder) *Service {
	if rec != nil {
		s.recorder = rec
	}
	return s
}

// WithHistory injects a build history store.
func (s *Service) WithHistory(store *history.Store) *Service {
	s.store = store
	return s
}

// WithRunner injects a sphinx runner (for tests).
func (s *Service) WithRunner(r *sphinx.Runner) *Service {
	s.runner = r
	return s
}

// WithContents injects a contents builder (for tests).
func (s *Service) WithContents(b *contents.Builder) *Service {
	s.contents = b
	return s
}

// Run executes the build pipeline for the requested mode.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{
		BuildID:        uuid.NewString(),
		Mode:           req.Mode,
		StartedAt:      time.Now(),
		StageDurations: make(map[StageName]time.Duration),
	}

	slog.Info("Starting documentation build",
		logfields.BuildID(result.BuildID),
		logfields.Mode(string(req.Mode)),
		logfields.Path(s.cfg.BuildDir()))

	err := s.runStages(ctx, stagesFor(req), result)
	result.Duration = time.Since(result.StartedAt)

	switch {
	case err == nil:
		result.Outcome = OutcomeSuccess
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		result.Outcome = OutcomeCanceled
	default:
		result.Outcome = OutcomeFailed
	}

	s.recorder.ObserveBuildDuration(string(req.Mode), result.Duration)
	s.recorder.IncBuildOutcome(string(req.Mode), string(result.Outcome))
	s.record(result, err)

	if err != nil {
		slog.Error("Build failed",
			logfields.BuildID(result.BuildID),
			logfields.Mode(string(req.Mode)),
			logfields.Error(err))
		return result, err
	}

	slog.Info("Build completed",
		logfields.BuildID(result.BuildID),
		logfields.Mode(string(req.Mode)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

// RunContents executes only the secondary contents build, honoring the
// disabled flag.
func (s *Service) RunContents(ctx context.Context) error {
	if !s.contents.Enabled() {
		slog.Info("Contents build disabled, skipping")
		return nil
	}
	return s.contents.Build(ctx)
}

// Clean runs the contents clean step, then the documentation builder's
// clean mode.
func (s *Service) Clean(ctx context.Context) error {
	if err := s.contents.Clean(ctx); err != nil {
		return err
	}
	return s.runner.Make(ctx, sphinx.ModeClean)
}

// record persists the build to history. History failures degrade to a
// warning: the build's own outcome stands.
func (s *Service) record(result *Result, buildErr error) {
	if s.store == nil {
		return
	}
	rec := history.Record{
		ID:        result.BuildID,
		Mode:      string(result.Mode),
		Outcome:   string(result.Outcome),
		StartedAt: result.StartedAt,
		Duration:  result.Duration,
	}
	if buildErr != nil {
		rec.Error = buildErr.Error()
	}
	if err := s.store.Record(context.Background(), rec); err != nil {
		slog.Warn("Failed to record build history", logfields.Error(err))
	}
}
