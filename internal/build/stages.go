package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docmake/internal/linkcheck"
	"git.home.luguber.info/inful/docmake/internal/logfields"
	"git.home.luguber.info/inful/docmake/internal/metrics"
	"git.home.luguber.info/inful/docmake/internal/sphinx"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StagePrepare     StageName = "prepare"
	StageContents    StageName = "contents"
	StageSphinx      StageName = "sphinx"
	StagePostProcess StageName = "postprocess"
	StageVerify      StageName = "verify"
)

// markerFile disables static-site auto-processing (Jekyll) on hosts
// that treat underscore-prefixed directories specially.
const markerFile = ".nojekyll"

// StageDef couples a stage name with its implementation.
type StageDef struct {
	Name StageName
	Fn   func(ctx context.Context, s *Service, result *Result) error
}

// errSkipped marks a stage that declined to run. It is not a failure.
var errSkipped = errors.New("stage skipped")

// stagesFor returns the stage sequence for a request. The prod pipeline
// never runs the contents stage: the multi-version builder checks out
// each ref itself and the contents pre-build is explicitly disabled in
// its environment.
func stagesFor(req Request) []StageDef {
	stages := []StageDef{{Name: StagePrepare, Fn: stagePrepare}}
	if req.Mode == ModeHTML {
		stages = append(stages, StageDef{Name: StageContents, Fn: stageContents})
	}
	stages = append(stages,
		StageDef{Name: StageSphinx, Fn: stageSphinx},
		StageDef{Name: StagePostProcess, Fn: stagePostProcess},
	)
	if !req.SkipVerify {
		stages = append(stages, StageDef{Name: StageVerify, Fn: stageVerify})
	}
	return stages
}

// runStages executes stages in order, recording timing and stopping on
// the first fatal error.
func (s *Service) runStages(ctx context.Context, stages []StageDef, result *Result) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			s.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return fmt.Errorf("stage %s canceled: %w", st.Name, ctx.Err())
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, s, result)
		dur := time.Since(t0)
		result.StageDurations[st.Name] = dur
		s.recorder.ObserveStageDuration(string(st.Name), dur)

		switch {
		case errors.Is(err, errSkipped):
			s.recorder.IncStageResult(string(st.Name), metrics.ResultSkipped)
			slog.Info("Stage skipped", logfields.Stage(string(st.Name)))
		case err != nil:
			s.recorder.IncStageResult(string(st.Name), metrics.ResultFatal)
			return fmt.Errorf("stage %s: %w", st.Name, err)
		default:
			s.recorder.IncStageResult(string(st.Name), metrics.ResultSuccess)
		}
	}
	return nil
}

// stagePrepare ensures the build directory exists.
func stagePrepare(_ context.Context, s *Service, _ *Result) error {
	if err := os.MkdirAll(s.cfg.BuildDir(), 0o755); err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}
	return nil
}

// stageContents runs the secondary contents build unless disabled.
func stageContents(ctx context.Context, s *Service, _ *Result) error {
	if !s.contents.Enabled() {
		return errSkipped
	}
	return s.contents.Build(ctx)
}

// stageSphinx invokes the documentation builder for the requested mode.
// The binary is looked up first so a missing tool reads as a clear
// error instead of a raw exec failure.
func stageSphinx(ctx context.Context, s *Service, result *Result) error {
	if result.Mode == ModeProd {
		if !s.runner.MultiversionAvailable() {
			return fmt.Errorf("%s not found in PATH", s.cfg.Sphinx.Multiversion)
		}
		return s.runner.Multiversion(ctx)
	}
	if !s.runner.Available() {
		return fmt.Errorf("%s not found in PATH", s.cfg.Sphinx.Build)
	}
	return s.runner.Make(ctx, sphinx.ModeHTML)
}

// stagePostProcess touches the marker file and, for prod builds,
// installs the landing page over the generated index.
func stagePostProcess(_ context.Context, s *Service, result *Result) error {
	htmlDir := s.cfg.HTMLDir()

	if result.Mode == ModeProd {
		if err := s.landing.Install(htmlDir); err != nil {
			return err
		}
	}

	marker := filepath.Join(htmlDir, markerFile)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return fmt.Errorf("touch %s: %w", markerFile, err)
	}
	slog.Debug("Touched static-site marker", logfields.Path(marker))
	return nil
}

// stageVerify runs the relative link check over the generated HTML.
// Findings are logged, never fatal.
func stageVerify(_ context.Context, s *Service, result *Result) error {
	issues, err := linkcheck.Check(s.cfg.HTMLDir())
	if err != nil {
		slog.Warn("Link verification could not run", logfields.Error(err))
		return nil
	}
	result.LinkIssues = issues
	for _, issue := range issues {
		slog.Warn("Broken link", slog.String("file", issue.File), slog.String("target", issue.Target))
	}
	if len(issues) > 0 {
		slog.Warn("Link verification found issues", slog.Int("count", len(issues)))
	}
	return nil
}
