package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/contents"
	"git.home.luguber.info/inful/docmake/internal/history"
	"git.home.luguber.info/inful/docmake/internal/metrics"
	"git.home.luguber.info/inful/docmake/internal/sphinx"
)

// captureRecorder records the last result counted per stage.
type captureRecorder struct {
	stageResults map[string]metrics.ResultLabel
}

func (r *captureRecorder) ObserveStageDuration(string, time.Duration) {}
func (r *captureRecorder) ObserveBuildDuration(string, time.Duration) {}
func (r *captureRecorder) IncBuildOutcome(string, string)             {}

func (r *captureRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	if r.stageResults == nil {
		r.stageResults = make(map[string]metrics.ResultLabel)
	}
	r.stageResults[stage] = result
}

// fixture wires a Service against stub sphinx binaries that write a
// minimal site into the build directory.
type fixture struct {
	cfg     *config.Config
	service *Service
	binDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	proj := t.TempDir()
	binDir := t.TempDir()

	cfg := &config.Config{
		Project: config.ProjectConfig{Dir: proj},
		Sphinx: config.SphinxConfig{
			Build:        filepath.Join(binDir, "sphinx-build"),
			Multiversion: filepath.Join(binDir, "sphinx-multiversion"),
		},
		Landing: config.LandingConfig{Page: "landing.md"},
	}

	// sphinx-build -M <mode> <src> <build>: emit html/index.html
	writeScript(t, binDir, "sphinx-build",
		"#!/bin/sh\n"+
			"echo \"$@\" >> \"$0.args\"\n"+
			"mkdir -p \"$4/html\"\n"+
			"echo '<html><body>built</body></html>' > \"$4/html/index.html\"\n")
	// sphinx-multiversion <src> <htmldir>: emit generated index
	writeScript(t, binDir, "sphinx-multiversion",
		"#!/bin/sh\n"+
			"echo \"$@\" >> \"$0.args\"\n"+
			"mkdir -p \"$2\"\n"+
			"echo '<html><body>generated index</body></html>' > \"$2/index.html\"\n")

	require.NoError(t, os.WriteFile(filepath.Join(proj, "landing.md"),
		[]byte("---\ntitle: Landing\n---\n# Versions\n"), 0o644))

	quiet := &bytes.Buffer{}
	svc := NewService(cfg).
		WithRunner(sphinx.NewRunner(cfg).WithOutput(quiet, quiet)).
		WithContents(contents.NewBuilder(cfg).WithOutput(quiet, quiet))

	return &fixture{cfg: cfg, service: svc, binDir: binDir}
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
}

func TestRun_HTMLBuild_RunsContentsThenSphinxAndTouchesMarker(t *testing.T) {
	f := newFixture(t)
	contentsStub := filepath.Join(f.binDir, "contents.sh")
	writeScript(t, f.binDir, "contents.sh", "#!/bin/sh\ntouch \"$0.ran\"\n")
	f.cfg.Contents.Command = []string{contentsStub}

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.NotEmpty(t, result.BuildID)
	assert.FileExists(t, contentsStub+".ran")
	assert.FileExists(t, filepath.Join(f.cfg.HTMLDir(), "index.html"))
	assert.FileExists(t, filepath.Join(f.cfg.HTMLDir(), ".nojekyll"))
	assert.Contains(t, result.StageDurations, StageContents)
	assert.Contains(t, result.StageDurations, StageSphinx)
}

func TestRun_HTMLBuild_SkipsDisabledContents(t *testing.T) {
	f := newFixture(t)
	contentsStub := filepath.Join(f.binDir, "contents.sh")
	writeScript(t, f.binDir, "contents.sh", "#!/bin/sh\ntouch \"$0.ran\"\n")
	f.cfg.Contents.Command = []string{contentsStub}
	f.cfg.Contents.Disabled = true

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.NoFileExists(t, contentsStub+".ran")
}

func TestRun_HTMLBuild_DisabledContentsCountsSkipped(t *testing.T) {
	f := newFixture(t)
	f.cfg.Contents.Disabled = true

	rec := &captureRecorder{}
	f.service.WithRecorder(rec)

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, metrics.ResultSkipped, rec.stageResults[string(StageContents)])
	assert.Equal(t, metrics.ResultSuccess, rec.stageResults[string(StageSphinx)])
}

func TestRun_BrokenLinkIsWarningNotFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.Contents.Disabled = true
	writeScript(t, f.binDir, "sphinx-build",
		"#!/bin/sh\n"+
			"mkdir -p \"$4/html\"\n"+
			"echo '<html><body><a href=\"missing.html\">gone</a></body></html>' > \"$4/html/index.html\"\n")

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	require.Len(t, result.LinkIssues, 1)
	assert.Equal(t, "missing.html", result.LinkIssues[0].Target)
}

func TestRun_MissingSphinxBinary_FailsWithClearError(t *testing.T) {
	f := newFixture(t)
	f.cfg.Contents.Disabled = true
	f.cfg.Sphinx.Build = filepath.Join(f.binDir, "absent-sphinx-build")

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, err.Error(), "not found in PATH")
}

func TestRun_ProdBuild_InstallsLandingOverGeneratedIndex(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Run(context.Background(), Request{Mode: ModeProd})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)

	index, err := os.ReadFile(filepath.Join(f.cfg.HTMLDir(), "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>Versions</h1>")
	assert.NotContains(t, string(index), "generated index")
	assert.FileExists(t, filepath.Join(f.cfg.HTMLDir(), ".nojekyll"))
}

func TestRun_ProdBuild_NeverRunsContentsStage(t *testing.T) {
	f := newFixture(t)
	contentsStub := filepath.Join(f.binDir, "contents.sh")
	writeScript(t, f.binDir, "contents.sh", "#!/bin/sh\ntouch \"$0.ran\"\n")
	f.cfg.Contents.Command = []string{contentsStub}

	result, err := f.service.Run(context.Background(), Request{Mode: ModeProd})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.NoFileExists(t, contentsStub+".ran")
	assert.NotContains(t, result.StageDurations, StageContents)
}

func TestRun_ProdBuild_MissingLandingIsFatal(t *testing.T) {
	f := newFixture(t)
	f.cfg.Landing.Page = "absent.md"

	result, err := f.service.Run(context.Background(), Request{Mode: ModeProd})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, err.Error(), "postprocess")
}

func TestRun_SphinxFailure_FailsBuild(t *testing.T) {
	f := newFixture(t)
	writeScript(t, f.binDir, "sphinx-build", "#!/bin/sh\nexit 2\n")
	f.cfg.Contents.Disabled = true

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, err.Error(), "stage sphinx")
}

func TestRun_CanceledContext_ReportsCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.service.Run(ctx, Request{Mode: ModeHTML})
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, result.Outcome)
}

func TestRun_RecordsHistory(t *testing.T) {
	f := newFixture(t)
	f.cfg.Contents.Disabled = true

	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	f.service.WithHistory(store)

	result, err := f.service.Run(context.Background(), Request{Mode: ModeHTML})
	require.NoError(t, err)

	records, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.BuildID, records[0].ID)
	assert.Equal(t, "html", records[0].Mode)
	assert.Equal(t, "success", records[0].Outcome)
	assert.WithinDuration(t, result.StartedAt, records[0].StartedAt, time.Second)
}

func TestClean_RunsContentsCleanThenSphinxClean(t *testing.T) {
	f := newFixture(t)
	cleanStub := filepath.Join(f.binDir, "clean.sh")
	writeScript(t, f.binDir, "clean.sh", "#!/bin/sh\ntouch \"$0.ran\"\n")
	f.cfg.Contents.Clean = []string{cleanStub}

	require.NoError(t, f.service.Clean(context.Background()))
	assert.FileExists(t, cleanStub+".ran")

	args, err := os.ReadFile(filepath.Join(f.binDir, "sphinx-build.args"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "-M clean")
}
