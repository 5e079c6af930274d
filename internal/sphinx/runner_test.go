package sphinx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docmake/internal/config"
)

// writeStub creates a fake builder binary that records its argv and
// environment, then exits with the given status.
func writeStub(t *testing.T, dir, name string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" +
		"echo \"$@\" > \"$0.args\"\n" +
		"env > \"$0.env\"\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testConfig(t *testing.T, binDir string) *config.Config {
	t.Helper()
	proj := t.TempDir()
	return &config.Config{
		Project: config.ProjectConfig{Dir: proj},
		Sphinx: config.SphinxConfig{
			Build:        filepath.Join(binDir, "sphinx-build"),
			Multiversion: filepath.Join(binDir, "sphinx-multiversion"),
			Opts:         []string{"-W"},
		},
	}
}

func TestMake_ForwardsModeAndDirectories(t *testing.T) {
	binDir := t.TempDir()
	stub := writeStub(t, binDir, "sphinx-build", 0)
	cfg := testConfig(t, binDir)

	var out, errOut bytes.Buffer
	r := NewRunner(cfg).WithOutput(&out, &errOut)
	require.NoError(t, r.Make(context.Background(), ModeHTML))

	args, err := os.ReadFile(stub + ".args")
	require.NoError(t, err)
	assert.Equal(t,
		"-M html "+cfg.SourceDir()+" "+cfg.BuildDir()+" -W",
		strings.TrimSpace(string(args)))
}

func TestMake_PropagatesExitStatus(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "sphinx-build", 2)
	cfg := testConfig(t, binDir)

	err := NewRunner(cfg).WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).Make(context.Background(), ModeClean)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sphinx-build failed")
}

func TestMultiversion_DisablesContentsBuildInChildEnv(t *testing.T) {
	binDir := t.TempDir()
	stub := writeStub(t, binDir, "sphinx-multiversion", 0)
	cfg := testConfig(t, binDir)

	r := NewRunner(cfg).WithOutput(&bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, r.Multiversion(context.Background()))

	args, err := os.ReadFile(stub + ".args")
	require.NoError(t, err)
	assert.Equal(t,
		cfg.SourceDir()+" "+cfg.HTMLDir()+" -W",
		strings.TrimSpace(string(args)))

	env, err := os.ReadFile(stub + ".env")
	require.NoError(t, err)
	assert.Contains(t, string(env), config.EnvNoContentsBuild+"=true")
}

func TestAvailable_MissingBinary(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	r := NewRunner(cfg)
	assert.False(t, r.Available())
	assert.False(t, r.MultiversionAvailable())
}
