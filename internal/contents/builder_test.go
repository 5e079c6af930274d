package contents

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docmake/internal/config"
)

func stubCommand(t *testing.T, exitCode int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gen.sh")
	script := "#!/bin/sh\necho \"$@\" > \"$0.args\"\nexit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestBuild_RunsConfiguredCommand(t *testing.T) {
	stub := stubCommand(t, 0)
	cfg := &config.Config{
		Project:  config.ProjectConfig{Dir: t.TempDir()},
		Contents: config.ContentsConfig{Command: []string{stub, "build"}},
	}

	b := NewBuilder(cfg).WithOutput(&bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, b.Build(context.Background()))

	args, err := os.ReadFile(stub + ".args")
	require.NoError(t, err)
	assert.Equal(t, "build\n", string(args))
}

func TestBuild_PropagatesFailure(t *testing.T) {
	stub := stubCommand(t, 3)
	cfg := &config.Config{Contents: config.ContentsConfig{Command: []string{stub}}}

	err := NewBuilder(cfg).WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contents command")
}

func TestClean_MissingCommandIsSkipped(t *testing.T) {
	cfg := &config.Config{
		Contents: config.ContentsConfig{Clean: []string{"/does/not/exist/clean.sh"}},
	}
	assert.NoError(t, NewBuilder(cfg).Clean(context.Background()))
}

func TestEnabled_FollowsDisabledFlag(t *testing.T) {
	cfg := &config.Config{}
	assert.True(t, NewBuilder(cfg).Enabled())

	cfg.Contents.Disabled = true
	assert.False(t, NewBuilder(cfg).Enabled())
}
