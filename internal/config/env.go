package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names accepted as overrides. These match the
// original make wrapper so existing CI invocations keep working.
const (
	EnvProjDir            = "PROJ_DIR"
	EnvSphinxOpts         = "SPHINXOPTS"
	EnvSphinxBuild        = "SPHINXBUILD"
	EnvSphinxMultiversion = "SPHINXMULTIVERSION"
	EnvSourceDir          = "SOURCEDIR"
	EnvBuildDir           = "BUILDDIR"
	EnvNoContentsBuild    = "NO_CONTENTS_BUILD"
	EnvLogLevel           = "DOCMAKE_LOG_LEVEL"
)

// loadEnvFiles loads .env and .env.local if present. godotenv never
// overrides variables already set in the process environment.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		_ = godotenv.Load(envPath)
	}
}

// applyEnvOverrides applies process environment overrides on top of the
// file-based configuration. Values are taken as-is, without validation.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv(EnvProjDir); v != "" {
		config.Project.Dir = v
	}
	if v := os.Getenv(EnvSphinxBuild); v != "" {
		config.Sphinx.Build = v
	}
	if v := os.Getenv(EnvSphinxMultiversion); v != "" {
		config.Sphinx.Multiversion = v
	}
	if v := os.Getenv(EnvSphinxOpts); v != "" {
		config.Sphinx.Opts = strings.Fields(v)
	}
	if v := os.Getenv(EnvSourceDir); v != "" {
		config.Sphinx.SourceDir = v
	}
	if v := os.Getenv(EnvBuildDir); v != "" {
		config.Sphinx.BuildDir = v
	}
	if v := os.Getenv(EnvNoContentsBuild); v != "" {
		config.Contents.Disabled = isTruthy(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Logging.Level = v
	}
}

// isTruthy mirrors the original wrapper: any non-empty value other than
// an explicit "false"/"0" disables the contents build.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no":
		return false
	}
	return true
}
