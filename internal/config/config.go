// Package config loads and resolves docmake configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// .env / .env.local files, process environment variables. Environment
// variables use the names the original make wrapper accepted (PROJ_DIR,
// SPHINXOPTS, SPHINXBUILD, SPHINXMULTIVERSION, SOURCEDIR, BUILDDIR,
// NO_CONTENTS_BUILD) and are plain string overrides without validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Project    ProjectConfig     `yaml:"project"`
	Sphinx     SphinxConfig      `yaml:"sphinx"`
	Contents   ContentsConfig    `yaml:"contents"`
	Landing    LandingConfig     `yaml:"landing"`
	Versioning *VersioningConfig `yaml:"versioning,omitempty"`
	Daemon     DaemonConfig      `yaml:"daemon"`
	History    HistoryConfig     `yaml:"history"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// ProjectConfig locates the documentation project root.
type ProjectConfig struct {
	Dir string `yaml:"dir,omitempty"` // defaults to the current working directory
}

// SphinxConfig configures the wrapped documentation builder binaries.
type SphinxConfig struct {
	Build        string   `yaml:"build,omitempty"`        // sphinx-build binary
	Multiversion string   `yaml:"multiversion,omitempty"` // sphinx-multiversion binary
	Opts         []string `yaml:"opts,omitempty"`         // extra args forwarded verbatim
	SourceDir    string   `yaml:"source_dir,omitempty"`   // defaults to <project>/docs/source
	BuildDir     string   `yaml:"build_dir,omitempty"`    // defaults to <project>/docs/build
}

// ContentsConfig configures the secondary contents pre-build.
type ContentsConfig struct {
	Disabled bool     `yaml:"disabled,omitempty"`
	Command  []string `yaml:"command,omitempty"` // defaults to make -C <source_dir> contents
	Clean    []string `yaml:"clean,omitempty"`   // defaults to make -C <source_dir> clean
}

// LandingConfig configures the static landing page written over the
// multi-version index after a prod build.
type LandingConfig struct {
	Page  string `yaml:"page,omitempty"` // Markdown or HTML source, relative to project dir
	Title string `yaml:"title,omitempty"`
}

// VersioningConfig selects which git refs the multi-version build covers.
type VersioningConfig struct {
	BranchPatterns []string `yaml:"branch_patterns,omitempty"`
	TagPatterns    []string `yaml:"tag_patterns,omitempty"`
	MaxVersions    int      `yaml:"max_versions,omitempty"`
}

// DaemonConfig configures the preview daemon.
type DaemonConfig struct {
	Addr       string       `yaml:"addr,omitempty"`
	DebounceMS int          `yaml:"debounce_ms,omitempty"`
	Schedule   string       `yaml:"schedule,omitempty"` // interval for scheduled full rebuilds, e.g. "1h"
	NATS       *NATSConfig  `yaml:"nats,omitempty"`
	Retry      *RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig tunes rebuild retries in daemon mode. An absent block
// uses the built-in defaults; max_retries 0 disables retries.
type RetryConfig struct {
	Mode       string `yaml:"mode,omitempty"` // fixed, linear, exponential
	InitialMS  int    `yaml:"initial_ms,omitempty"`
	MaxMS      int    `yaml:"max_ms,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// NATSConfig enables build event publishing from the daemon.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig configures the SQLite build history store.
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Path     string `yaml:"path,omitempty"` // defaults to <build_dir>/docmake-history.db
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// DefaultConfigFile is the config file name Load falls back to.
const DefaultConfigFile = "docmake.yaml"

// Load loads configuration from the specified file, then applies env
// overrides and defaults. A missing config file is not an error: the
// original wrapper ran without one, so docmake does too.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	config := &Config{}

	if configPath == "" {
		configPath = DefaultConfigFile
	}
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// run on defaults + environment
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Sphinx.Build == "" {
		config.Sphinx.Build = "sphinx-build"
	}
	if config.Sphinx.Multiversion == "" {
		config.Sphinx.Multiversion = "sphinx-multiversion"
	}
	if config.Landing.Page == "" {
		config.Landing.Page = filepath.Join("docs", "landing.md")
	}
	if config.Daemon.Addr == "" {
		config.Daemon.Addr = "localhost:8080"
	}
	if config.Daemon.DebounceMS <= 0 {
		config.Daemon.DebounceMS = 500
	}
	if config.Versioning != nil && config.Versioning.MaxVersions <= 0 {
		config.Versioning.MaxVersions = 10
	}
}

// ProjectDir resolves the project root to an absolute path. An unset
// project dir resolves to the current working directory.
func (c *Config) ProjectDir() string {
	dir := c.Project.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// SourceDir resolves the documentation source directory to an absolute path.
func (c *Config) SourceDir() string {
	return c.resolve(c.Sphinx.SourceDir, filepath.Join("docs", "source"))
}

// BuildDir resolves the documentation build directory to an absolute path.
func (c *Config) BuildDir() string {
	return c.resolve(c.Sphinx.BuildDir, filepath.Join("docs", "build"))
}

// HTMLDir is the directory the html and multi-version modes render into.
func (c *Config) HTMLDir() string {
	return filepath.Join(c.BuildDir(), "html")
}

// LandingPage resolves the landing page source to an absolute path.
func (c *Config) LandingPage() string {
	return c.resolve(c.Landing.Page, "")
}

// HistoryPath resolves the build history database path. Empty when the
// history store is disabled.
func (c *Config) HistoryPath() string {
	if c.History.Disabled {
		return ""
	}
	if c.History.Path != "" {
		return c.resolve(c.History.Path, "")
	}
	return filepath.Join(c.BuildDir(), "docmake-history.db")
}

// resolve makes value absolute against the project dir, using fallback
// (project-relative) when value is empty.
func (c *Config) resolve(value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if value == "" {
		return ""
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(c.ProjectDir(), value)
}

// ContentsCommand returns the contents build command, defaulting to the
// make target the original wrapper invoked.
func (c *Config) ContentsCommand() []string {
	if len(c.Contents.Command) > 0 {
		return c.Contents.Command
	}
	return []string{"make", "-C", c.SourceDir(), "contents"}
}

// ContentsCleanCommand returns the contents clean command.
func (c *Config) ContentsCleanCommand() []string {
	if len(c.Contents.Clean) > 0 {
		return c.Contents.Clean
	}
	return []string{"make", "-C", c.SourceDir(), "clean"}
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# docmake configuration
project:
  dir: .

sphinx:
  build: sphinx-build
  multiversion: sphinx-multiversion
  source_dir: docs/source
  build_dir: docs/build
  # opts: ["-W", "--keep-going"]

contents:
  disabled: false
  # command: ["make", "-C", "docs/source", "contents"]
  # clean: ["make", "-C", "docs/source", "clean"]

landing:
  page: docs/landing.md
  title: Documentation

versioning:
  branch_patterns: ["main", "release/*"]
  tag_patterns: ["v*"]
  max_versions: 10

daemon:
  addr: localhost:8080
  debounce_ms: 500
  # schedule: 1h
  # retry:
  #   mode: linear
  #   initial_ms: 1000
  #   max_ms: 30000
  #   max_retries: 2
  # nats:
  #   url: nats://localhost:4222
  #   subject: docmake.builds

history:
  disabled: false

logging:
  level: info
  format: text
`
	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
