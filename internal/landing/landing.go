// Package landing installs the static landing page that replaces the
// generated index after a multi-version production build.
package landing

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/frontmatter"
	"git.home.luguber.info/inful/docmake/internal/logfields"
)

// fingerprintFile is the sidecar recording the last rendered source
// fingerprint, used to skip re-rendering unchanged landing pages.
const fingerprintFile = ".docmake-landing.fp"

var pageTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Renderer renders the configured landing page source into index.html.
type Renderer struct {
	cfg *config.Config
}

// NewRenderer creates a landing page renderer.
func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Install writes the landing page over htmlDir/index.html. Markdown
// sources are rendered with Goldmark inside a minimal HTML shell; .html
// sources are copied verbatim. A missing source is an error: the
// generated multi-version index must not be served as the site root.
func (r *Renderer) Install(htmlDir string) error {
	source := r.cfg.LandingPage()
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read landing page %s: %w", source, err)
	}

	indexPath := filepath.Join(htmlDir, "index.html")

	if strings.EqualFold(filepath.Ext(source), ".html") {
		if err := os.WriteFile(indexPath, raw, 0o644); err != nil {
			return fmt.Errorf("write landing index: %w", err)
		}
		slog.Info("Installed landing page", logfields.Path(indexPath))
		return nil
	}

	fm, body, _, err := frontmatter.Split(raw)
	if err != nil {
		return fmt.Errorf("parse landing frontmatter: %w", err)
	}

	fingerprint := mdfp.CalculateFingerprintFromParts(string(fm), string(body))
	fpPath := filepath.Join(htmlDir, fingerprintFile)
	if previous, err := os.ReadFile(fpPath); err == nil &&
		strings.TrimSpace(string(previous)) == fingerprint {
		if _, err := os.Stat(indexPath); err == nil {
			slog.Debug("Landing page unchanged, skipping render", logfields.Path(source))
			return nil
		}
	}

	title := r.title(fm)

	var rendered bytes.Buffer
	if err := goldmark.New().Convert(body, &rendered); err != nil {
		return fmt.Errorf("render landing markdown: %w", err)
	}

	var page bytes.Buffer
	err = pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(rendered.String())})
	if err != nil {
		return fmt.Errorf("render landing template: %w", err)
	}

	if err := os.WriteFile(indexPath, page.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write landing index: %w", err)
	}
	if err := os.WriteFile(fpPath, []byte(fingerprint+"\n"), 0o644); err != nil {
		slog.Warn("Failed to record landing fingerprint", logfields.Error(err))
	}

	slog.Info("Installed landing page", logfields.Path(indexPath))
	return nil
}

// title picks the page title: frontmatter title, then config, then a
// generic fallback.
func (r *Renderer) title(fm []byte) string {
	if fields, err := frontmatter.ParseYAML(fm); err == nil {
		if t, ok := fields["title"].(string); ok && t != "" {
			return t
		}
	}
	if r.cfg.Landing.Title != "" {
		return r.cfg.Landing.Title
	}
	return "Documentation"
}
