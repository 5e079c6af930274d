// Package linkcheck verifies relative links in generated HTML. It is a
// post-build diagnostic: findings are reported, never build failures.
package linkcheck

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Issue is one broken relative link.
type Issue struct {
	File   string // HTML file containing the link, relative to the checked root
	Target string // the raw href/src value
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: broken link %q", i.File, i.Target)
}

// Check walks root, parses every .html file and reports relative links
// whose targets do not exist on disk. External URLs, anchors and
// absolute paths are skipped.
func Check(root string) ([]Issue, error) {
	var issues []Issue

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}

		refs, err := extractRefs(p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}

		rel, _ := filepath.Rel(root, p)
		for _, ref := range refs {
			target, ok := resolveRelative(p, ref)
			if !ok {
				continue
			}
			if _, err := os.Stat(target); err != nil {
				issues = append(issues, Issue{File: rel, Target: ref})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// extractRefs returns all href and src attribute values in the document.
func extractRefs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// resolveRelative maps a relative link found in file to a filesystem
// path. Links that cannot be checked locally return ok=false.
func resolveRelative(file, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	target := u.Path
	if target == "" {
		return "", false
	}
	if strings.HasSuffix(target, "/") {
		target = path.Join(target, "index.html")
	}
	return filepath.Join(filepath.Dir(file), filepath.FromSlash(target)), true
}
