// Package versioning discovers the git refs a multi-version build covers.
// The multi-version builder selects refs itself; docmake mirrors that
// selection so version sets can be reported before and after prod builds.
package versioning

import (
	"fmt"
	"path"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docmake/internal/config"
)

var titleCaser = cases.Title(language.English)

// Discover enumerates branches and tags of the repository at projectDir
// matching the configured patterns. The default branch is always
// included and listed first.
func Discover(projectDir string, cfg *config.VersioningConfig) ([]Version, error) {
	if cfg == nil {
		cfg = &config.VersioningConfig{BranchPatterns: []string{"main", "master"}, MaxVersions: 10}
	}

	repo, err := gogit.PlainOpen(projectDir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", projectDir, err)
	}

	defaultBranch := headBranchName(repo)

	var versions []Version

	branches, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		isDefault := name == defaultBranch
		if !isDefault && !matchesAny(name, cfg.BranchPatterns) {
			return nil
		}
		versions = append(versions, Version{
			Name:        name,
			Type:        VersionTypeBranch,
			DisplayName: branchDisplayName(name, isDefault),
			IsDefault:   isDefault,
			CommitSHA:   ref.Hash().String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !matchesAny(name, cfg.TagPatterns) {
			return nil
		}
		versions = append(versions, Version{
			Name:        name,
			Type:        VersionTypeTag,
			DisplayName: name,
			CommitSHA:   ref.Hash().String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortVersions(versions)

	if cfg.MaxVersions > 0 && len(versions) > cfg.MaxVersions {
		versions = versions[:cfg.MaxVersions]
	}
	return versions, nil
}

// headBranchName resolves the branch HEAD points at, falling back to
// "main" on detached or unreadable heads.
func headBranchName(repo *gogit.Repository) string {
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return "main"
	}
	return head.Name().Short()
}

// branchDisplayName derives the display name shown in version pickers.
// The default branch is presented as "Latest".
func branchDisplayName(name string, isDefault bool) string {
	if isDefault {
		return "Latest"
	}
	return titleCaser.String(name)
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// sortVersions orders the default branch first, then branches by name,
// then tags newest first. Tag names are compared component-wise with
// numeric runs compared by value, so v1.10.0 sorts above v1.9.0.
func sortVersions(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.Type != b.Type {
			return a.Type == VersionTypeBranch
		}
		if a.Type == VersionTypeTag {
			return compareVersionNames(a.Name, b.Name) > 0
		}
		return a.Name < b.Name
	})
}

// compareVersionNames compares two ref names chunk by chunk, where a
// chunk is a maximal run of digits or non-digits. Digit runs compare
// numerically, everything else lexically.
func compareVersionNames(a, b string) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)
		a, b = restA, restB

		if isDigits(ca) && isDigits(cb) {
			na := strings.TrimLeft(ca, "0")
			nb := strings.TrimLeft(cb, "0")
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextChunk splits off the leading run of digits or non-digits.
func nextChunk(s string) (chunk, rest string) {
	digits := s[0] >= '0' && s[0] <= '9'
	for i := 1; i < len(s); i++ {
		if (s[i] >= '0' && s[i] <= '9') != digits {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
