package versioning

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docmake/internal/config"
)

// initRepo creates a repository with one commit, a release branch and
// two tags.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs\n"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}
	hash, err := wt.Commit("initial", &gogit.CommitOptions{Author: sig})
	require.NoError(t, err)

	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("release/1.0"), hash)))
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("scratch"), hash)))

	_, err = repo.CreateTag("v1.0.0", hash, nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.1.0", hash, nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("experiment", hash, nil)
	require.NoError(t, err)

	return dir
}

func TestDiscover_FiltersAndOrders(t *testing.T) {
	dir := initRepo(t)

	versions, err := Discover(dir, &config.VersioningConfig{
		BranchPatterns: []string{"release/*"},
		TagPatterns:    []string{"v*"},
		MaxVersions:    10,
	})
	require.NoError(t, err)

	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}
	// Default branch first, then matched branches, then tags newest first.
	// The "scratch" branch and "experiment" tag match no pattern.
	require.Len(t, versions, 4)
	assert.True(t, versions[0].IsDefault)
	assert.Equal(t, "Latest", versions[0].DisplayName)
	assert.Equal(t, []string{versions[0].Name, "release/1.0", "v1.1.0", "v1.0.0"}, names)
	assert.Equal(t, VersionTypeTag, versions[2].Type)
	assert.NotEmpty(t, versions[2].CommitSHA)
}

func TestDiscover_MaxVersionsCap(t *testing.T) {
	dir := initRepo(t)

	versions, err := Discover(dir, &config.VersioningConfig{
		TagPatterns: []string{"v*"},
		MaxVersions: 2,
	})
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestDiscover_NotARepository(t *testing.T) {
	_, err := Discover(t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}

func TestBranchDisplayName(t *testing.T) {
	assert.Equal(t, "Latest", branchDisplayName("main", true))
	assert.Equal(t, "Develop", branchDisplayName("develop", false))
}

func TestSortVersions_TagsOrderNumerically(t *testing.T) {
	versions := []Version{
		{Name: "v1.2.0", Type: VersionTypeTag},
		{Name: "v1.10.0", Type: VersionTypeTag},
		{Name: "v1.9.0", Type: VersionTypeTag},
		{Name: "v2.0.0", Type: VersionTypeTag},
	}
	sortVersions(versions)

	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"v2.0.0", "v1.10.0", "v1.9.0", "v1.2.0"}, names)
}

func TestCompareVersionNames(t *testing.T) {
	assert.Positive(t, compareVersionNames("v1.10.0", "v1.9.0"))
	assert.Negative(t, compareVersionNames("v1.9.0", "v1.10.0"))
	assert.Zero(t, compareVersionNames("v1.9.0", "v1.9.0"))
	assert.Positive(t, compareVersionNames("v1.9.1", "v1.9"))
	assert.Zero(t, compareVersionNames("v01.9.0", "v1.9.0"))
}
