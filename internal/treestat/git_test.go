package treestat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content, author string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: author, Email: author + "@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestReadGitSummary(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	commitFile(t, repo, dir, "a.txt", "one", "alice")
	commitFile(t, repo, dir, "b.txt", "two", "bob")
	commitFile(t, repo, dir, "a.txt", "three", "alice")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	summary, err := ReadGitSummary(sub)
	require.NoError(t, err)
	assert.Equal(t, "master", summary.Branch)
	assert.Equal(t, 3, summary.TotalCommits)
	assert.Equal(t, 2, summary.Contributors)
	assert.Equal(t, []Contributor{{Name: "alice", Commits: 2}, {Name: "bob", Commits: 1}}, summary.TopContributors)
}

func TestReadGitSummaryEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	summary, err := ReadGitSummary(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalCommits)
	assert.Empty(t, summary.TopContributors)
}

func TestReadGitSummaryNotRepository(t *testing.T) {
	_, err := ReadGitSummary(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestRankContributors(t *testing.T) {
	authors := map[string]int{"carol": 3, "alice": 5, "bob": 3, "dave": 1}

	assert.Equal(t, []Contributor{
		{Name: "alice", Commits: 5},
		{Name: "bob", Commits: 3},
		{Name: "carol", Commits: 3},
	}, rankContributors(authors, 3))
	assert.Len(t, rankContributors(authors, 10), 4)
	assert.Empty(t, rankContributors(nil, 5))
}
