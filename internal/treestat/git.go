package treestat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// topContributorLimit caps GitSummary.TopContributors.
const topContributorLimit = 5

// Contributor is an author and the number of commits they made.
type Contributor struct {
	Name    string `json:"name" yaml:"name"`
	Commits int    `json:"commits" yaml:"commits"`
}

// GitSummary describes the repository that contains the analyzed root.
type GitSummary struct {
	Branch          string
	TotalCommits    int
	Contributors    int
	TopContributors []Contributor
}

// ErrNotRepository is returned by ReadGitSummary when dir is not inside a git repository.
var ErrNotRepository = errors.New("not a git repository")

// ReadGitSummary counts commits reachable from HEAD and their authors.
func ReadGitSummary(dir string) (*GitSummary, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Repository without commits.
			return &GitSummary{}, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	summary := &GitSummary{}
	if head.Name().IsBranch() {
		summary.Branch = head.Name().Short()
	} else {
		summary.Branch = head.Hash().String()[:7]
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	authors := make(map[string]int)
	err = iter.ForEach(func(c *object.Commit) error {
		summary.TotalCommits++
		authors[c.Author.Name]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	summary.Contributors = len(authors)
	summary.TopContributors = rankContributors(authors, topContributorLimit)
	return summary, nil
}

func rankContributors(authors map[string]int, limit int) []Contributor {
	ranked := make([]Contributor, 0, len(authors))
	for name, commits := range authors {
		ranked = append(ranked, Contributor{Name: name, Commits: commits})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Commits != ranked[j].Commits {
			return ranked[i].Commits > ranked[j].Commits
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
