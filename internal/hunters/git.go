package hunters

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// GitHunter clones repositories into the scratch area and emits one
// entry per blob of every commit reachable from any ref, so secrets
// deleted in later commits are still found. Entry paths take the form
// <repo>/<commit[:8]>/<file path>.
type GitHunter struct {
	common
	repos    []string
	username string
	password string
}

// NewGitHunter creates a hunter over the given repositories: local
// paths or remote URLs, all hosted at address. Credentials apply as
// HTTP basic auth on remote URLs.
func NewGitHunter(workspace, address string, repos []string, username, password string, scratch sfh.Scratch, limits sfh.Limits, logger sfh.Logger) (*GitHunter, error) {
	if len(repos) == 0 {
		return nil, fmt.Errorf("at least one repository is required")
	}
	return &GitHunter{
		common: common{
			target:  sfh.Target{Workspace: workspace, Address: address, Kind: model.KindGit},
			limits:  limits,
			scratch: scratch,
			logger:  logger,
		},
		repos:    repos,
		username: username,
		password: password,
	}, nil
}

// Enumerate clones and walks every repository. A failed clone aborts
// the walk; unreadable commits are logged and skipped.
func (h *GitHunter) Enumerate(ctx context.Context, q *sfh.WorkQueue) error {
	for _, repo := range h.repos {
		if err := h.enumerateRepo(ctx, repo, q); err != nil {
			return fmt.Errorf("enumerating repository %s: %w", repo, err)
		}
	}
	return nil
}

func (h *GitHunter) enumerateRepo(ctx context.Context, repoURL string, q *sfh.WorkQueue) error {
	dir, err := h.scratch.TempDir("git-*")
	if err != nil {
		return fmt.Errorf("creating clone directory: %w", err)
	}

	opts := &git.CloneOptions{URL: repoURL}
	if h.username != "" {
		opts.Auth = &githttp.BasicAuth{Username: h.username, Password: h.password}
	}

	// Bare clone: blobs are read straight from the object store, no
	// worktree checkout per commit.
	repo, err := git.PlainCloneContext(ctx, dir, true, opts)
	if err != nil {
		return fmt.Errorf("cloning: %w", err)
	}

	commits, err := repo.Log(&git.LogOptions{All: true})
	if err != nil {
		return fmt.Errorf("listing commits: %w", err)
	}
	defer commits.Close()

	repoName := strings.TrimSuffix(path.Base(repoURL), ".git")

	return commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		files, err := c.Files()
		if err != nil {
			h.logger.Error("cannot read commit tree", "repo", repoName, "commit", c.Hash.String(), "error", err)
			return nil
		}
		defer files.Close()

		commitID := c.Hash.String()[:8]
		when := c.Author.When

		return files.ForEach(func(f *object.File) error {
			full := path.Join(repoName, commitID, f.Name)
			e := h.newEntry("", full, f.Size)
			if e == nil {
				return nil
			}
			mod := when
			e.ModifiedTime = &mod
			if !e.Oversize {
				blob := f
				e.Fetch = func() ([]byte, error) { return readBlob(blob) }
			}
			return put(ctx, q, e)
		})
	})
}

func readBlob(f *object.File) ([]byte, error) {
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

var _ sfh.Hunter = (*GitHunter)(nil)
