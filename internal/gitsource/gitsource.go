// Package gitsource keeps local clones of remote word-list repositories.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
)

// DefaultRemote is the remote pulled from when Options.Remote is empty.
const DefaultRemote = "origin"

// Options tune a Sync.
type Options struct {
	// Remote names the remote to pull. Clones always create it.
	Remote string
	// Progress receives git's progress output. Nil discards it.
	Progress io.Writer
}

func (o Options) remote() string {
	if o.Remote == "" {
		return DefaultRemote
	}
	return o.Remote
}

// Checkout describes the local copy after a Sync.
type Checkout struct {
	Path string
	// Head is the commit hash checked out.
	Head string
	// Cloned is set when the repository was fetched for the first time.
	Cloned bool
	// Changed is set when Head differs from before the Sync.
	Changed bool
}

// Sync brings the word lists at url up to date under localPath, cloning on
// first use and pulling afterwards. A localPath that exists but is not a git
// repository is an error; it is never overwritten.
func Sync(ctx context.Context, url, localPath string, opts Options) (Checkout, error) {
	co := Checkout{Path: localPath}

	repo, err := git.PlainOpen(localPath)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		if !isEmptyDir(localPath) {
			return co, fmt.Errorf("%s exists and is not a git repository", localPath)
		}
		slog.Info("Cloning word lists", "url", url, "path", localPath)
		repo, err = git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:        url,
			RemoteName: opts.remote(),
			Progress:   opts.Progress,
		})
		if err != nil {
			return co, fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		co.Cloned, co.Changed = true, true
	case err != nil:
		return co, fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	default:
		before, _ := headHash(repo)
		if err := pull(ctx, repo, opts); err != nil {
			return co, fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		after, _ := headHash(repo)
		co.Changed = before != after
	}

	co.Head, err = headHash(repo)
	if err != nil {
		return co, fmt.Errorf("failed to resolve HEAD at %s: %w", localPath, err)
	}
	slog.Info("Word lists up to date", "path", localPath, "head", co.Head, "changed", co.Changed)
	return co, nil
}

func pull(ctx context.Context, repo *git.Repository, opts Options) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: opts.remote(),
		Progress:   opts.Progress,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func headHash(repo *git.Repository) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// isEmptyDir reports whether path is missing or an empty directory.
func isEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return true
	}
	return err == nil && len(entries) == 0
}
