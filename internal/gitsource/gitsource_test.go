package gitsource

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestSyncClonesThenPulls(t *testing.T) {
	ctx := context.Background()
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	first := commitFile(t, repo, upstream, "words.tsv", "apple\t苹果\n")

	local := filepath.Join(t.TempDir(), "clone")
	co, err := Sync(ctx, upstream, local, Options{})
	require.NoError(t, err)
	assert.True(t, co.Cloned)
	assert.True(t, co.Changed)
	assert.Equal(t, first, co.Head)

	got, err := os.ReadFile(filepath.Join(local, "words.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "apple\t苹果\n", string(got))

	co, err = Sync(ctx, upstream, local, Options{})
	require.NoError(t, err)
	assert.False(t, co.Cloned)
	assert.False(t, co.Changed, "nothing new upstream")
	assert.Equal(t, first, co.Head)

	second := commitFile(t, repo, upstream, "more.tsv", "pear\t梨\n")
	co, err = Sync(ctx, upstream, local, Options{Remote: DefaultRemote})
	require.NoError(t, err)
	assert.True(t, co.Changed)
	assert.Equal(t, second, co.Head)
	_, err = os.Stat(filepath.Join(local, "more.tsv"))
	assert.NoError(t, err)
}

func TestSyncCustomRemoteAndProgress(t *testing.T) {
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	commitFile(t, repo, upstream, "words.tsv", "apple\t苹果\n")

	local := filepath.Join(t.TempDir(), "clone")
	var progress bytes.Buffer
	_, err = Sync(context.Background(), upstream, local, Options{Remote: "lists", Progress: &progress})
	require.NoError(t, err)

	clone, err := git.PlainOpen(local)
	require.NoError(t, err)
	_, err = clone.Remote("lists")
	assert.NoError(t, err)

	_, err = Sync(context.Background(), upstream, local, Options{Remote: "lists"})
	assert.NoError(t, err)
}

func TestSyncRefusesNonRepositoryDirectory(t *testing.T) {
	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "notes.txt"), []byte("keep me"), 0o644))

	_, err := Sync(context.Background(), "https://example.invalid/repo.git", local, Options{})
	require.Error(t, err)
	got, readErr := os.ReadFile(filepath.Join(local, "notes.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(got))
}
