package fs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

func newTestRepo(t *testing.T, cfg Config) *Repository {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = t.TempDir()
	}
	cfg.Gitless = true
	cfg.AutoInit = true
	repo := NewRepository(cfg)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestRepositoryDocuments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, Config{Folder: "cards"})

	require.NoError(t, repo.Create(ctx, "cards/first.md", "---\nTags: [\"a\"]\n---\nhello\n"))

	err := repo.Create(ctx, "cards/first.md", "again")
	assert.ErrorIs(t, err, core.ErrExists)

	text, err := repo.Read(ctx, "cards/first.md")
	require.NoError(t, err)
	assert.Contains(t, text, "hello")

	require.NoError(t, repo.Modify(ctx, "cards/first.md", "changed\n"))
	text, err = repo.Read(ctx, "cards/first.md")
	require.NoError(t, err)
	assert.Equal(t, "changed\n", text)

	err = repo.Modify(ctx, "cards/missing.md", "x")
	assert.ErrorIs(t, err, core.ErrDocNotFound)

	_, err = repo.Read(ctx, "cards/missing.md")
	assert.ErrorIs(t, err, core.ErrDocNotFound)

	ok, err := repo.Exists(ctx, "cards/first.md")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := repo.Stat(ctx, "cards/first.md")
	require.NoError(t, err)
	assert.Equal(t, "cards/first.md", info.Path)
	assert.False(t, info.ModTime.IsZero())

	require.NoError(t, repo.Delete(ctx, "cards/first.md"))
	require.NoError(t, repo.Delete(ctx, "cards/first.md"), "deleting twice is not an error")
	ok, err = repo.Exists(ctx, "cards/first.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryRejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, Config{})

	for _, p := range []string{"../outside.md", "", "a/../../b.md"} {
		_, err := repo.Read(ctx, p)
		assert.ErrorIs(t, err, core.ErrInvalidPath, p)
	}
}

func TestRepositoryList(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := newTestRepo(t, Config{Path: root, Folder: "cards"})

	files := map[string]string{
		"cards/a.md":             "a",
		"cards/nested/b.md":      "b",
		"cards/notes.txt":        "ignored",
		"cards/.hidden/c.md":     "ignored",
		"other/d.md":             "outside folder",
		".sidecards/settings.md": "system",
	}
	for p, text := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(text), 0644))
	}

	docs, err := repo.List(ctx)
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"cards/a.md", "cards/nested/b.md"}, paths)
}

func TestRepositoryListPattern(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := newTestRepo(t, Config{Path: root, Pattern: "*.md"})

	require.NoError(t, repo.Create(ctx, "top.md", "x"))
	require.NoError(t, repo.Create(ctx, "deep/inner.md", "y"))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "top.md", docs[0].Path)
}

func TestRepositoryReadOnly(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("a"), 0644))

	repo := NewRepository(Config{Path: root, ReadOnly: true})
	require.NoError(t, repo.Initialize(ctx))

	text, err := repo.Read(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "a", text)

	assert.ErrorIs(t, repo.Modify(ctx, "a.md", "b"), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Create(ctx, "b.md", "b"), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Delete(ctx, "a.md"), core.ErrReadOnly)
	assert.NoError(t, repo.Commit(ctx, "noop"))
}

func TestRepositoryMustExist(t *testing.T) {
	repo := NewRepository(Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true, Gitless: true})
	assert.Error(t, repo.Initialize(context.Background()))
}

func TestRepositoryChangedSince(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := newTestRepo(t, Config{Path: root})

	require.NoError(t, repo.Create(ctx, "old.md", "old"))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "old.md"), past, past))

	since := time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, "new.md", "new"))

	events, err := repo.changedSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new.md", events[0].Path)
	assert.Equal(t, core.EventModify, events[0].Type)

	state := repo.State().(RepositoryState)
	assert.NotNil(t, state.LastReconcile)
}

func TestRepositoryEnsureIgnore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules"), 0644))
	repo := NewRepository(Config{Path: root})

	changed, err := repo.ensureIgnore()
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.ensureIgnore()
	require.NoError(t, err)
	assert.False(t, changed)

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "node_modules\n.sidecards/\n.sidecards.lock\n", string(data))
}
