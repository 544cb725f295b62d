package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, nil)
	ctx := context.Background()

	unlock, err := client.Lock(ctx)
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, LockFile)
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file not created")

	t.Run("Times Out While Held", func(t *testing.T) {
		other := NewClient(tmpDir, nil)
		other.LockTimeout = 30 * time.Millisecond
		_, err := other.Lock(ctx)
		assert.ErrorIs(t, err, ErrLockTimeout)
	})

	unlock()
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")
}

func TestClient_CommitPaths(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, nil)
	ctx := context.Background()

	require.NoError(t, client.Init(ctx))
	assert.True(t, client.IsRepo(ctx))
	_, _ = client.Run(ctx, "config", "user.email", "cards@example.com")
	_, _ = client.Run(ctx, "config", "user.name", "Cards")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.md"), []byte("hello"), 0644))
	require.NoError(t, client.CommitPaths(ctx, "chore: add a", "."))

	log, err := client.Run(ctx, "log", "-1", "--format=%B")
	require.NoError(t, err)
	assert.Contains(t, log, "chore: add a")
	assert.Contains(t, log, Footer)

	// Nothing changed: no new commit and no error.
	require.NoError(t, client.CommitPaths(ctx, "chore: again", "."))
	count, err := client.Run(ctx, "rev-list", "--count", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestFormatCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		ctype   string
		scope   string
		subject string
		body    string
		want    string
	}{
		{
			name:    "simple",
			ctype:   "feat",
			subject: "add card",
			want:    "feat: add card\n\n" + Footer,
		},
		{
			name:    "with scope",
			ctype:   "chore",
			scope:   "cards",
			subject: "sync 3 card documents",
			want:    "chore(cards): sync 3 card documents\n\n" + Footer,
		},
		{
			name:    "default type and body",
			subject: "archive",
			body:    " Moved two cards. ",
			want:    "chore: archive\n\nMoved two cards.\n\n" + Footer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCommitMessage(tt.ctype, tt.scope, tt.subject, tt.body)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppendFooter(t *testing.T) {
	assert.Equal(t, "msg\n\n"+Footer, AppendFooter("msg"))
	assert.Equal(t, "msg\n\n"+Footer, AppendFooter("msg\n"))
	already := "x\n\n" + Footer
	assert.Equal(t, already, AppendFooter(already))
}
