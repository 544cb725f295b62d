package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   vault/ (.sidecards)
	//     cards/
	//       nested/
	//   configured/ (sidecards.yaml)
	//   empty/
	baseDir := t.TempDir()
	vaultDir := filepath.Join(baseDir, "vault")
	nestedDir := filepath.Join(vaultDir, "cards", "nested")
	configured := filepath.Join(baseDir, "configured")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(configured, 0755))
	require.NoError(t, os.MkdirAll(emptyDir, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(vaultDir, ".sidecards"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configured, "sidecards.yaml"), []byte("folder: Cards\n"), 0644))

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
	}{
		{"Start At Root", vaultDir, vaultDir},
		{"Start Nested Deeply", nestedDir, vaultDir},
		{"Config File Marks Root", configured, configured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoot, got)
		})
	}

	t.Run("No Root Found", func(t *testing.T) {
		// The temp dir may itself sit below a repository; only assert that
		// the search never stops inside the empty directory.
		got, err := FindRoot(emptyDir)
		if err == nil {
			assert.NotEqual(t, emptyDir, got)
			return
		}
		assert.ErrorIs(t, err, ErrRootNotFound)
	})
}

func TestResolveVaultPath(t *testing.T) {
	t.Run("Unsafe Keeps Path", func(t *testing.T) {
		assert.Equal(t, "notes", ResolveVaultPath("notes", false))
		assert.Equal(t, ".", ResolveVaultPath("", false))
	})

	t.Run("Safe Moves Into Sandbox", func(t *testing.T) {
		got := ResolveVaultPath("notes", true)
		assert.Equal(t, filepath.Join(os.TempDir(), DevDirName, "notes"), got)
		assert.Equal(t, filepath.Join(os.TempDir(), DevDirName, "default"), ResolveVaultPath(".", true))
	})

	t.Run("Temp Paths Stay Put", func(t *testing.T) {
		dir := t.TempDir()
		assert.Equal(t, dir, ResolveVaultPath(dir, true))
	})
}
