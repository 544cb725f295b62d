package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// DevDirName is the directory under the system temp dir that sandboxes
// vaults opened by `go run` and `go test` binaries.
const DevDirName = "sidecards-dev"

// IsDevRun checks if the current process is running via `go run` or `go test`.
// Both build their binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveVaultPath determines the actual path for the vault based on safety rules.
// With forceTemp the path is re-rooted into the dev sandbox, unless it
// already lives in the system temp directory (t.TempDir and the like).
func ResolveVaultPath(userPath string, forceTemp bool) string {
	if !forceTemp {
		if userPath == "" {
			return "."
		}
		return userPath
	}

	clean := filepath.Clean(userPath)
	if rel, err := filepath.Rel(os.TempDir(), clean); err == nil && !strings.HasPrefix(rel, "..") && filepath.IsAbs(clean) {
		return clean
	}

	name := "default"
	if userPath != "" && userPath != "." && userPath != "./" {
		if base := filepath.Base(userPath); base != "." && base != string(os.PathSeparator) {
			name = base
		}
	}
	return filepath.Join(os.TempDir(), DevDirName, name)
}
