package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// SettingsFileName is the record file inside the system directory.
const SettingsFileName = "settings.json"

// SettingsFile persists the settings record as JSON at
// {vault}/{systemDir}/settings.json.
type SettingsFile struct {
	Path     string
	ReadOnly bool
	Logger   *slog.Logger

	mu sync.Mutex
}

// NewSettingsFile creates a settings store for the given vault.
func NewSettingsFile(vaultPath, systemDir string) *SettingsFile {
	if systemDir == "" {
		systemDir = ".sidecards"
	}
	return &SettingsFile{Path: filepath.Join(vaultPath, systemDir, SettingsFileName)}
}

// Load reads the record. A missing file yields the default record; a
// corrupted one is set aside as settings.json.bak and replaced by defaults.
func (s *SettingsFile) Load(ctx context.Context) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.DefaultRecord(), nil
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var r core.Record
	if err := json.Unmarshal(data, &r); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("settings file corrupted, starting fresh", "path", s.Path, "error", err)
		}
		if !s.ReadOnly {
			_ = os.Rename(s.Path, s.Path+".bak")
		}
		return core.DefaultRecord(), nil
	}
	r.Normalize()
	return r, nil
}

// Save writes the whole record atomically.
func (s *SettingsFile) Save(ctx context.Context, r core.Record) error {
	if s.ReadOnly {
		return core.ErrReadOnly
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(s.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

var _ core.SettingsStore = (*SettingsFile)(nil)
