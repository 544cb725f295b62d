// Package fs stores card documents and the settings record on the local
// filesystem, optionally versioned with git.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/git"
)

// DefaultPattern selects card documents below the cards folder.
const DefaultPattern = "**/*.md"

// Repository implements core.DocumentStore on the filesystem.
type Repository struct {
	Path   string
	git    *git.Client
	config Config

	mu            sync.RWMutex
	watcherActive bool
	lastCommit    *time.Time
	lastReconcile *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string // vault root; document paths are relative to it
	Folder    string // cards folder inside the vault ("" = vault root)
	Pattern   string // doublestar pattern matched against paths relative to Folder
	SystemDir string // e.g. ".sidecards"
	AutoInit  bool
	Gitless   bool
	MustExist bool
	ReadOnly  bool
	Logger    *slog.Logger

	// ErrorHandler receives runtime watcher failures.
	ErrorHandler func(error)
}

// NewRepository creates a new filesystem-backed document store.
func NewRepository(config Config) *Repository {
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if config.SystemDir == "" {
		config.SystemDir = ".sidecards"
	}
	config.Folder = core.NormalizePath(config.Folder)
	return &Repository{
		Path:   config.Path,
		git:    git.NewClient(config.Path, config.Logger),
		config: config,
	}
}

// Initialize performs the necessary setup for the repository (mkdir, git init).
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
		if r.config.ReadOnly {
			return nil
		}
	}
	if err := os.MkdirAll(r.folderPath(), 0755); err != nil {
		return fmt.Errorf("failed to create cards folder: %w", err)
	}

	if r.config.Gitless {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !r.git.IsRepo(ctx) {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if mod && wasNewRepo {
		msg := git.FormatCommitMessage(git.CommitTypeChore, "", fmt.Sprintf("configure %s ignore", r.config.SystemDir), "")
		if err := r.git.CommitPaths(ctx, msg, ".gitignore"); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore adds the system directory to .gitignore.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	ignoreEntries := []string{r.config.SystemDir + "/", git.LockFile}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, e := range ignoreEntries {
		if !present[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) folderPath() string {
	return filepath.Join(r.Path, filepath.FromSlash(r.config.Folder))
}

// resolve maps a document path to a file path inside the vault.
func (r *Repository) resolve(p string) (string, string, error) {
	rel := core.NormalizePath(p)
	if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", "", fmt.Errorf("%w: %q", core.ErrInvalidPath, p)
	}
	return filepath.Join(r.Path, filepath.FromSlash(rel)), rel, nil
}

// Read returns the text of a document.
func (r *Repository) Read(ctx context.Context, p string) (string, error) {
	full, rel, err := r.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", core.ErrDocNotFound, rel)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}

// Modify replaces the text of an existing document.
func (r *Repository) Modify(ctx context.Context, p, text string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	full, rel, err := r.resolve(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", core.ErrDocNotFound, rel)
	}
	if err := writeFileAtomic(full, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if r.config.Logger != nil {
		r.config.Logger.Debug("document modified", "path", rel)
	}
	return nil
}

// Create writes a new document, creating parent directories.
func (r *Repository) Create(ctx context.Context, p, text string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	full, rel, err := r.resolve(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err == nil {
		return fmt.Errorf("%w: %s", core.ErrExists, rel)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := writeFileAtomic(full, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if r.config.Logger != nil {
		r.config.Logger.Debug("document created", "path", rel)
	}
	return nil
}

// Delete removes a document. Missing documents are ignored.
func (r *Repository) Delete(ctx context.Context, p string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	full, rel, err := r.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether a document is present.
func (r *Repository) Exists(ctx context.Context, p string) (bool, error) {
	full, _, err := r.resolve(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Stat returns the modification time of a document.
func (r *Repository) Stat(ctx context.Context, p string) (core.DocumentInfo, error) {
	full, rel, err := r.resolve(p)
	if err != nil {
		return core.DocumentInfo{}, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return core.DocumentInfo{}, fmt.Errorf("%w: %s", core.ErrDocNotFound, rel)
	}
	if err != nil {
		return core.DocumentInfo{}, err
	}
	return core.DocumentInfo{Path: rel, ModTime: info.ModTime()}, nil
}

// List walks the cards folder and returns every document matching the pattern.
func (r *Repository) List(ctx context.Context) ([]core.DocumentInfo, error) {
	root := r.folderPath()
	var docs []core.DocumentInfo

	err := filepath.WalkDir(root, func(full string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && full == root {
				return filepath.SkipAll
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if full != root && r.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, ok := r.match(full)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		docs = append(docs, core.DocumentInfo{Path: rel, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return docs, nil
}

func (r *Repository) skipDir(name string) bool {
	return name == ".git" || name == r.config.SystemDir || strings.HasPrefix(name, ".")
}

// match converts a file path to a vault-relative document path and checks
// it against the pattern.
func (r *Repository) match(full string) (string, bool) {
	if isTempFile(full) {
		return "", false
	}
	relToFolder, err := filepath.Rel(r.folderPath(), full)
	if err != nil || strings.HasPrefix(relToFolder, "..") {
		return "", false
	}
	relToFolder = filepath.ToSlash(relToFolder)
	ok, err := doublestar.Match(r.config.Pattern, relToFolder)
	if err != nil || !ok {
		return "", false
	}
	return core.NormalizePath(path.Join(r.config.Folder, relToFolder)), true
}

// Commit implements core.Versioned by committing the cards folder.
// It is a no-op in gitless or read-only mode.
func (r *Repository) Commit(ctx context.Context, message string) error {
	if r.config.Gitless || r.config.ReadOnly {
		return nil
	}
	if reason, ok := ctx.Value(core.ChangeReasonKey).(string); ok && reason != "" {
		message = reason
	}
	scope := r.config.Folder
	if scope == "" {
		scope = "."
	}
	if err := r.git.CommitPaths(ctx, message, scope); err != nil {
		return fmt.Errorf("failed to commit cards: %w", err)
	}
	r.mu.Lock()
	now := time.Now()
	r.lastCommit = &now
	r.mu.Unlock()
	return nil
}

// changedSince lists documents modified at or after t. Used to recover
// events missed while git held its index lock.
func (r *Repository) changedSince(ctx context.Context, t time.Time) ([]core.Event, error) {
	docs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	r.recordReconcile()
	var events []core.Event
	for _, d := range docs {
		if !d.ModTime.Before(t) {
			events = append(events, core.Event{Type: core.EventModify, Path: d.Path, Timestamp: time.Now().Unix()})
		}
	}
	return events, nil
}

var (
	_ core.DocumentStore = (*Repository)(nil)
	_ core.Watchable     = (*Repository)(nil)
	_ core.Versioned     = (*Repository)(nil)
)
