package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/adapters/fs"
	"github.com/Kazi-Aidah/sidecards/pkg/adapters/memory"
	"github.com/Kazi-Aidah/sidecards/pkg/adapters/redis"
	"github.com/Kazi-Aidah/sidecards/pkg/adapters/sqlite"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

const defaultSystemDir = ".sidecards"

// layout is the resolved on-disk shape of a vault.
type layout struct {
	path      string
	systemDir string
	folder    string
	readOnly  bool
}

// Init prepares the document store of a vault. The uri is adapter-specific:
// a directory for "fs", ignored for "memory".
func Init(uri string, opts ...Option) (core.DocumentStore, error) {
	o := parseOptions(opts)
	docs, _, err := initDocuments(uri, o)
	return docs, err
}

func initDocuments(uri string, o *options) (core.DocumentStore, layout, error) {
	if o.documents != nil {
		l := layout{path: uri, systemDir: systemDir(o), folder: stringOpt(o, "notes_folder")}
		return o.documents, l, nil
	}

	switch o.adapter {
	case "fs":
		repo, l, err := initFS(uri, o)
		if err != nil {
			return nil, layout{}, err
		}
		if err := repo.Initialize(context.Background()); err != nil {
			return nil, layout{}, err
		}
		return repo, l, nil
	case "memory":
		return memory.NewDocuments(), layout{path: uri, folder: stringOpt(o, "notes_folder")}, nil
	default:
		return nil, layout{}, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// initFS resolves the vault path and builds the filesystem adapter.
func initFS(path string, o *options) (*fs.Repository, layout, error) {
	autoInit, _ := o.config["auto_init"].(bool)
	gitless, _ := o.config["gitless"].(bool)
	tempDir, _ := o.config["temp_dir"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))
	sysDir := systemDir(o)

	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}
	bypassSafety := isReadOnly || !devSafety

	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolvedPath := ResolveVaultPath(path, useTemp)

	if IsDevRun() && o.logger != nil {
		switch {
		case isReadOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolvedPath)
		case bypassSafety:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolvedPath)
		default:
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolvedPath)
		}
	}

	// Without an explicit choice, versioning follows the vault: an existing
	// .git means git; a fresh auto-initialized vault gets git unless it
	// already carries a gitless system directory.
	if _, ok := o.config["gitless"]; !ok {
		if _, err := os.Stat(filepath.Join(resolvedPath, ".git")); err == nil {
			gitless = false
		} else if autoInit {
			_, err := os.Stat(filepath.Join(resolvedPath, sysDir))
			gitless = err == nil
		} else {
			gitless = true
		}
		if gitless && o.logger != nil {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
		}
	}

	folder := stringOpt(o, "notes_folder")
	repo := fs.NewRepository(fs.Config{
		Path:         resolvedPath,
		Folder:       folder,
		Pattern:      stringOpt(o, "pattern"),
		SystemDir:    sysDir,
		AutoInit:     autoInit,
		Gitless:      gitless,
		MustExist:    mustExist || (!autoInit && !useTemp),
		ReadOnly:     isReadOnly,
		Logger:       o.logger,
		ErrorHandler: errorHandler,
	})
	return repo, layout{path: resolvedPath, systemDir: sysDir, folder: folder, readOnly: isReadOnly}, nil
}

// openSettings builds the settings store for the configured backend. The
// returned closer releases connections and may be nil.
func openSettings(ctx context.Context, l layout, o *options) (core.SettingsStore, func() error, error) {
	if o.settings != nil {
		return o.settings, nil, nil
	}

	switch o.backend {
	case BackendJSON, "":
		if o.adapter == "memory" {
			return memory.NewSettings(), nil, nil
		}
		s := fs.NewSettingsFile(l.path, l.systemDir)
		s.ReadOnly = l.readOnly
		s.Logger = o.logger
		return s, nil, nil
	case BackendMemory:
		return memory.NewSettings(), nil, nil
	case BackendSQLite:
		dbPath := stringOpt(o, "sqlite_path")
		if dbPath == "" {
			dbPath = filepath.Join(l.path, l.systemDir, sqlite.DatabaseFileName)
		}
		s, err := sqlite.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendRedis:
		addr := stringOpt(o, "redis_addr")
		if addr == "" {
			addr = "localhost:6379"
		}
		db, _ := o.config["redis_db"].(int)
		ttl, _ := o.config["redis_ttl"].(time.Duration)
		client, err := redis.Dial(ctx, addr, stringOpt(o, "redis_password"), db)
		if err != nil {
			return nil, nil, err
		}
		vault, err := filepath.Abs(l.path)
		if err != nil {
			vault = l.path
		}
		return redis.NewSettings(client, vault, ttl), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings backend: %s", o.backend)
	}
}

func systemDir(o *options) string {
	if s := stringOpt(o, "system_dir"); s != "" {
		return s
	}
	return defaultSystemDir
}

func stringOpt(o *options, key string) string {
	s, _ := o.config[key].(string)
	return s
}
