package platform

import (
	"log/slog"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/schedule"
)

// Settings backends understood by the factory.
const (
	BackendJSON   = "json"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// options holds the internal configuration for a vault.
type options struct {
	documents core.DocumentStore
	settings  core.SettingsStore
	renderer  core.Renderer
	logger    *slog.Logger
	clock     schedule.Clock
	adapter   string
	backend   string
	config    map[string]any
}

// Option defines a functional option for configuring a vault.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: "fs",
		backend: BackendJSON,
		config:  make(map[string]any),
	}
}

func parseOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAutoInit creates the vault directory (and git repository) when missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables git versioning of the cards folder.
// When not set, versioning follows the presence of a .git directory.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["gitless"] = !enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist requires the vault directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger for the vault and everything it wires.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDocuments injects a document store. The filesystem adapter is skipped.
func WithDocuments(docs core.DocumentStore) Option {
	return func(o *options) {
		o.documents = docs
	}
}

// WithSettings injects a settings store, overriding the configured backend.
func WithSettings(s core.SettingsStore) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithRenderer replaces the default Markdown renderer.
func WithRenderer(r core.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithClock injects the time source of the engine.
func WithClock(c schedule.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithAdapter selects the document adapter by name: "fs" (default) or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSettingsBackend selects where the settings record lives: "json"
// (default), "redis", "sqlite" or "memory".
func WithSettingsBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithRedis configures the redis settings backend.
func WithRedis(addr, password string, db int) Option {
	return func(o *options) {
		o.config["redis_addr"] = addr
		o.config["redis_password"] = password
		o.config["redis_db"] = db
	}
}

// WithRedisTTL expires the redis record after ttl without writes.
func WithRedisTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.config["redis_ttl"] = ttl
	}
}

// WithSystemDir sets the hidden directory name. Defaults to ".sidecards".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithNotesFolder sets the folder, relative to the vault, holding card documents.
func WithNotesFolder(folder string) Option {
	return func(o *options) {
		o.config["notes_folder"] = folder
	}
}

// WithPattern sets the doublestar pattern selecting card documents inside
// the notes folder. Defaults to "**/*.md".
func WithPattern(pattern string) Option {
	return func(o *options) {
		o.config["pattern"] = pattern
	}
}

// WithDelays overrides the save debounce for ordinary edits and bulk operations.
func WithDelays(delay, bulk time.Duration) Option {
	return func(o *options) {
		o.config["save_delay"] = delay
		o.config["bulk_delay"] = bulk
	}
}

// WithWatcherErrorHandler registers a callback for errors of the watch loop,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Document and settings writes return ErrReadOnly.
// 2. Initialization (mkdir, git init) is skipped.
// 3. The dev sandbox is bypassed (the real path is used).
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`. By default (true) the vault is moved into a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithSQLitePath overrides the location of the sqlite settings database.
// Defaults to settings.db inside the system directory.
func WithSQLitePath(path string) Option {
	return func(o *options) {
		o.config["sqlite_path"] = path
	}
}
