package sidecards

import (
	"log/slog"
	"time"

	"github.com/Kazi-Aidah/sidecards/internal/platform"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/engine"
	"github.com/Kazi-Aidah/sidecards/pkg/filter"
	"github.com/Kazi-Aidah/sidecards/pkg/schedule"
)

// Version is the library version.
const Version = "0.4.0"

// --- Types ---

// Vault is an opened card collection bound to its stores.
type Vault = platform.Vault

// Card is a public alias for the card model.
type Card = core.Card

// CreateOptions carries the optional fields of a new card.
type CreateOptions = engine.CreateOptions

// Mutation describes an edit of a card.
type Mutation = engine.Mutation

// Criteria selects the visible subset of the loaded cards.
type Criteria = filter.Criteria

// Row is the presentation form of a visible card.
type Row = engine.Row

// --- Configuration ---

// Option defines a functional option for configuring a vault.
type Option = platform.Option

// WithAutoInit creates the vault directory (and git repository) when missing.
func WithAutoInit(auto bool) Option { return platform.WithAutoInit(auto) }

// WithVersioning enables or disables git commits of card documents.
func WithVersioning(enabled bool) Option { return platform.WithVersioning(enabled) }

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option { return platform.WithForceTemp(force) }

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option { return platform.WithMustExist(must) }

// WithLogger sets the logger for the vault.
func WithLogger(logger *slog.Logger) Option { return platform.WithLogger(logger) }

// WithDocuments injects a custom document store.
func WithDocuments(docs core.DocumentStore) Option { return platform.WithDocuments(docs) }

// WithSettings injects a custom settings store.
func WithSettings(s core.SettingsStore) Option { return platform.WithSettings(s) }

// WithRenderer replaces the Markdown renderer.
func WithRenderer(r core.Renderer) Option { return platform.WithRenderer(r) }

// WithClock injects the time source.
func WithClock(c schedule.Clock) Option { return platform.WithClock(c) }

// WithAdapter selects the document adapter by name ("fs" or "memory").
func WithAdapter(name string) Option { return platform.WithAdapter(name) }

// WithSettingsBackend selects the settings backend ("json", "sqlite", "redis" or "memory").
func WithSettingsBackend(name string) Option { return platform.WithSettingsBackend(name) }

// WithRedis configures the redis settings backend.
func WithRedis(addr, password string, db int) Option { return platform.WithRedis(addr, password, db) }

// WithSystemDir sets the hidden directory name (e.g. ".sidecards").
func WithSystemDir(name string) Option { return platform.WithSystemDir(name) }

// WithNotesFolder sets the folder holding card documents.
func WithNotesFolder(folder string) Option { return platform.WithNotesFolder(folder) }

// WithDelays overrides the save debounce.
func WithDelays(delay, bulk time.Duration) Option { return platform.WithDelays(delay, bulk) }

// WithReadOnly opens the vault without writing anything.
func WithReadOnly(enabled bool) Option { return platform.WithReadOnly(enabled) }

// WithDevSafety controls the `go run`/`go test` sandbox.
func WithDevSafety(enabled bool) Option { return platform.WithDevSafety(enabled) }

// --- Factory ---

// New opens the vault at path.
func New(path string, opts ...Option) (*Vault, error) {
	return platform.New(path, opts...)
}

// Init prepares the document store of a vault without opening it.
func Init(path string, opts ...Option) (core.DocumentStore, error) {
	return platform.Init(path, opts...)
}

// FindVaultRoot looks upwards from startDir for a vault root.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
