package core

import (
	"context"
	"time"
)

// DocumentInfo describes a stored document without its content.
type DocumentInfo struct {
	Path    string
	ModTime time.Time
}

// DocumentStore defines the contract for the external documents backing cards.
// Paths are slash-separated and relative to the store root.
type DocumentStore interface {
	// Read returns the full text of a document. Missing documents yield ErrNotFound.
	Read(ctx context.Context, path string) (string, error)

	// Modify replaces the text of an existing document.
	Modify(ctx context.Context, path, text string) error

	// Create writes a new document. Existing documents yield ErrExists.
	Create(ctx context.Context, path, text string) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a document is present.
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns the document's metadata.
	Stat(ctx context.Context, path string) (DocumentInfo, error)

	// List returns every card document known to the store.
	List(ctx context.Context) ([]DocumentInfo, error)
}

// Watchable is implemented by stores that publish a change stream.
type Watchable interface {
	// Watch emits events until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Versioned is implemented by stores that can record a revision of their content.
type Versioned interface {
	Commit(ctx context.Context, message string) error
}

// SettingsStore persists the durable settings record.
type SettingsStore interface {
	// Load returns the stored record, or DefaultRecord when none exists.
	Load(ctx context.Context) (Record, error)

	// Save replaces the stored record.
	Save(ctx context.Context, r Record) error
}

// Renderer turns a card body into a presentation format. The engine never
// inspects the output.
type Renderer interface {
	Render(ctx context.Context, source string) (string, error)
}

type contextKey string

// ChangeReasonKey is the context key for passing a change reason (commit message) to versioned stores.
const ChangeReasonKey contextKey = "change_reason"
