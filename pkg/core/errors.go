package core

import "errors"

// Common errors.
var (
	ErrNotFound        = errors.New("card not found")
	ErrDocNotFound     = errors.New("document not found")
	ErrExists          = errors.New("document already exists")
	ErrEmptyContent    = errors.New("card content is empty")
	ErrReadOnly        = errors.New("store is in read-only mode")
	ErrClosed          = errors.New("engine is closed")
	ErrLoadQueued      = errors.New("load queued behind the one in flight")
	ErrUnknownSortMode = errors.New("unknown sort mode")
	ErrInvalidPath     = errors.New("invalid document path")
	ErrUnknownStatus   = errors.New("unknown status")
	ErrUnsupported     = errors.New("operation not supported by the configured stores")
)
