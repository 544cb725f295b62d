// Package persist writes engine state through to durable storage.
//
// Saves are debounced: bursts of edits collapse into one write of the
// settings record. While a bulk operation (load, import, sort) is running
// the longer bulk delay applies and a save that comes due is deferred
// again, never dropped.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/git"
	"github.com/Kazi-Aidah/sidecards/pkg/schedule"
)

const (
	// DefaultDelay is the debounce applied to ordinary edits.
	DefaultDelay = 250 * time.Millisecond
	// DefaultBulkDelay is the debounce applied during bulk operations.
	DefaultBulkDelay = 800 * time.Millisecond

	saveKey   = "record"
	docPrefix = "doc:"
)

// Config holds the configuration for a Writer.
type Config struct {
	Settings  core.SettingsStore
	Scheduler *schedule.Scheduler
	Logger    *slog.Logger
	Delay     time.Duration
	BulkDelay time.Duration

	// Versioned, when set, receives a commit after every flush that wrote documents.
	Versioned core.Versioned
}

// Snapshot is the engine state a flush writes out.
type Snapshot struct {
	Cards          []core.Card
	Deleted        map[string]struct{}
	Order          []string
	SortMode       core.SortMode
	SortAscending  bool
	Categories     []core.Category
	Statuses       []core.Status
	StatusPriority []string
	FilterColors   core.FilterColors
	ExpiryAction   core.ExpiryAction
	NotesFolder    string

	// Documents is the number of documents written since the last flush.
	Documents int
}

// Result describes a completed flush.
type Result struct {
	Record  core.Record
	Deleted map[string]struct{}
}

// Writer is the persistence scheduler.
type Writer struct {
	config Config
	sched  *schedule.Scheduler

	mu    sync.Mutex
	bulk  int
	saves int
}

// NewWriter creates a writer. Zero delays select the defaults.
func NewWriter(config Config) *Writer {
	if config.Delay <= 0 {
		config.Delay = DefaultDelay
	}
	if config.BulkDelay <= 0 {
		config.BulkDelay = DefaultBulkDelay
	}
	sched := config.Scheduler
	if sched == nil {
		sched = schedule.New(nil)
	}
	return &Writer{config: config, sched: sched}
}

// Scheduler returns the scheduler the writer debounces on.
func (w *Writer) Scheduler() *schedule.Scheduler {
	return w.sched
}

// BeginBulk enters bulk mode. Calls nest.
func (w *Writer) BeginBulk() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bulk++
}

// EndBulk leaves bulk mode.
func (w *Writer) EndBulk() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bulk > 0 {
		w.bulk--
	}
}

// InBulk reports whether a bulk operation is running.
func (w *Writer) InBulk() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bulk > 0
}

func (w *Writer) delay() time.Duration {
	if w.InBulk() {
		return w.config.BulkDelay
	}
	return w.config.Delay
}

// RequestSave schedules fn, replacing any save already pending.
func (w *Writer) RequestSave(fn func()) {
	var run func()
	run = func() {
		if w.InBulk() {
			w.sched.Debounce(saveKey, w.config.BulkDelay, run)
			return
		}
		fn()
	}
	w.sched.Debounce(saveKey, w.delay(), run)
}

// SavePending reports whether a save is scheduled.
func (w *Writer) SavePending() bool {
	return w.sched.Pending(saveKey)
}

// CancelSave drops a scheduled save.
func (w *Writer) CancelSave() bool {
	return w.sched.Cancel(saveKey)
}

// QueueDocument schedules a document write for a card. A later write for
// the same card replaces it.
func (w *Writer) QueueDocument(id string, fn func()) {
	w.sched.Debounce(docPrefix+id, w.config.Delay, fn)
}

// CancelDocument drops a scheduled document write.
func (w *Writer) CancelDocument(id string) bool {
	return w.sched.Cancel(docPrefix + id)
}

// DocumentPending reports whether a document write is scheduled for id.
func (w *Writer) DocumentPending(id string) bool {
	return w.sched.Pending(docPrefix + id)
}

// Saves returns the number of records written.
func (w *Writer) Saves() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saves
}

// Flush reads the stored record, merges the snapshot into it and writes it
// back. The read and the write happen as one pass; concurrent flushes are
// serialized.
func (w *Writer) Flush(ctx context.Context, snap Snapshot) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, err := w.config.Settings.Load(ctx)
	if err != nil {
		if w.config.Logger != nil {
			w.config.Logger.Error("failed to read settings record", "error", err)
		}
		return Result{}, fmt.Errorf("failed to read settings record: %w", err)
	}

	next := prev
	next.Version = core.RecordVersion
	next.Cards = Merge(prev.Cards, snap.Cards, snap.Deleted)
	next.ManualOrder = append([]string{}, snap.Order...)
	next.SortMode = snap.SortMode
	next.SortAscending = snap.SortAscending
	if snap.Categories != nil {
		next.CustomCategories = snap.Categories
	}
	if snap.Statuses != nil {
		next.CardStatuses = snap.Statuses
	}
	next.StatusPriority = snap.StatusPriority
	if snap.FilterColors != nil {
		next.FilterColors = snap.FilterColors
	}
	if snap.ExpiryAction != "" {
		next.ExpiryAction = snap.ExpiryAction
	}
	if snap.NotesFolder != "" {
		next.NotesFolder = snap.NotesFolder
	}
	next.Normalize()

	if err := w.config.Settings.Save(ctx, next); err != nil {
		if w.config.Logger != nil {
			w.config.Logger.Error("failed to write settings record", "error", err)
		}
		return Result{}, fmt.Errorf("failed to write settings record: %w", err)
	}
	w.saves++

	if w.config.Logger != nil {
		w.config.Logger.Debug("settings record saved",
			"cards", len(next.Cards),
			"deleted", len(snap.Deleted),
			"documents", snap.Documents)
	}

	if w.config.Versioned != nil && snap.Documents > 0 {
		msg := git.FormatCommitMessage(git.CommitTypeChore, "cards",
			fmt.Sprintf("sync %d card documents", snap.Documents), "")
		if err := w.config.Versioned.Commit(ctx, msg); err != nil && w.config.Logger != nil {
			w.config.Logger.Warn("failed to commit card documents", "error", err)
		}
	}

	return Result{Record: next, Deleted: snap.Deleted}, nil
}
