// Package engine composes the card store, the universal order, sorting,
// filtering and the persistence scheduler into the card collection engine.
//
// All operations are safe for concurrent callers. They are serialized on one
// mutex; deferred work (debounced saves, document writes, expiry sweeps) runs
// on the scheduler and re-enters through the same mutex, so the engine
// behaves as a single logical thread.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/filter"
	"github.com/Kazi-Aidah/sidecards/pkg/order"
	"github.com/Kazi-Aidah/sidecards/pkg/persist"
	"github.com/Kazi-Aidah/sidecards/pkg/schedule"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

const expiryKey = "expiry"

// Engine is the card collection and synchronization engine.
type Engine struct {
	settings  core.SettingsStore
	docs      core.DocumentStore
	renderer  core.Renderer
	logger    *slog.Logger
	clock     schedule.Clock
	sched     *schedule.Scheduler
	writer    *persist.Writer
	folder    string
	versioned bool

	mu       sync.Mutex
	store    *store.Store
	order    *order.Resolver
	record   core.Record // collection settings; Cards is unused
	criteria filter.Criteria
	archived bool
	opened   bool
	closed   bool

	// offView holds cards changed in memory that are not part of the loaded
	// view (archive toggles, view switches, imports of the other state). They
	// ride along with the next flush so the change is not lost. Cards with a
	// pending expiry stay after the flush so the sweep can reach them.
	offView map[string]core.Card

	notes     map[string]string    // lower-cased path -> id of the card it belongs to, any view
	written   map[string]string    // lower-cased path -> text last written by the engine
	modTimes  map[string]time.Time // lower-cased path -> document modification time
	removed   map[string]struct{}  // lower-cased paths deleted since the last install
	docWrites int
	lastFlush time.Time
	lastErr   error
}

type options struct {
	docs       core.DocumentStore
	renderer   core.Renderer
	logger     *slog.Logger
	clock      schedule.Clock
	folder     string
	delay      time.Duration
	bulkDelay  time.Duration
	newID      func() string
	versioning bool
}

// Option configures an Engine.
type Option func(*options)

// WithDocuments attaches the store holding card documents. Without one,
// cards are content-only.
func WithDocuments(docs core.DocumentStore) Option {
	return func(o *options) { o.docs = docs }
}

// WithRenderer attaches the renderer used by Render.
func WithRenderer(r core.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock injects the time source for timestamps and deferred work.
func WithClock(clock schedule.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithNotesFolder sets the folder new card documents are created in.
func WithNotesFolder(folder string) Option {
	return func(o *options) { o.folder = core.NormalizePath(folder) }
}

// WithDelays overrides the normal and bulk save debounce.
func WithDelays(delay, bulk time.Duration) Option {
	return func(o *options) {
		o.delay = delay
		o.bulkDelay = bulk
	}
}

// WithIDGenerator overrides card id assignment.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithVersioning commits document changes after each flush when the document
// store supports it. Enabled by default.
func WithVersioning(enabled bool) Option {
	return func(o *options) { o.versioning = enabled }
}

// New creates an engine over the settings store. Nothing is read until Open
// or Load is called.
func New(settings core.SettingsStore, opts ...Option) *Engine {
	o := &options{versioning: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.clock == nil {
		o.clock = schedule.RealClock()
	}

	sched := schedule.New(o.clock)
	cfg := persist.Config{
		Settings:  settings,
		Scheduler: sched,
		Logger:    o.logger,
		Delay:     o.delay,
		BulkDelay: o.bulkDelay,
	}
	if v, ok := o.docs.(core.Versioned); ok && o.versioning {
		cfg.Versioned = v
	}

	storeOpts := []store.Option{store.WithClock(o.clock.Now)}
	if o.newID != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(o.newID))
	}

	return &Engine{
		settings:  settings,
		docs:      o.docs,
		renderer:  o.renderer,
		logger:    o.logger,
		clock:     o.clock,
		sched:     sched,
		writer:    persist.NewWriter(cfg),
		folder:    o.folder,
		versioned: cfg.Versioned != nil,
		store:     store.New(storeOpts...),
		order:     order.New(nil),
		record:    core.DefaultRecord(),
		offView:   make(map[string]core.Card),
		notes:     make(map[string]string),
		written:   make(map[string]string),
		modTimes:  make(map[string]time.Time),
		removed:   make(map[string]struct{}),
	}
}

// Open reads the durable record: sort preferences, universal order,
// categories and statuses. A failed read leaves defaults in place.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return core.ErrClosed
	}
	return e.openLocked(ctx)
}

func (e *Engine) openLocked(ctx context.Context) error {
	rec, err := e.settings.Load(ctx)
	if err != nil {
		e.logger.Error("failed to read settings", "error", err)
		return fmt.Errorf("failed to open settings: %w", err)
	}
	e.applyRecord(rec)
	// Cards created while the record was unreadable keep their place.
	for _, c := range e.allCards() {
		e.order.Ensure([]string{c.Key()})
	}
	e.opened = true
	return nil
}

// ready opens the engine on first use and rejects calls after Close.
func (e *Engine) ready(ctx context.Context) error {
	if e.closed {
		return core.ErrClosed
	}
	if !e.opened {
		// Until the record is readable nothing is flushed, so defaults
		// never overwrite it.
		_ = e.openLocked(ctx)
	}
	return nil
}

func (e *Engine) applyRecord(rec core.Record) {
	rec.Normalize()
	e.order = order.New(rec.ManualOrder)
	rec.Cards = nil
	e.record = rec
	if e.folder == "" {
		e.folder = core.NormalizePath(rec.NotesFolder)
	}
}

// Close flushes pending work and stops deferred tasks. Further calls return
// ErrClosed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	err := e.flushLocked(ctx, true)
	e.closed = true
	e.store.Invalidate()
	e.mu.Unlock()

	// Outside the lock: a callback may be waiting for it.
	e.sched.Stop()
	return err
}

// Flush performs every pending document write and saves the record now.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return core.ErrClosed
	}
	return e.flushLocked(ctx, true)
}

func (e *Engine) flushLocked(ctx context.Context, docs bool) error {
	if !e.opened {
		return nil
	}
	if docs {
		for _, c := range e.allCards() {
			if e.writer.CancelDocument(c.ID) {
				e.writeDocumentLocked(ctx, c.ID)
			}
		}
	}
	e.writer.CancelSave()

	snap := persist.Snapshot{
		Cards:          e.allCardsSnapshot(),
		Deleted:        e.store.PendingDeletions(),
		Order:          e.order.Keys(),
		SortMode:       e.record.SortMode,
		SortAscending:  e.record.SortAscending,
		Categories:     e.record.CustomCategories,
		Statuses:       e.record.CardStatuses,
		StatusPriority: e.record.StatusPriority,
		FilterColors:   e.record.FilterColors,
		ExpiryAction:   e.record.ExpiryAction,
		NotesFolder:    e.folder,
		Documents:      e.docWrites,
	}
	res, err := e.writer.Flush(ctx, snap)
	if err != nil {
		e.lastErr = err
		return err
	}
	e.store.ClearDeletions(res.Deleted)
	maps.DeleteFunc(e.offView, func(_ string, c core.Card) bool {
		return !e.sweepable(c)
	})
	e.docWrites = 0
	e.lastFlush = e.clock.Now()
	e.lastErr = nil
	return nil
}

// requestSave schedules a debounced flush of the record.
func (e *Engine) requestSave() {
	e.writer.RequestSave(e.saveCallback)
}

func (e *Engine) saveCallback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	// Errors are logged by the writer; memory stays authoritative.
	_ = e.flushLocked(context.Background(), false)
}

// queueDocument schedules a write of the card's document.
func (e *Engine) queueDocument(c *core.Card) {
	if e.docs == nil || !c.HasNote() {
		return
	}
	id := c.ID
	e.writer.QueueDocument(id, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.writeDocumentLocked(context.Background(), id)
		if !e.writer.SavePending() && e.docWrites > 0 {
			e.requestSave()
		}
	})
}

// writeDocumentLocked writes the card's fields and content into its
// document. A missing document demotes the card to content-only; other
// failures are logged and the write is abandoned.
func (e *Engine) writeDocumentLocked(ctx context.Context, id string) {
	c := e.card(id)
	if c == nil || !c.HasNote() || e.docs == nil {
		return
	}
	p := core.NormalizePath(c.NotePath)
	text, err := e.docs.Read(ctx, p)
	if err != nil {
		if isNotFound(err) {
			e.logger.Warn("card document missing, keeping card without it", "card", c.ID, "path", p)
			e.demote(c)
			e.requestSave()
			return
		}
		e.logger.Error("failed to read card document", "path", p, "error", err)
		return
	}
	next := store.ToDocument(text, *c)
	if next == text {
		return
	}
	if err := e.docs.Modify(ctx, p, next); err != nil {
		e.logger.Error("failed to write card document", "path", p, "error", err)
		return
	}
	e.noteWritten(p, next)
}

func (e *Engine) noteWritten(p, text string) {
	lp := strings.ToLower(core.NormalizePath(p))
	e.written[lp] = text
	e.modTimes[lp] = e.clock.Now()
	e.docWrites++
}

// demote drops the card's document reference, keeping its place in the
// universal order under its new key.
func (e *Engine) demote(c *core.Card) {
	prev := c.Key()
	lp := strings.ToLower(core.NormalizePath(c.NotePath))
	c.NotePath = ""
	e.order.Rename(prev, c.Key())
	delete(e.notes, lp)
	delete(e.written, lp)
	delete(e.modTimes, lp)
	e.markDirty(c)
}

// markDirty records an off-view card so the next flush carries it.
func (e *Engine) markDirty(c *core.Card) {
	if _, ok := e.store.Get(c.ID); ok {
		return
	}
	e.offView[c.ID] = c.Clone()
}

// card finds a card by id in the view or among off-view changes. Off-view
// cards are returned as pointers into a private copy that markDirty stores
// back.
func (e *Engine) card(id string) *core.Card {
	if c, ok := e.store.Get(id); ok {
		return c
	}
	if c, ok := e.offView[id]; ok {
		cp := c
		return &cp
	}
	return nil
}

// allCards returns the loaded cards followed by off-view changes.
func (e *Engine) allCards() []*core.Card {
	out := e.store.Cards()
	for id := range e.offView {
		c := e.offView[id]
		out = append(out, &c)
	}
	return out
}

func (e *Engine) allCardsSnapshot() []core.Card {
	out := e.store.Snapshot()
	for _, c := range e.offView {
		out = append(out, c.Clone())
	}
	return out
}

func (e *Engine) lookupStatus(name string) (core.Status, bool) {
	return e.record.LookupStatus(name)
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := EngineState{
		View:             viewName(e.archived),
		Cards:            e.store.Len(),
		OffView:          len(e.offView),
		OrderLength:      e.order.Len(),
		SortMode:         string(e.record.SortMode),
		SortAscending:    e.record.SortAscending,
		LoadState:        e.store.LoadState().String(),
		PendingDeletions: len(e.store.PendingDeletions()),
		SavePending:      e.writer.SavePending(),
		BulkMode:         e.writer.InBulk(),
		Saves:            e.writer.Saves(),
		Versioned:        e.versioned,
		Closed:           e.closed,
	}
	if !e.lastFlush.IsZero() {
		t := e.lastFlush
		st.LastFlush = &t
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "card-engine"
}

// EngineState is the introspection snapshot of an Engine.
type EngineState struct {
	View             string     `json:"view"`
	Cards            int        `json:"cards"`
	OffView          int        `json:"off_view"`
	OrderLength      int        `json:"order_length"`
	SortMode         string     `json:"sort_mode"`
	SortAscending    bool       `json:"sort_ascending"`
	LoadState        string     `json:"load_state"`
	PendingDeletions int        `json:"pending_deletions"`
	SavePending      bool       `json:"save_pending"`
	BulkMode         bool       `json:"bulk_mode"`
	Saves            int        `json:"saves"`
	Versioned        bool       `json:"versioned"`
	Closed           bool       `json:"closed"`
	LastFlush        *time.Time `json:"last_flush,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)

func viewName(archived bool) string {
	if archived {
		return "archived"
	}
	return "active"
}
