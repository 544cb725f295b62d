package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/lifecycle"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

// HandleEvent applies an external change of a card document. Writes made
// by the engine itself are recognized by their content and ignored.
// It reports whether the event changed engine state.
func (e *Engine) HandleEvent(ctx context.Context, ev core.Event) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return false, err
	}
	if e.docs == nil {
		return false, nil
	}

	p := core.NormalizePath(ev.Path)
	lp := strings.ToLower(p)
	if p == "" {
		return false, nil
	}

	if ev.Type == core.EventDelete {
		// Atomic saves show up as delete followed by create.
		if ok, err := e.docs.Exists(ctx, p); err == nil && ok {
			return e.refreshLocked(ctx, p)
		}
		c := e.cardByPath(lp)
		if c == nil {
			return false, nil
		}
		e.logger.Info("card document removed externally", "card", c.ID, "path", p)
		e.demote(c)
		e.requestSave()
		return true, nil
	}
	return e.refreshLocked(ctx, p)
}

// refreshLocked re-reads a document and applies it to its card, adopting
// the document as a new card when no card references it.
func (e *Engine) refreshLocked(ctx context.Context, p string) (bool, error) {
	lp := strings.ToLower(p)
	text, err := e.docs.Read(ctx, p)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		e.logger.Error("failed to read changed document", "path", p, "error", err)
		return false, fmt.Errorf("failed to read %s: %w", p, err)
	}
	if prev, ok := e.written[lp]; ok && prev == text {
		return false, nil
	}
	if info, err := e.docs.Stat(ctx, p); err == nil {
		e.modTimes[lp] = info.ModTime
	}

	if c := e.cardByPath(lp); c != nil {
		next := c.Clone()
		store.ApplyDocument(&next, text, e.lookupStatus)
		if c.Equal(next) {
			return false, nil
		}
		e.logger.Debug("card refreshed from document", "card", c.ID, "path", p)
		e.written[lp] = text
		if next.Archived != c.Archived {
			e.setArchivedLocked(c, next)
			return true, nil
		}
		*c = next
		e.markDirty(c)
		e.requestSave()
		return true, nil
	}

	if _, owned := e.notes[lp]; owned {
		// The card is in the record but not in memory; the next load of
		// its view reads the document.
		return false, nil
	}
	info, err := e.docs.Stat(ctx, p)
	if err != nil {
		info = core.DocumentInfo{Path: p, ModTime: e.clock.Now()}
	}
	e.adoptLocked(store.FromDocument(info, text, e.lookupStatus))
	e.requestSave()
	return true, nil
}

// adoptLocked adds a card found in a document to memory.
func (e *Engine) adoptLocked(c core.Card) {
	if c.Archived == e.archived {
		if _, added := e.store.Add(c); !added {
			return
		}
	} else {
		e.offView[c.ID] = c.Clone()
	}
	if c.HasNote() {
		e.notes[strings.ToLower(core.NormalizePath(c.NotePath))] = c.ID
	}
	e.order.Ensure([]string{c.Key()})
	e.logger.Debug("card adopted from document", "card", c.ID, "path", c.NotePath)
}

func (e *Engine) cardByPath(lp string) *core.Card {
	if c, ok := e.store.FindByNotePath(lp); ok {
		return c
	}
	for id, c := range e.offView {
		if c.HasNote() && strings.ToLower(core.NormalizePath(c.NotePath)) == lp {
			return e.card(id)
		}
	}
	return nil
}

// Watch subscribes to the document store's change stream and applies every
// event. Events that changed engine state are forwarded on the returned
// channel, which closes when ctx ends or the stream closes.
func (e *Engine) Watch(ctx context.Context) (<-chan core.Event, error) {
	w, ok := e.docs.(core.Watchable)
	if !ok {
		return nil, fmt.Errorf("watch: %w", core.ErrUnsupported)
	}
	in, err := w.Watch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to watch documents: %w", err)
	}

	out := make(chan core.Event, 16)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-in:
				if !ok {
					return nil
				}
				changed, err := e.HandleEvent(ctx, ev)
				if err != nil {
					e.logger.Warn("failed to apply document change", "event", ev.String(), "error", err)
					continue
				}
				if !changed {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		e.logger.Error("watch loop failed", "error", err)
	}))
	return out, nil
}

// Import scans the document store and adopts documents no card references
// yet, without reloading the view. It runs in bulk mode and returns the
// number of adopted documents.
func (e *Engine) Import(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return 0, err
	}
	if e.docs == nil {
		return 0, fmt.Errorf("import: %w", core.ErrUnsupported)
	}

	e.writer.BeginBulk()
	defer e.writer.EndBulk()

	known := make(map[string]bool)
	for _, c := range e.allCards() {
		if c.HasNote() {
			known[strings.ToLower(core.NormalizePath(c.NotePath))] = true
		}
	}
	// Cards of the other archive state are only in the record.
	if rec, err := e.settings.Load(ctx); err == nil {
		for _, c := range rec.Cards {
			if _, gone := e.store.PendingDeletions()[c.ID]; gone {
				continue
			}
			if c.HasNote() {
				known[strings.ToLower(core.NormalizePath(c.NotePath))] = true
			}
		}
	} else {
		e.logger.Warn("import continues without the settings record", "error", err)
	}

	infos, err := e.docs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	adopted := 0
	for _, info := range infos {
		lp := strings.ToLower(core.NormalizePath(info.Path))
		if known[lp] {
			continue
		}
		text, err := e.docs.Read(ctx, info.Path)
		if err != nil {
			e.logger.Warn("skipping unreadable document", "path", info.Path, "error", err)
			continue
		}
		e.modTimes[lp] = info.ModTime
		e.adoptLocked(store.FromDocument(info, text, e.lookupStatus))
		known[lp] = true
		adopted++
	}
	if adopted > 0 {
		e.requestSave()
		e.scheduleSweep()
	}
	return adopted, nil
}
