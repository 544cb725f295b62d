package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/persist"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

// LoadResult summarizes a view load.
type LoadResult struct {
	Archived bool `json:"archived"`
	Cards    int  `json:"cards"`   // cards in the loaded view
	Adopted  int  `json:"adopted"` // documents turned into new cards
	Demoted  int  `json:"demoted"` // cards whose document was missing
	Refresh  int  `json:"refresh"` // cards updated from their document
	Partial  bool `json:"partial"` // some storage could not be read
}

type document struct {
	info core.DocumentInfo
	text string
}

// gathered is what a load reads from storage, outside the engine lock.
type gathered struct {
	record  core.Record
	docs    map[string]document // lower-cased path
	missing map[string]struct{} // lower-cased path of confirmed missing documents
	partial bool
}

// Load switches the view to cards of the given archive state. While a load
// is in flight a further request is queued and ErrLoadQueued returned; the
// queued request runs once the current load finishes, and only when it asks
// for the other archive state.
//
// Loading never fails on storage errors: unreadable parts are skipped and
// reported through LoadResult.Partial.
func (e *Engine) Load(ctx context.Context, archived bool) (LoadResult, error) {
	e.mu.Lock()
	if err := e.ready(ctx); err != nil {
		e.mu.Unlock()
		return LoadResult{}, err
	}
	ticket, ok := e.store.BeginLoad(store.LoadRequest{Archived: archived})
	if !ok {
		e.mu.Unlock()
		return LoadResult{Archived: archived}, core.ErrLoadQueued
	}
	e.writer.BeginBulk()
	defer e.writer.EndBulk()
	e.mu.Unlock()

	var res LoadResult
	for {
		g := e.gather(ctx)

		e.mu.Lock()
		if e.store.Valid(ticket) {
			res = e.install(g, archived)
		}
		next := e.store.FinishLoad(ticket)
		if next == nil {
			e.mu.Unlock()
			return res, nil
		}
		archived = next.Archived
		ticket, _ = e.store.BeginLoad(*next)
		e.mu.Unlock()

		e.logger.Debug("running queued load", "view", viewName(archived))
	}
}

// gather reads the record and every card document. It runs without the
// engine lock.
func (e *Engine) gather(ctx context.Context) gathered {
	g := gathered{
		docs:    make(map[string]document),
		missing: make(map[string]struct{}),
	}

	rec, err := e.settings.Load(ctx)
	if err != nil {
		e.logger.Error("failed to read settings during load", "error", err)
		rec = core.DefaultRecord()
		g.partial = true
	}
	g.record = rec

	if e.docs == nil {
		return g
	}

	infos, err := e.docs.List(ctx)
	if err != nil {
		e.logger.Error("failed to list card documents", "error", err)
		g.partial = true
	}
	for _, info := range infos {
		text, err := e.docs.Read(ctx, info.Path)
		if err != nil {
			e.logger.Warn("skipping unreadable card document", "path", info.Path, "error", err)
			g.partial = true
			continue
		}
		g.docs[strings.ToLower(core.NormalizePath(info.Path))] = document{info: info, text: text}
	}

	// Documents referenced by the record but outside the listing (another
	// folder, another pattern) are read directly.
	for _, c := range rec.Cards {
		if !c.HasNote() {
			continue
		}
		p := core.NormalizePath(c.NotePath)
		lp := strings.ToLower(p)
		if _, ok := g.docs[lp]; ok {
			continue
		}
		text, err := e.docs.Read(ctx, p)
		if err != nil {
			if isNotFound(err) {
				g.missing[lp] = struct{}{}
			} else {
				g.partial = true
			}
			continue
		}
		info, err := e.docs.Stat(ctx, p)
		if err != nil {
			info = core.DocumentInfo{Path: p}
		}
		g.docs[lp] = document{info: info, text: text}
	}
	return g
}

// install merges the gathered state with memory and replaces the view.
// Memory wins over the record for cards it holds; documents win over both
// for the fields they carry, unless a write of that document is pending.
func (e *Engine) install(g gathered, archived bool) LoadResult {
	res := LoadResult{Archived: archived, Partial: g.partial}

	if !e.opened && !g.partial {
		e.applyRecord(g.record)
		e.opened = true
	}

	inMemory := e.allCardsSnapshot()
	cards := persist.Merge(g.record.Cards, inMemory, e.store.PendingDeletions())

	dirty := make(map[string]bool)
	referenced := make(map[string]bool)
	for i := range cards {
		c := &cards[i]
		if !c.HasNote() {
			continue
		}
		lp := strings.ToLower(core.NormalizePath(c.NotePath))
		if _, gone := g.missing[lp]; gone {
			e.logger.Info("card document missing, keeping card without it", "card", c.ID, "path", c.NotePath)
			e.demote(c)
			dirty[c.ID] = true
			res.Demoted++
			continue
		}
		referenced[lp] = true
		d, ok := g.docs[lp]
		if !ok {
			continue
		}
		e.modTimes[lp] = d.info.ModTime
		if e.writer.DocumentPending(c.ID) {
			continue
		}
		before := c.Clone()
		store.ApplyDocument(c, d.text, e.lookupStatus)
		if !before.Equal(*c) {
			dirty[c.ID] = true
			res.Refresh++
		}
	}

	// Unreferenced documents become cards, in path order. Documents of
	// cards deleted while the load was reading are gone already.
	paths := make([]string, 0, len(g.docs))
	for lp := range g.docs {
		if _, gone := e.removed[lp]; gone || referenced[lp] {
			continue
		}
		paths = append(paths, lp)
	}
	clear(e.removed)
	sort.Strings(paths)
	for _, lp := range paths {
		d := g.docs[lp]
		c := store.FromDocument(d.info, d.text, e.lookupStatus)
		e.modTimes[lp] = d.info.ModTime
		cards = append(cards, c)
		dirty[c.ID] = true
		res.Adopted++
	}

	cards = store.Dedup(cards)

	known := make([]string, 0, len(cards))
	var view []core.Card
	e.notes = make(map[string]string, len(cards))
	for _, c := range cards {
		known = append(known, c.Key())
		if c.HasNote() {
			e.notes[strings.ToLower(core.NormalizePath(c.NotePath))] = c.ID
		}
		if c.Archived == archived {
			view = append(view, c)
		}
	}
	orderChanged := e.order.Ensure(known)

	previous := make(map[string]bool, len(inMemory))
	for _, c := range inMemory {
		previous[c.ID] = true
	}

	e.store.Replace(view)
	e.archived = archived
	e.criteria.Archived = archived

	// Cards leaving the view with unsaved changes, or changed by this load,
	// are carried by the next flush. Cards of the other view with a pending
	// expiry stay in memory for the sweep.
	offView := make(map[string]core.Card)
	for _, c := range cards {
		if c.Archived == archived {
			continue
		}
		if dirty[c.ID] || previous[c.ID] || e.sweepable(c) {
			offView[c.ID] = c.Clone()
		}
	}
	e.offView = offView

	res.Cards = e.store.Len()
	if len(dirty) > 0 || orderChanged {
		e.requestSave()
	}
	e.scheduleSweep()

	e.logger.Debug("view loaded",
		"view", viewName(archived),
		"cards", res.Cards,
		"adopted", res.Adopted,
		"demoted", res.Demoted)
	return res
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrDocNotFound)
}

// ensureUnique returns p, or p with a numeric suffix when a document with
// that path already exists.
func (e *Engine) ensureUnique(ctx context.Context, p string) (string, error) {
	base := strings.TrimSuffix(p, ".md")
	candidate := p
	for i := 2; ; i++ {
		exists, err := e.docs.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			if _, taken := e.store.FindByNotePath(candidate); !taken {
				return candidate, nil
			}
		}
		if i > 1000 {
			return "", fmt.Errorf("%w: no free name for %s", core.ErrExists, p)
		}
		candidate = fmt.Sprintf("%s %d.md", base, i)
	}
}
