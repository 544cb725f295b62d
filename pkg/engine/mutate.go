package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

// CreateOptions carries the optional fields of a new card.
type CreateOptions struct {
	store.CreateOptions

	// WithNote creates a document for the card in the notes folder.
	WithNote bool
}

// Mutation describes an edit. Nil fields are left unchanged.
type Mutation struct {
	Content   *string
	Color     *string
	ColorName *string
	Category  *string
	Status    *string // "" clears the status
	ExpiresAt *time.Time

	// Tags replaces the tag list when non-nil; AddTags and RemoveTags apply after it.
	Tags       *[]string
	AddTags    []string
	RemoveTags []string
}

// Empty reports whether the mutation changes nothing.
func (m Mutation) Empty() bool {
	return m.Content == nil && m.Color == nil && m.ColorName == nil && m.Category == nil &&
		m.Status == nil && m.ExpiresAt == nil && m.Tags == nil &&
		len(m.AddTags) == 0 && len(m.RemoveTags) == 0
}

// Create adds a card. With opts.WithNote a document is created right away;
// a failure to create it fails the call and leaves no card behind.
func (e *Engine) Create(ctx context.Context, content string, opts CreateOptions) (core.Card, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return core.Card{}, core.ErrEmptyContent
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return core.Card{}, err
	}

	if opts.Status != nil {
		st, ok := e.lookupStatus(opts.Status.Name)
		if !ok {
			return core.Card{}, fmt.Errorf("%w: %q", core.ErrUnknownStatus, opts.Status.Name)
		}
		opts.Status = &st
	}
	if opts.NotePath != "" || opts.WithNote {
		if e.docs == nil {
			return core.Card{}, fmt.Errorf("card documents: %w", core.ErrUnsupported)
		}
	}

	c := e.store.Create(content, opts.CreateOptions)

	if opts.WithNote && !c.HasNote() {
		p, err := e.ensureUnique(ctx, store.SuggestNotePath(e.folder, content))
		if err != nil {
			e.store.Remove(c.ID)
			return core.Card{}, fmt.Errorf("failed to name card document: %w", err)
		}
		c.NotePath = p
	}
	if c.HasNote() {
		p := core.NormalizePath(c.NotePath)
		text := store.ToDocument("", *c)
		if err := e.docs.Create(ctx, p, text); err != nil {
			e.store.Remove(c.ID)
			return core.Card{}, fmt.Errorf("failed to create card document: %w", err)
		}
		e.noteWritten(p, text)
		e.notes[strings.ToLower(p)] = c.ID
	}

	e.order.Insert(c.Key(), c.Pinned)
	if c.Archived != e.archived {
		e.store.Remove(c.ID)
		e.offView[c.ID] = c.Clone()
	}
	e.requestSave()
	if !c.ExpiresAt.IsZero() {
		e.scheduleSweep()
	}

	e.logger.Debug("card created", "card", c.ID, "note", c.NotePath)
	return c.Clone(), nil
}

// Find resolves a card reference: an id, a document path, or an unambiguous
// id prefix. Off-view cards with pending changes are found too.
func (e *Engine) Find(ref string) (core.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.resolve(ref)
	if err != nil {
		return core.Card{}, err
	}
	return c.Clone(), nil
}

func (e *Engine) resolve(ref string) (*core.Card, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, core.ErrNotFound
	}
	if c := e.card(ref); c != nil {
		return c, nil
	}
	if c, ok := e.store.FindByNotePath(ref); ok {
		return c, nil
	}
	lp := strings.ToLower(core.NormalizePath(ref))
	for id, c := range e.offView {
		if c.HasNote() && strings.ToLower(core.NormalizePath(c.NotePath)) == lp {
			return e.card(id), nil
		}
	}

	var match *core.Card
	for _, c := range e.allCards() {
		if strings.HasPrefix(c.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q is ambiguous", core.ErrNotFound, ref)
			}
			match = c
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrNotFound, ref)
	}
	return e.card(match.ID), nil
}

// Update applies a mutation to a card and schedules the writes.
func (e *Engine) Update(ctx context.Context, ref string, m Mutation) (core.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return core.Card{}, err
	}
	c, err := e.resolve(ref)
	if err != nil {
		return core.Card{}, err
	}

	next := c.Clone()
	if m.Content != nil {
		content := strings.TrimSpace(*m.Content)
		if content == "" {
			return core.Card{}, core.ErrEmptyContent
		}
		next.Content = content
	}
	if m.Color != nil {
		next.Color = *m.Color
		if next.Color == "" {
			next.Color = core.DefaultColor
		}
	}
	if m.ColorName != nil {
		next.ColorName = *m.ColorName
	}
	if m.Category != nil {
		next.Category = strings.TrimSpace(*m.Category)
	}
	if m.Status != nil {
		name := strings.TrimSpace(*m.Status)
		if name == "" {
			next.Status = nil
		} else {
			st, ok := e.lookupStatus(name)
			if !ok {
				return core.Card{}, fmt.Errorf("%w: %q", core.ErrUnknownStatus, name)
			}
			next.Status = &st
		}
	}
	if m.ExpiresAt != nil {
		next.ExpiresAt = *m.ExpiresAt
	}
	if m.Tags != nil {
		next.Tags = store.NormalizeTags(*m.Tags)
	}
	if len(m.AddTags) > 0 {
		next.Tags = store.NormalizeTags(append(slices.Clone(next.Tags), m.AddTags...))
	}
	for _, t := range m.RemoveTags {
		want := core.NormalizeTag(t)
		next.Tags = slices.DeleteFunc(next.Tags, func(have string) bool {
			return core.NormalizeTag(have) == want
		})
	}
	if len(next.Tags) == 0 {
		next.Tags = nil
	}

	e.commit(c, next)
	if m.ExpiresAt != nil {
		e.scheduleSweep()
	}
	return next.Clone(), nil
}

// commit stores the edited card and schedules its writes.
func (e *Engine) commit(c *core.Card, next core.Card) {
	if c.Equal(next) {
		return
	}
	*c = next
	e.markDirty(c)
	e.queueDocument(c)
	e.requestSave()
}

// SetPinned pins or unpins a card.
func (e *Engine) SetPinned(ctx context.Context, ref string, pinned bool) (core.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return core.Card{}, err
	}
	c, err := e.resolve(ref)
	if err != nil {
		return core.Card{}, err
	}
	next := c.Clone()
	next.Pinned = pinned
	e.commit(c, next)
	return next.Clone(), nil
}

// SetArchived moves a card between the active and the archived state. A card
// leaving the loaded view is evicted from it.
func (e *Engine) SetArchived(ctx context.Context, ref string, archived bool) (core.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return core.Card{}, err
	}
	c, err := e.resolve(ref)
	if err != nil {
		return core.Card{}, err
	}
	next := c.Clone()
	next.Archived = archived
	e.setArchivedLocked(c, next)
	return next.Clone(), nil
}

func (e *Engine) setArchivedLocked(c *core.Card, next core.Card) {
	if c.Equal(next) {
		return
	}
	*c = next
	_, inView := e.store.Get(c.ID)
	switch {
	case inView && c.Archived != e.archived:
		e.store.Remove(c.ID)
		e.offView[c.ID] = c.Clone()
	case !inView && c.Archived == e.archived:
		delete(e.offView, c.ID)
		e.store.Add(*c)
	case !inView:
		e.offView[c.ID] = c.Clone()
	}
	e.queueDocument(c)
	e.requestSave()
}

// Delete removes a card and its document.
func (e *Engine) Delete(ctx context.Context, ref string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}
	c, err := e.resolve(ref)
	if err != nil {
		return err
	}
	return e.deleteLocked(ctx, c)
}

func (e *Engine) deleteLocked(ctx context.Context, c *core.Card) error {
	id, key := c.ID, c.Key()
	notePath := core.NormalizePath(c.NotePath)

	e.writer.CancelDocument(id)
	if _, ok := e.store.Delete(id); !ok {
		e.store.MarkDeleted(id)
	}
	delete(e.offView, id)
	e.order.Remove(key)
	e.requestSave()

	if notePath == "" || e.docs == nil {
		return nil
	}
	lp := strings.ToLower(notePath)
	delete(e.notes, lp)
	delete(e.written, lp)
	delete(e.modTimes, lp)
	e.removed[lp] = struct{}{}
	if err := e.docs.Delete(ctx, notePath); err != nil {
		e.logger.Error("failed to delete card document", "path", notePath, "error", err)
		return fmt.Errorf("failed to delete card document: %w", err)
	}
	return nil
}

// Reorder applies a new order of the visible cards, given as card
// references, and makes manual the active sort mode. Cards not visible keep
// their relative positions.
func (e *Engine) Reorder(ctx context.Context, refs []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}

	visible := make([]string, 0, len(refs))
	for _, ref := range refs {
		c, err := e.resolve(ref)
		if err != nil {
			return err
		}
		visible = append(visible, c.Key())
	}
	e.reorderLocked(visible)
	return nil
}

func (e *Engine) reorderLocked(visible []string) {
	known := make([]string, 0, e.store.Len())
	for _, c := range e.store.Cards() {
		known = append(known, c.Key())
	}
	e.order.Reconcile(visible, known)
	e.record.SortMode = core.SortManual
	e.requestSave()
}

// MoveCard moves a card to index within the visible list.
func (e *Engine) MoveCard(ctx context.Context, ref string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}
	c, err := e.resolve(ref)
	if err != nil {
		return err
	}

	var keys []string
	found := false
	for _, v := range e.visibleLocked() {
		if v.ID == c.ID {
			found = true
			continue
		}
		keys = append(keys, v.Key())
	}
	if !found {
		return fmt.Errorf("%w: %q is not visible", core.ErrNotFound, ref)
	}
	index = max(0, min(index, len(keys)))
	keys = slices.Insert(keys, index, c.Key())
	e.reorderLocked(keys)
	return nil
}

// SetSortMode changes the sort mode. Leaving manual first records the
// current manual order, so returning to manual restores it.
func (e *Engine) SetSortMode(ctx context.Context, mode core.SortMode, ascending bool) error {
	mode, err := core.ParseSortMode(string(mode))
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}

	e.writer.BeginBulk()
	defer e.writer.EndBulk()

	if e.record.SortMode == core.SortManual && mode != core.SortManual {
		var keys []string
		for _, c := range e.sortedLocked() {
			keys = append(keys, c.Key())
		}
		e.order.Snapshot(keys)
	}
	if e.record.SortMode == mode && e.record.SortAscending == ascending {
		return nil
	}
	e.record.SortMode = mode
	e.record.SortAscending = ascending
	e.requestSave()
	return nil
}

// SetCategories replaces the custom category definitions.
func (e *Engine) SetCategories(ctx context.Context, categories []core.Category) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}
	e.record.CustomCategories = slices.Clone(categories)
	e.requestSave()
	return nil
}

// SetStatuses replaces the status definitions and their sort priority.
// An empty priority sorts in definition order.
func (e *Engine) SetStatuses(ctx context.Context, statuses []core.Status, priority []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}
	e.record.CardStatuses = slices.Clone(statuses)
	e.record.StatusPriority = slices.Clone(priority)
	e.requestSave()
	return nil
}

// SetExpiryAction selects what the expiry sweep does with expired cards.
func (e *Engine) SetExpiryAction(ctx context.Context, action core.ExpiryAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(ctx); err != nil {
		return err
	}
	e.record.ExpiryAction = action
	e.requestSave()
	return nil
}

// Settings returns the collection settings (without cards).
func (e *Engine) Settings() core.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.record
	r.Cards = nil
	r.ManualOrder = e.order.Keys()
	r.CustomCategories = slices.Clone(r.CustomCategories)
	r.CardStatuses = slices.Clone(r.CardStatuses)
	r.NotesFolder = e.folder
	return r
}
