// Package store keeps the in-memory collection of cards for the current view.
package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// CreateOptions carries the optional fields of a new card.
type CreateOptions struct {
	ID        string
	Color     string
	ColorName string
	Tags      []string
	Category  string
	Status    *core.Status
	Pinned    bool
	Archived  bool
	ExpiresAt time.Time
	Created   time.Time
	NotePath  string
}

// Store holds the cards of the loaded view together with the set of ids
// deleted since the last successful save.
// Store is not safe for concurrent use; the engine serializes access.
type Store struct {
	cards   []*core.Card
	byID    map[string]*core.Card
	deleted map[string]struct{}
	load    loadState

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for Created defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id assignment.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		byID:    make(map[string]*core.Card),
		deleted: make(map[string]struct{}),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a new card. Pinned cards go to the head of the list, others to the tail.
func (s *Store) Create(content string, opts CreateOptions) *core.Card {
	id := opts.ID
	for id == "" || s.byID[id] != nil {
		id = s.newID()
	}
	created := opts.Created
	if created.IsZero() {
		created = s.now()
	}
	color := opts.Color
	if color == "" {
		color = core.DefaultColor
	}

	c := &core.Card{
		ID:        id,
		Content:   content,
		Color:     color,
		ColorName: opts.ColorName,
		Tags:      dedupTags(opts.Tags),
		Category:  opts.Category,
		Created:   created,
		ExpiresAt: opts.ExpiresAt,
		Archived:  opts.Archived,
		Pinned:    opts.Pinned,
		NotePath:  core.NormalizePath(opts.NotePath),
	}
	if opts.Status != nil {
		st := *opts.Status
		c.Status = &st
	}

	if c.Pinned {
		s.cards = append([]*core.Card{c}, s.cards...)
	} else {
		s.cards = append(s.cards, c)
	}
	s.byID[c.ID] = c
	delete(s.deleted, c.ID)
	return c
}

// Add appends an existing card (for example one imported from a document).
// It reports false when a card with the same id or note path is already present.
func (s *Store) Add(c core.Card) (*core.Card, bool) {
	if s.byID[c.ID] != nil {
		return s.byID[c.ID], false
	}
	if c.HasNote() {
		if existing, ok := s.FindByNotePath(c.NotePath); ok {
			return existing, false
		}
	}
	cp := c.Clone()
	s.cards = append(s.cards, &cp)
	s.byID[cp.ID] = &cp
	return &cp, true
}

// Get returns the card with the given id.
func (s *Store) Get(id string) (*core.Card, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// FindByNotePath looks a card up by its document path, ignoring case.
func (s *Store) FindByNotePath(p string) (*core.Card, bool) {
	want := strings.ToLower(core.NormalizePath(p))
	if want == "" {
		return nil, false
	}
	for _, c := range s.cards {
		if strings.ToLower(core.NormalizePath(c.NotePath)) == want {
			return c, true
		}
	}
	return nil, false
}

// Cards returns the cards in store order. The slice is a copy; the cards are not.
func (s *Store) Cards() []*core.Card {
	return append([]*core.Card(nil), s.cards...)
}

// Snapshot returns deep copies of the cards in store order.
func (s *Store) Snapshot() []core.Card {
	out := make([]core.Card, len(s.cards))
	for i, c := range s.cards {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of loaded cards.
func (s *Store) Len() int {
	return len(s.cards)
}

// Replace installs a freshly loaded view. Duplicates are collapsed.
func (s *Store) Replace(cards []core.Card) {
	cards = Dedup(cards)
	s.cards = make([]*core.Card, len(cards))
	s.byID = make(map[string]*core.Card, len(cards))
	for i := range cards {
		c := cards[i].Clone()
		s.cards[i] = &c
		s.byID[c.ID] = &c
	}
}

// Remove drops a card from the loaded view without marking it deleted,
// e.g. when it moves to the other archive state.
func (s *Store) Remove(id string) (*core.Card, bool) {
	c, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	delete(s.byID, id)
	for i, cc := range s.cards {
		if cc == c {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			break
		}
	}
	return c, true
}

// Delete removes a card and records the deletion until a save incorporates it.
func (s *Store) Delete(id string) (*core.Card, bool) {
	c, ok := s.Remove(id)
	if ok {
		s.deleted[id] = struct{}{}
	}
	return c, ok
}

// MarkDeleted records a deletion for a card that is not loaded.
func (s *Store) MarkDeleted(id string) {
	s.deleted[id] = struct{}{}
}

// PendingDeletions returns a copy of the pending deletion set.
func (s *Store) PendingDeletions() map[string]struct{} {
	out := make(map[string]struct{}, len(s.deleted))
	for id := range s.deleted {
		out[id] = struct{}{}
	}
	return out
}

// ClearDeletions forgets the given ids once a save has incorporated them.
func (s *Store) ClearDeletions(ids map[string]struct{}) {
	for id := range ids {
		delete(s.deleted, id)
	}
}

// Dedup collapses cards sharing a note path (case-insensitive) or, for cards
// without a document, an id. The first occurrence wins. Cards repeating an
// id already taken are dropped as well.
func Dedup(cards []core.Card) []core.Card {
	seenKey := make(map[string]struct{}, len(cards))
	seenID := make(map[string]struct{}, len(cards))
	out := make([]core.Card, 0, len(cards))
	for _, c := range cards {
		if c.ID == "" {
			continue
		}
		k := c.DedupKey()
		if _, dup := seenKey[k]; dup {
			continue
		}
		if _, dup := seenID[c.ID]; dup {
			continue
		}
		seenKey[k] = struct{}{}
		seenID[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		n := core.NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeTags trims, strips '#' and removes case-insensitive duplicates,
// keeping the first spelling and insertion order.
func NormalizeTags(tags []string) []string {
	return dedupTags(tags)
}
