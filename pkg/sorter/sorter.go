// Package sorter orders card lists. Every mode is stable and finishes with
// a partition that moves pinned cards ahead of the rest.
package sorter

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// ModTimeFunc looks up the modification time of a card's document.
type ModTimeFunc func(c *core.Card) (time.Time, bool)

// Options configures a sort.
type Options struct {
	Mode      core.SortMode
	Ascending bool

	// Position resolves a key in the universal order (manual mode).
	Position func(key string) (int, bool)

	// Priority lists status names from first to last (status mode).
	Priority []string

	// ModTime is consulted in modified mode; cards without one fall back to Created.
	ModTime ModTimeFunc
}

// Sort returns a sorted copy of cards.
func Sort(cards []*core.Card, opts Options) []*core.Card {
	out := slices.Clone(cards)

	switch opts.Mode {
	case core.SortManual, "":
		sortManual(out, opts.Position)
	case core.SortCreated:
		slices.SortStableFunc(out, direction(opts.Ascending, func(a, b *core.Card) int {
			return a.Created.Compare(b.Created)
		}))
	case core.SortModified:
		mod := func(c *core.Card) time.Time {
			if opts.ModTime != nil {
				if ts, ok := opts.ModTime(c); ok && !ts.IsZero() {
					return ts
				}
			}
			return c.Created
		}
		slices.SortStableFunc(out, direction(opts.Ascending, func(a, b *core.Card) int {
			return mod(a).Compare(mod(b))
		}))
	case core.SortAlpha:
		slices.SortStableFunc(out, direction(opts.Ascending, func(a, b *core.Card) int {
			return strings.Compare(strings.ToLower(a.Content), strings.ToLower(b.Content))
		}))
	case core.SortStatus:
		sortStatus(out, opts.Priority, opts.Ascending)
	}

	return PinnedFirst(out)
}

func direction(asc bool, cmpFn func(a, b *core.Card) int) func(a, b *core.Card) int {
	if asc {
		return cmpFn
	}
	return func(a, b *core.Card) int { return cmpFn(b, a) }
}

func sortManual(cards []*core.Card, position func(string) (int, bool)) {
	if position == nil {
		return
	}
	slices.SortStableFunc(cards, func(a, b *core.Card) int {
		ia, oka := position(a.Key())
		ib, okb := position(b.Key())
		switch {
		case oka && okb:
			return cmp.Compare(ia, ib)
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
}

// sortStatus orders by the index of the card's status in priority. Unknown
// and missing statuses always come last.
func sortStatus(cards []*core.Card, priority []string, asc bool) {
	rank := make(map[string]int, len(priority))
	for i, name := range priority {
		key := strings.ToLower(name)
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}
	lookup := func(c *core.Card) (int, bool) {
		if c.Status == nil {
			return 0, false
		}
		i, ok := rank[strings.ToLower(c.Status.Name)]
		return i, ok
	}
	slices.SortStableFunc(cards, func(a, b *core.Card) int {
		ia, oka := lookup(a)
		ib, okb := lookup(b)
		switch {
		case oka && okb:
			if asc {
				return cmp.Compare(ia, ib)
			}
			return cmp.Compare(ib, ia)
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
}

// PinnedFirst stably partitions cards so that pinned ones come first.
func PinnedFirst(cards []*core.Card) []*core.Card {
	out := make([]*core.Card, 0, len(cards))
	for _, c := range cards {
		if c.Pinned {
			out = append(out, c)
		}
	}
	for _, c := range cards {
		if !c.Pinned {
			out = append(out, c)
		}
	}
	return out
}
