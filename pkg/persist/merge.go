package persist

import "github.com/Kazi-Aidah/sidecards/pkg/core"

// Merge overlays the cards of the loaded view onto the previously persisted
// card list. Records named in deleted are dropped, records matching a loaded
// card by id are replaced in place, loaded cards not yet persisted are
// appended, and every other record is kept untouched. This is what lets an
// archived view save without erasing the cards of the active view.
func Merge(prev []core.Card, loaded []core.Card, deleted map[string]struct{}) []core.Card {
	byID := make(map[string]int, len(loaded))
	for i, c := range loaded {
		byID[c.ID] = i
	}

	used := make(map[string]bool, len(loaded))
	out := make([]core.Card, 0, len(prev)+len(loaded))
	for _, c := range prev {
		if _, gone := deleted[c.ID]; gone {
			continue
		}
		if used[c.ID] {
			continue
		}
		if i, ok := byID[c.ID]; ok {
			out = append(out, loaded[i].Clone())
			used[c.ID] = true
			continue
		}
		out = append(out, c)
	}
	for _, c := range loaded {
		if used[c.ID] {
			continue
		}
		if _, gone := deleted[c.ID]; gone {
			continue
		}
		used[c.ID] = true
		out = append(out, c.Clone())
	}
	return out
}
