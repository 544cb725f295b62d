// Package filter decides which cards of a loaded view are visible.
package filter

import (
	"strings"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// Criteria is the set of active predicates. Zero values are inactive,
// except Archived which always selects the archive state to show.
type Criteria struct {
	Archived     bool
	PinnedOnly   bool
	Tags         []string
	UntaggedOnly bool
	Query        string
	Category     string
	Status       string
}

// Active reports whether any predicate beyond the archive state is set.
func (c Criteria) Active() bool {
	return c.PinnedOnly || len(c.Tags) > 0 || c.UntaggedOnly ||
		strings.TrimSpace(c.Query) != "" || c.Category != "" || c.Status != ""
}

// Filter evaluates Criteria against cards.
type Filter struct {
	criteria   Criteria
	query      string
	tags       []string
	categories []string
}

// New compiles criteria. Categories resolve id and label aliases.
func New(c Criteria, categories []core.Category) *Filter {
	f := &Filter{
		criteria: c,
		query:    strings.ToLower(strings.TrimSpace(c.Query)),
	}
	for _, t := range c.Tags {
		if n := core.NormalizeTag(t); n != "" {
			f.tags = append(f.tags, n)
		}
	}
	if c.Category != "" {
		f.categories = CategoryAliases(c.Category, categories)
	}
	return f
}

// CategoryAliases returns the category values that select the same category
// as value. An id match takes precedence over a label match.
func CategoryAliases(value string, categories []core.Category) []string {
	for _, cat := range categories {
		if cat.ID == value {
			return aliases(value, cat.Label)
		}
	}
	for _, cat := range categories {
		if cat.Label == value {
			return aliases(value, cat.ID)
		}
	}
	return []string{value}
}

func aliases(value, other string) []string {
	if other == "" || other == value {
		return []string{value}
	}
	return []string{value, other}
}

// Match reports whether c passes every active predicate.
func (f *Filter) Match(c *core.Card) bool {
	if c.Archived != f.criteria.Archived {
		return false
	}
	if f.criteria.PinnedOnly && !c.Pinned {
		return false
	}
	for _, t := range f.tags {
		if !c.HasTag(t) {
			return false
		}
	}
	if f.criteria.UntaggedOnly && (len(c.Tags) > 0 || c.Category != "") {
		return false
	}
	if f.query != "" && !f.matchQuery(c) {
		return false
	}
	if len(f.categories) > 0 && !matchCategory(c.Category, f.categories) {
		return false
	}
	if f.criteria.Status != "" && (c.Status == nil || c.Status.Name != f.criteria.Status) {
		return false
	}
	return true
}

func (f *Filter) matchQuery(c *core.Card) bool {
	if strings.Contains(strings.ToLower(c.Content), f.query) {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(c.Tags, " ")), f.query)
}

func matchCategory(category string, accepted []string) bool {
	for _, a := range accepted {
		if category == a {
			return true
		}
	}
	return false
}

// Apply returns the visible subset of cards, keeping their order.
func (f *Filter) Apply(cards []*core.Card) []*core.Card {
	out := make([]*core.Card, 0, len(cards))
	for _, c := range cards {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Apply is a shorthand for New(criteria, categories).Apply(cards).
func Apply(cards []*core.Card, criteria Criteria, categories []core.Category) []*core.Card {
	return New(criteria, categories).Apply(cards)
}
