package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/filter"
	"github.com/Kazi-Aidah/sidecards/pkg/sorter"
)

// Row is the render-agnostic description of one visible card.
type Row struct {
	Index           int       `json:"index"`
	ID              string    `json:"id"`
	Key             string    `json:"key"`
	Content         string    `json:"content"`
	Color           string    `json:"color"`
	ColorName       string    `json:"colorName,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Category        string    `json:"category,omitempty"`
	CategoryLabel   string    `json:"categoryLabel,omitempty"`
	CategoryColor   string    `json:"categoryColor,omitempty"`
	Status          string    `json:"status,omitempty"`
	StatusColor     string    `json:"statusColor,omitempty"`
	StatusTextColor string    `json:"statusTextColor,omitempty"`
	Pinned          bool      `json:"pinned,omitempty"`
	Archived        bool      `json:"archived,omitempty"`
	NotePath        string    `json:"notePath,omitempty"`
	Created         time.Time `json:"created,omitzero"`
	ExpiresAt       time.Time `json:"expiresAt,omitzero"`
	Expired         bool      `json:"expired,omitempty"`
}

// SetFilter replaces the active filter. The archive state is owned by Load
// and is ignored here.
func (e *Engine) SetFilter(c filter.Criteria) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c.Archived = e.archived
	e.criteria = c
}

// Filter returns the active filter.
func (e *Engine) Filter() filter.Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// Archived reports which archive state the loaded view shows.
func (e *Engine) Archived() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.archived
}

// Visible returns the loaded cards that pass the filter, in sort order.
func (e *Engine) Visible() []core.Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	cards := e.visibleLocked()
	out := make([]core.Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// Rows projects the visible cards into row descriptors.
func (e *Engine) Rows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	cards := e.visibleLocked()
	rows := make([]Row, len(cards))
	for i, c := range cards {
		r := Row{
			Index:     i,
			ID:        c.ID,
			Key:       c.Key(),
			Content:   c.Content,
			Color:     c.Color,
			ColorName: c.ColorName,
			Tags:      append([]string(nil), c.Tags...),
			Category:  c.Category,
			Pinned:    c.Pinned,
			Archived:  c.Archived,
			NotePath:  c.NotePath,
			Created:   c.Created,
			ExpiresAt: c.ExpiresAt,
			Expired:   c.Expired(now),
		}
		if cat, ok := e.category(c.Category); ok {
			r.CategoryLabel = cat.Label
			r.CategoryColor = cat.Color
		}
		if c.Status != nil {
			r.Status = c.Status.Name
			r.StatusColor = c.Status.Color
			r.StatusTextColor = c.Status.TextColor
			if def, ok := e.lookupStatus(c.Status.Name); ok {
				r.StatusColor = def.Color
				r.StatusTextColor = def.TextColor
			}
		}
		rows[i] = r
	}
	return rows
}

// category resolves a card's category value by id first, then by label.
func (e *Engine) category(value string) (core.Category, bool) {
	if value == "" {
		return core.Category{}, false
	}
	for _, c := range e.record.CustomCategories {
		if c.ID == value {
			return c, true
		}
	}
	for _, c := range e.record.CustomCategories {
		if strings.EqualFold(c.Label, value) {
			return c, true
		}
	}
	return core.Category{}, false
}

func (e *Engine) sortedLocked() []*core.Card {
	return sorter.Sort(e.store.Cards(), sorter.Options{
		Mode:      e.record.SortMode,
		Ascending: e.record.SortAscending,
		Position:  e.order.Position,
		Priority:  e.record.Priority(),
		ModTime:   e.modTime,
	})
}

func (e *Engine) visibleLocked() []*core.Card {
	return filter.Apply(e.sortedLocked(), e.criteria, e.record.CustomCategories)
}

func (e *Engine) modTime(c *core.Card) (time.Time, bool) {
	if !c.HasNote() {
		return time.Time{}, false
	}
	t, ok := e.modTimes[strings.ToLower(core.NormalizePath(c.NotePath))]
	return t, ok && !t.IsZero()
}

// Render renders a card's content with the configured renderer.
func (e *Engine) Render(ctx context.Context, ref string) (string, error) {
	e.mu.Lock()
	c, err := e.resolve(ref)
	var content string
	if err == nil {
		content = c.Content
	}
	e.mu.Unlock()
	if err != nil {
		return "", err
	}
	if e.renderer == nil {
		return "", fmt.Errorf("render: %w", core.ErrUnsupported)
	}
	return e.renderer.Render(ctx, content)
}
