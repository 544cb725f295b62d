// Package core holds the card domain: cards, the durable settings record,
// change events and the ports implemented by storage adapters.
package core

import (
	"path"
	"slices"
	"strings"
	"time"
)

// DefaultColor is the color assigned to cards created without one.
const DefaultColor = "var(--card-color-1)"

// Status is a named workflow state attached to a card.
type Status struct {
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	TextColor string `json:"textColor,omitempty"`
}

// Category groups cards. Cards may reference a category by ID or by Label.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Card is the central entity of the domain.
// A card is a short piece of text, optionally backed by a standalone document.
type Card struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Color     string    `json:"color,omitempty"`
	ColorName string    `json:"colorName,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Category  string    `json:"category,omitempty"`
	Created   time.Time `json:"created,omitzero"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
	Archived  bool      `json:"archived,omitempty"`
	Pinned    bool      `json:"pinned,omitempty"`
	NotePath  string    `json:"notePath,omitempty"`
	Status    *Status   `json:"status,omitempty"`
}

// Key returns the stable key used by the universal order.
// Cards backed by a document are keyed by their path, others by ID.
func (c Card) Key() string {
	if p := NormalizePath(c.NotePath); p != "" {
		return p
	}
	return c.ID
}

// DedupKey is the case-insensitive form of Key.
func (c Card) DedupKey() string {
	return strings.ToLower(c.Key())
}

// HasNote reports whether the card is backed by a document.
func (c Card) HasNote() bool {
	return NormalizePath(c.NotePath) != ""
}

// Expired reports whether the card carries an expiry at or before now.
func (c Card) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}

// HasTag reports whether the card carries tag, ignoring case and a leading '#'.
func (c Card) HasTag(tag string) bool {
	want := NormalizeTag(tag)
	if want == "" {
		return false
	}
	for _, t := range c.Tags {
		if NormalizeTag(t) == want {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	out.Tags = slices.Clone(c.Tags)
	if c.Status != nil {
		s := *c.Status
		out.Status = &s
	}
	return out
}

// Equal reports whether two cards carry the same data. Times compare by
// instant, so a card read back from storage equals the one written.
func (c Card) Equal(o Card) bool {
	if c.ID != o.ID || c.Content != o.Content || c.Color != o.Color ||
		c.ColorName != o.ColorName || c.Category != o.Category ||
		c.Archived != o.Archived || c.Pinned != o.Pinned ||
		NormalizePath(c.NotePath) != NormalizePath(o.NotePath) {
		return false
	}
	if !c.Created.Equal(o.Created) || !c.ExpiresAt.Equal(o.ExpiresAt) {
		return false
	}
	if !slices.Equal(c.Tags, o.Tags) {
		return false
	}
	switch {
	case c.Status == nil && o.Status == nil:
		return true
	case c.Status == nil || o.Status == nil:
		return false
	}
	return *c.Status == *o.Status
}

// NormalizeTag folds a tag into its matching form.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// NormalizePath turns a document path into its canonical slash form.
// Empty input (or a path that cleans to the current directory) yields "".
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// EventType represents the type of change in the document store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change of a document outside the engine's control.
type Event struct {
	Type      EventType
	Path      string
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return string(e.Type) + " " + e.Path
}
