package core

import (
	"fmt"
	"strings"
)

// RecordVersion is the schema version written into new records.
const RecordVersion = 1

// SortMode selects the total order applied to a card list.
type SortMode string

const (
	SortManual   SortMode = "manual"
	SortCreated  SortMode = "created"
	SortModified SortMode = "modified"
	SortAlpha    SortMode = "alpha"
	SortStatus   SortMode = "status"
)

// SortModes lists every supported mode.
var SortModes = []SortMode{SortManual, SortCreated, SortModified, SortAlpha, SortStatus}

// ParseSortMode resolves a mode name, case-insensitively.
// An empty name selects manual.
func ParseSortMode(name string) (SortMode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SortManual, nil
	}
	for _, m := range SortModes {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortMode, name)
}

// ExpiryAction decides what happens to a card once its expiry passes.
type ExpiryAction string

const (
	ExpireArchive ExpiryAction = "archive"
	ExpireDelete  ExpiryAction = "delete"
)

// ParseExpiryAction resolves an action name. Empty selects archive.
func ParseExpiryAction(name string) (ExpiryAction, error) {
	switch ExpiryAction(strings.ToLower(strings.TrimSpace(name))) {
	case "", ExpireArchive:
		return ExpireArchive, nil
	case ExpireDelete:
		return ExpireDelete, nil
	}
	return "", fmt.Errorf("unknown expiry action %q", name)
}

// Record is the durable settings record shared by every view.
// It is written wholesale on each flush.
type Record struct {
	Version          int          `json:"version"`
	Cards            []Card       `json:"cards"`
	ManualOrder      []string     `json:"manualOrder"`
	SortMode         SortMode     `json:"sortMode"`
	SortAscending    bool         `json:"sortAscending"`
	CustomCategories []Category   `json:"customCategories"`
	CardStatuses     []Status     `json:"cardStatuses"`
	StatusPriority   []string     `json:"statusPriority,omitempty"`
	FilterColors     FilterColors `json:"filterColors"`
	ExpiryAction     ExpiryAction `json:"expiryAction,omitempty"`
	NotesFolder      string       `json:"notesFolder,omitempty"`
}

// DefaultRecord returns the record used when nothing has been persisted yet.
func DefaultRecord() Record {
	return Record{
		Version:       RecordVersion,
		Cards:         []Card{},
		ManualOrder:   []string{},
		SortMode:      SortManual,
		SortAscending: true,
		CardStatuses: []Status{
			{Name: "todo", Color: "var(--color-red)", TextColor: "#fff"},
			{Name: "doing", Color: "var(--color-yellow)", TextColor: "#000"},
			{Name: "done", Color: "var(--color-green)", TextColor: "#fff"},
		},
		CustomCategories: []Category{},
		FilterColors:     FilterColors{},
		ExpiryAction:     ExpireArchive,
	}
}

// Normalize fills zero fields with defaults so that records written by older
// versions (or hand-edited) are usable.
func (r *Record) Normalize() {
	def := DefaultRecord()
	if r.Version == 0 {
		r.Version = RecordVersion
	}
	if r.Cards == nil {
		r.Cards = []Card{}
	}
	if r.ManualOrder == nil {
		r.ManualOrder = []string{}
	}
	if _, err := ParseSortMode(string(r.SortMode)); err != nil || r.SortMode == "" {
		r.SortMode = SortManual
	}
	if r.CardStatuses == nil {
		r.CardStatuses = def.CardStatuses
	}
	if r.CustomCategories == nil {
		r.CustomCategories = []Category{}
	}
	if r.FilterColors == nil {
		r.FilterColors = FilterColors{}
	}
	if r.ExpiryAction == "" {
		r.ExpiryAction = ExpireArchive
	}
}

// LookupStatus finds a status definition by name (case-insensitive).
func (r Record) LookupStatus(name string) (Status, bool) {
	for _, s := range r.CardStatuses {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Status{}, false
}

// Priority returns the status priority list, defaulting to definition order.
func (r Record) Priority() []string {
	if len(r.StatusPriority) > 0 {
		return r.StatusPriority
	}
	out := make([]string, 0, len(r.CardStatuses))
	for _, s := range r.CardStatuses {
		out = append(out, s.Name)
	}
	return out
}
