package store

import (
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/frontmatter"
)

// Header field names written to card documents.
const (
	FieldTags      = "Tags"
	FieldColor     = "card-color"
	FieldColorName = "card-color-name"
	FieldCreated   = "Created-Date"
	FieldArchived  = "Archived"
	FieldPinned    = "Pinned"
	FieldCategory  = "Category"
	FieldStatus    = "Status"
	FieldExpires   = "Expires-At"
)

// StatusLookup resolves a status name to its full definition.
type StatusLookup func(name string) (core.Status, bool)

// DocumentID derives a stable card id from a document path, so a document
// seen on several scans keeps its identity.
func DocumentID(p string) string {
	key := strings.ToLower(core.NormalizePath(p))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("sidecards:"+key)).String()
}

// FromDocument builds a card from a document. Fields that are missing or
// malformed fall back to defaults; the document's modification time stands
// in for a missing creation date.
func FromDocument(info core.DocumentInfo, text string, statuses StatusLookup) core.Card {
	c := core.Card{
		ID:       DocumentID(info.Path),
		NotePath: core.NormalizePath(info.Path),
		Color:    core.DefaultColor,
		Created:  info.ModTime,
	}
	ApplyDocument(&c, text, statuses)
	return c
}

// ApplyDocument overlays a document onto c. When the document has a header,
// recognized fields missing from it are reset, matching what ToDocument
// writes for empty values; Created-Date is the exception and keeps the
// card's timestamp. The card id and note path are left alone.
func ApplyDocument(c *core.Card, text string, statuses StatusLookup) {
	h, body := frontmatter.Parse(text)
	c.Content = strings.TrimSpace(body)
	if h.Len() > 0 {
		resetMissing(c, h)
	}

	if tags, ok := h.List(FieldTags); ok {
		c.Tags = NormalizeTags(tags)
	}
	if v, ok := h.String(FieldColor); ok && strings.TrimSpace(v) != "" {
		c.Color = strings.TrimSpace(v)
	}
	if v, ok := h.String(FieldColorName); ok {
		c.ColorName = strings.TrimSpace(v)
	}
	if v, ok := h.String(FieldCreated); ok {
		if ts, ok := ParseTime(v); ok {
			c.Created = ts
		}
	}
	if v, ok := h.String(FieldExpires); ok {
		if ts, ok := ParseTime(v); ok {
			c.ExpiresAt = ts
		}
	}
	if b, ok := h.Bool(FieldArchived); ok {
		c.Archived = b
	}
	if b, ok := h.Bool(FieldPinned); ok {
		c.Pinned = b
	}
	if v, ok := h.String(FieldCategory); ok {
		c.Category = strings.TrimSpace(v)
	}
	if v, ok := h.String(FieldStatus); ok {
		c.Status = resolveStatus(strings.TrimSpace(v), statuses)
	}
}

func resetMissing(c *core.Card, h frontmatter.Header) {
	missing := func(key string) bool {
		_, ok := h.Get(key)
		return !ok
	}
	if missing(FieldTags) {
		c.Tags = nil
	}
	if missing(FieldColor) {
		c.Color = core.DefaultColor
	}
	if missing(FieldColorName) {
		c.ColorName = ""
	}
	if missing(FieldExpires) {
		c.ExpiresAt = time.Time{}
	}
	if missing(FieldArchived) {
		c.Archived = false
	}
	if missing(FieldPinned) {
		c.Pinned = false
	}
	if missing(FieldCategory) {
		c.Category = ""
	}
	if missing(FieldStatus) {
		c.Status = nil
	}
}

func resolveStatus(name string, statuses StatusLookup) *core.Status {
	if name == "" {
		return nil
	}
	if statuses != nil {
		if s, ok := statuses(name); ok {
			return &s
		}
	}
	return &core.Status{Name: name}
}

// ToDocument writes the card's fields into text's header and replaces the
// body with the card content. Fields the card does not carry are removed;
// unrecognized fields are kept.
func ToDocument(text string, c core.Card) string {
	fields := []frontmatter.Field{
		{Key: FieldTags, Value: optionalList(c.Tags)},
		{Key: FieldColor, Value: optionalString(c.Color)},
		{Key: FieldColorName, Value: optionalString(c.ColorName)},
		{Key: FieldCreated, Value: optionalTime(c.Created)},
		{Key: FieldArchived, Value: optionalBool(c.Archived)},
		{Key: FieldPinned, Value: optionalBool(c.Pinned)},
		{Key: FieldCategory, Value: optionalString(c.Category)},
		{Key: FieldExpires, Value: optionalTime(c.ExpiresAt)},
	}
	if c.Status != nil && c.Status.Name != "" {
		fields = append(fields, frontmatter.Field{Key: FieldStatus, Value: c.Status.Name})
	} else {
		fields = append(fields, frontmatter.Field{Key: FieldStatus, Value: nil})
	}
	out := frontmatter.UpsertAll(text, fields)
	return frontmatter.SetBody(out, c.Content+"\n")
}

func optionalList(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func optionalString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func optionalTime(v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return v.UTC()
}

func optionalBool(v bool) any {
	if !v {
		return nil
	}
	return true
}

// ParseTime reads a date in any of the common layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	ts, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// SuggestNotePath derives a document path for a card from the first line of
// its content.
func SuggestNotePath(folder, content string) string {
	title := content
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}

	var sb strings.Builder
	space := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
		if sb.Len() >= 60 {
			break
		}
	}
	name := strings.TrimSpace(sb.String())
	if name == "" {
		name = "Untitled"
	}
	return core.NormalizePath(path.Join(folder, name+".md"))
}
