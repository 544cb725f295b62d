package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// FilterColors is the color filter state kept in the record, keyed by color.
// Values are opaque and written back as read. Records that stored a plain
// list of colors decode with every listed color set to true.
type FilterColors map[string]json.RawMessage

func (f *FilterColors) UnmarshalJSON(data []byte) error {
	out := FilterColors{}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		for k, v := range obj {
			out[k] = v
		}
		*f = out
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, color := range list {
		if color != "" {
			out[color] = json.RawMessage("true")
		}
	}
	*f = out
	return nil
}

// UnmarshalJSON decodes the record field by field. A malformed field keeps
// its zero value (filled in by Normalize) and a malformed card is skipped,
// so one bad entry never costs the rest of the record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var rec Record
	decodeField(fields, "version", &rec.Version)
	if raw, ok := fields["cards"]; ok {
		rec.Cards = decodeCards(raw)
	}
	decodeField(fields, "manualOrder", &rec.ManualOrder)
	decodeField(fields, "sortMode", &rec.SortMode)
	decodeField(fields, "sortAscending", &rec.SortAscending)
	decodeField(fields, "customCategories", &rec.CustomCategories)
	decodeField(fields, "cardStatuses", &rec.CardStatuses)
	decodeField(fields, "statusPriority", &rec.StatusPriority)
	decodeField(fields, "filterColors", &rec.FilterColors)
	decodeField(fields, "expiryAction", &rec.ExpiryAction)
	decodeField(fields, "notesFolder", &rec.NotesFolder)
	*r = rec
	return nil
}

// UnmarshalJSON decodes a card field by field. Timestamps may be epoch
// milliseconds or date strings.
func (c *Card) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		*c = Card{}
		return nil
	}

	var card Card
	card.ID = decodeID(fields["id"])
	decodeField(fields, "content", &card.Content)
	decodeField(fields, "color", &card.Color)
	decodeField(fields, "colorName", &card.ColorName)
	decodeField(fields, "tags", &card.Tags)
	decodeField(fields, "category", &card.Category)
	decodeField(fields, "archived", &card.Archived)
	decodeField(fields, "pinned", &card.Pinned)
	decodeField(fields, "notePath", &card.NotePath)
	decodeField(fields, "status", &card.Status)
	card.Created = decodeTime(fields["created"])
	card.ExpiresAt = decodeTime(fields["expiresAt"])
	*c = card
	return nil
}

// decodeField unmarshals fields[key] into dst. dst is left untouched when
// the key is missing or its value does not fit.
func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func decodeCards(raw json.RawMessage) []Card {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		var c Card
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		cards = append(cards, c)
	}
	return cards
}

// decodeID accepts ids stored as strings or as numbers.
func decodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeTime reads a timestamp stored as epoch milliseconds, either as a
// number or a numeric string, or as a date string. Anything else is zero.
func decodeTime(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(n).UTC()
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	ts, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
