// Package frontmatter reads and rewrites the small key/value header that
// opens a card document.
//
// The header is a narrow subset of YAML:
//
//	---
//	Tags: ["idea","work"]
//	card-color: "var(--card-color-2)"
//	Pinned: true
//	---
//	body text
//
// Keys match case-insensitively and the first occurrence of a key wins on
// read. Lines the codec does not understand are ignored on read and kept
// verbatim on rewrite. The body is never altered by a header update.
package frontmatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes scalar values from lists.
type Kind int

const (
	KindScalar Kind = iota
	KindList
)

// Value is a header field value: a string or a list of strings.
type Value struct {
	Kind   Kind
	Scalar string
	Items  []string
}

// String builds a scalar value.
func String(s string) Value {
	return Value{Kind: KindScalar, Scalar: s}
}

// List builds a list value.
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{Kind: KindList, Items: items}
}

// Header is the parsed, ordered set of recognized fields.
type Header struct {
	keys   []string
	values []Value
}

// Get returns the first value stored under key (case-insensitive).
func (h Header) Get(key string) (Value, bool) {
	for i, k := range h.keys {
		if strings.EqualFold(k, key) {
			return h.values[i], true
		}
	}
	return Value{}, false
}

// String returns a scalar field. Lists are reported as missing.
func (h Header) String(key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok || v.Kind != KindScalar {
		return "", false
	}
	return v.Scalar, true
}

// List returns a list field. A scalar is read as a comma separated list.
func (h Header) List(key string) ([]string, bool) {
	v, ok := h.Get(key)
	if !ok {
		return nil, false
	}
	if v.Kind == KindList {
		return v.Items, true
	}
	var items []string
	for _, part := range strings.Split(v.Scalar, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items, true
}

// Bool returns a boolean field. Unparseable values are reported as missing.
func (h Header) Bool(key string) (bool, bool) {
	s, ok := h.String(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}

// Keys returns the distinct keys in document order, first spelling wins.
func (h Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Len returns the number of distinct keys.
func (h Header) Len() int {
	return len(h.keys)
}

// Parse splits a document into its header and body.
// Documents without a well-formed header yield an empty header and the full text as body.
func Parse(doc string) (Header, string) {
	lines, bodyStart, ok := split(doc)
	if !ok {
		return Header{}, doc
	}

	var h Header
	for _, e := range tokenize(lines) {
		if !e.isField() {
			continue
		}
		if _, dup := h.Get(e.key); dup {
			continue
		}
		h.keys = append(h.keys, e.key)
		h.values = append(h.values, e.value)
	}
	return h, doc[bodyStart:]
}

// Body returns the document body.
func Body(doc string) string {
	_, bodyStart, ok := split(doc)
	if !ok {
		return doc
	}
	return doc[bodyStart:]
}

// SetBody replaces the body while keeping the header text untouched.
func SetBody(doc, body string) string {
	_, bodyStart, ok := split(doc)
	if !ok {
		return body
	}
	return doc[:bodyStart] + body
}

// Field is a key/value pair for UpsertAll. A nil Value removes the key.
type Field struct {
	Key   string
	Value any
}

// Upsert sets key to value in the document header. A nil value removes the
// key. Every occurrence of the key collapses into one. Removing the last
// field removes the header block; writing to a document without a header
// creates one.
func Upsert(doc, key string, value any) string {
	return UpsertAll(doc, []Field{{Key: key, Value: value}})
}

// UpsertAll applies several upserts in a single pass.
func UpsertAll(doc string, fields []Field) string {
	lines, bodyStart, ok := split(doc)
	body := doc
	var entries []entry
	if ok {
		body = doc[bodyStart:]
		entries = tokenize(lines)
	}

	changed := false
	for _, f := range fields {
		var ok bool
		if entries, ok = apply(entries, f); ok {
			changed = true
		}
	}
	if !changed {
		return doc
	}

	empty := true
	for _, e := range entries {
		if !e.isBlank() {
			empty = false
			break
		}
	}
	if empty {
		return body
	}

	var sb strings.Builder
	sb.WriteString(Marker)
	sb.WriteByte('\n')
	for _, e := range entries {
		for _, l := range e.raw {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString(Marker)
	sb.WriteByte('\n')
	sb.WriteString(body)
	return sb.String()
}

// apply reports whether the field changed the entries.
func apply(entries []entry, f Field) ([]entry, bool) {
	var out []entry
	placed := false
	matched := false
	for _, e := range entries {
		if e.isField() && strings.EqualFold(e.key, f.Key) {
			matched = true
			if f.Value != nil && !placed {
				out = append(out, render(e.key, f.Value))
				placed = true
			}
			continue
		}
		out = append(out, e)
	}
	if f.Value == nil {
		if !matched {
			return entries, false
		}
		return out, true
	}
	if !placed {
		out = append(out, render(f.Key, f.Value))
	}
	return out, true
}

func render(key string, value any) entry {
	var v Value
	switch x := value.(type) {
	case Value:
		v = x
	case []string:
		v = List(x...)
	case string:
		v = String(x)
	case bool:
		return rawEntry(key, strconv.FormatBool(x))
	case int:
		return rawEntry(key, strconv.Itoa(x))
	case int64:
		return rawEntry(key, strconv.FormatInt(x, 10))
	case float64:
		return rawEntry(key, strconv.FormatFloat(x, 'f', -1, 64))
	case time.Time:
		v = String(x.Format(time.RFC3339))
	case fmt.Stringer:
		v = String(x.String())
	default:
		v = String(fmt.Sprint(x))
	}

	if v.Kind == KindList {
		quoted := make([]string, len(v.Items))
		for i, item := range v.Items {
			quoted[i] = doubleQuote(item)
		}
		e := rawEntry(key, "["+strings.Join(quoted, ",")+"]")
		e.kind = entryInlineList
		e.value = List(v.Items...)
		return e
	}
	e := rawEntry(key, Quote(v.Scalar))
	e.value = v
	return e
}

func rawEntry(key, serialized string) entry {
	return entry{
		kind:  entryScalar,
		key:   key,
		value: String(serialized),
		raw:   []string{key + ": " + serialized},
	}
}

var plain = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// Quote renders a string scalar. Plain words are written bare, everything
// else is double-quoted.
func Quote(s string) string {
	if plain.MatchString(s) && strings.TrimSpace(s) == s {
		return s
	}
	return doubleQuote(s)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func doubleQuote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}
