package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Marker delimits the header block.
const Marker = "---"

type entryKind int

const (
	entryOpaque entryKind = iota // blank, comment or malformed line; kept verbatim, ignored on read
	entryScalar
	entryInlineList
	entryBlockList
)

// entry is one logical header field together with the raw lines it spans.
type entry struct {
	kind  entryKind
	key   string
	value Value
	raw   []string
}

func (e entry) isField() bool {
	return e.kind != entryOpaque
}

func (e entry) isBlank() bool {
	if e.kind != entryOpaque {
		return false
	}
	for _, l := range e.raw {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

// split locates the header block. ok is false when the document does not
// open with a marker line or the marker is never closed; the whole document
// is body in that case. bodyStart is the byte offset of the body.
func split(doc string) (header []string, bodyStart int, ok bool) {
	pos := 0
	first := true
	for pos < len(doc) {
		end := strings.IndexByte(doc[pos:], '\n')
		next := len(doc)
		line := doc[pos:]
		if end >= 0 {
			line = doc[pos : pos+end]
			next = pos + end + 1
		}
		line = strings.TrimRight(line, "\r")

		if first {
			if strings.TrimRight(strings.TrimPrefix(line, "\ufeff"), " \t") != Marker {
				return nil, 0, false
			}
			first = false
			pos = next
			continue
		}
		if strings.TrimRight(line, " \t") == Marker {
			return header, next, true
		}
		header = append(header, line)
		pos = next
	}
	return nil, 0, false
}

// tokenize groups header lines into entries.
func tokenize(lines []string) []entry {
	var out []entry
	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") || isIndented(line) || strings.HasPrefix(trimmed, "-") {
			out = append(out, entry{kind: entryOpaque, raw: []string{line}})
			i++
			continue
		}

		idx := strings.IndexByte(line, ':')
		key := ""
		if idx > 0 {
			key = strings.TrimSpace(line[:idx])
		}
		if key == "" {
			out = append(out, entry{kind: entryOpaque, raw: []string{line}})
			i++
			continue
		}
		rest := strings.TrimSpace(line[idx+1:])

		switch {
		case rest == "":
			j := i + 1
			var items []string
			for j < len(lines) {
				item, ok := listItem(lines[j])
				if !ok {
					break
				}
				items = append(items, item)
				j++
			}
			if len(items) == 0 {
				out = append(out, entry{kind: entryScalar, key: key, value: String(""), raw: lines[i:j]})
			} else {
				out = append(out, entry{kind: entryBlockList, key: key, value: List(items...), raw: lines[i:j]})
			}
			i = j
		case strings.HasPrefix(rest, "["):
			items, ok := decodeFlow(rest)
			if !ok {
				out = append(out, entry{kind: entryOpaque, raw: []string{line}})
			} else {
				out = append(out, entry{kind: entryInlineList, key: key, value: List(items...), raw: []string{line}})
			}
			i++
		default:
			out = append(out, entry{kind: entryScalar, key: key, value: String(decodeScalar(rest)), raw: []string{line}})
			i++
		}
	}
	return out
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// listItem recognizes "- item" lines, indented or not.
func listItem(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "-" {
		return "", true
	}
	if !strings.HasPrefix(trimmed, "- ") {
		return "", false
	}
	return decodeScalar(strings.TrimSpace(trimmed[2:])), true
}

// decodeScalar unquotes single or double quoted values. Plain values are
// returned as written.
func decodeScalar(raw string) string {
	if len(raw) >= 2 {
		q := raw[0]
		if (q == '"' || q == '\'') && raw[len(raw)-1] == q {
			var s string
			if err := yaml.Unmarshal([]byte(raw), &s); err == nil {
				return s
			}
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

// decodeFlow reads an inline bracket list such as ["a","b"] or [a, b].
func decodeFlow(raw string) ([]string, bool) {
	var items []string
	if err := yaml.Unmarshal([]byte(raw), &items); err == nil {
		if items == nil {
			items = []string{}
		}
		return items, true
	}

	if !strings.HasSuffix(raw, "]") {
		return nil, false
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	items = []string{}
	if inner == "" {
		return items, true
	}
	for _, part := range strings.Split(inner, ",") {
		items = append(items, decodeScalar(strings.TrimSpace(part)))
	}
	return items, true
}
