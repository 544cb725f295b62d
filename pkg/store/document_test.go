package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/frontmatter"
)

func TestFromDocument(t *testing.T) {
	statuses := func(name string) (core.Status, bool) {
		if name == "done" {
			return core.Status{Name: "done", Color: "green", TextColor: "#fff"}, true
		}
		return core.Status{}, false
	}
	mtime := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	text := "---\n" +
		"Tags: [\"a\",\"#b\"]\n" +
		"card-color: \"var(--card-color-4)\"\n" +
		"Created-Date: 2024-05-01\n" +
		"Pinned: true\n" +
		"Archived: nope\n" +
		"Status: done\n" +
		"Category: work\n" +
		"---\n\nBody text\n"

	c := FromDocument(core.DocumentInfo{Path: "Cards/Note.md", ModTime: mtime}, text, statuses)

	assert.Equal(t, DocumentID("cards/note.md"), c.ID)
	assert.Equal(t, "Cards/Note.md", c.NotePath)
	assert.Equal(t, "Body text", c.Content)
	assert.Equal(t, []string{"a", "b"}, c.Tags)
	assert.Equal(t, "var(--card-color-4)", c.Color)
	assert.Equal(t, 2024, c.Created.Year())
	assert.True(t, c.Pinned)
	assert.False(t, c.Archived, "malformed bool falls back to default")
	require.NotNil(t, c.Status)
	assert.Equal(t, "green", c.Status.Color)
	assert.Equal(t, "work", c.Category)

	t.Run("Missing Fields Use Defaults", func(t *testing.T) {
		c := FromDocument(core.DocumentInfo{Path: "x.md", ModTime: mtime}, "just text", nil)
		assert.Equal(t, core.DefaultColor, c.Color)
		assert.Equal(t, mtime, c.Created)
		assert.Nil(t, c.Status)
		assert.Equal(t, "just text", c.Content)
	})
}

func TestApplyDocument(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	card := func() core.Card {
		return core.Card{
			ID:        "1",
			Content:   "old",
			Color:     "var(--card-color-3)",
			ColorName: "teal",
			Tags:      []string{"a"},
			Category:  "work",
			Created:   created,
			ExpiresAt: created.Add(time.Hour),
			Pinned:    true,
			Status:    &core.Status{Name: "todo"},
			NotePath:  "n.md",
		}
	}

	t.Run("Removed Lines Reset Fields", func(t *testing.T) {
		c := card()
		ApplyDocument(&c, "---\ncard-color: \"var(--card-color-3)\"\n---\nnew\n", nil)

		assert.Equal(t, "new", c.Content)
		assert.False(t, c.Pinned)
		assert.Empty(t, c.Tags)
		assert.Empty(t, c.Category)
		assert.Empty(t, c.ColorName)
		assert.Nil(t, c.Status)
		assert.True(t, c.ExpiresAt.IsZero())
		assert.Equal(t, "var(--card-color-3)", c.Color)
		assert.True(t, created.Equal(c.Created), "a missing Created-Date keeps the card's timestamp")
		assert.Equal(t, "1", c.ID)
		assert.Equal(t, "n.md", c.NotePath)
	})

	t.Run("Own Output Round Trips", func(t *testing.T) {
		c := card()
		c.Pinned = false
		c.Tags = nil
		out := ToDocument("", c)

		got := card()
		ApplyDocument(&got, out, func(name string) (core.Status, bool) {
			return core.Status{Name: name}, true
		})
		assert.True(t, c.Equal(got))
	})

	t.Run("No Header Keeps Fields", func(t *testing.T) {
		c := card()
		ApplyDocument(&c, "just a body", nil)
		assert.Equal(t, "just a body", c.Content)
		assert.True(t, c.Pinned)
		assert.Equal(t, []string{"a"}, c.Tags)
	})
}

func TestToDocument(t *testing.T) {
	c := core.Card{
		ID:       "1",
		Content:  "New body",
		Color:    "var(--card-color-2)",
		Tags:     []string{"y"},
		Pinned:   true,
		Created:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Status:   &core.Status{Name: "todo"},
		NotePath: "n.md",
	}
	in := "---\nTags: [\"x\"]\ncustom: keep me\nArchived: true\n---\nold body\n"
	out := ToDocument(in, c)

	h, body := frontmatter.Parse(out)
	assert.Equal(t, "New body\n", body)
	tags, _ := h.List(FieldTags)
	assert.Equal(t, []string{"y"}, tags)
	custom, ok := h.String("custom")
	require.True(t, ok)
	assert.Equal(t, "keep me", custom)
	_, ok = h.Get(FieldArchived)
	assert.False(t, ok, "false booleans are removed")

	back := FromDocument(core.DocumentInfo{Path: "n.md"}, out, nil)
	assert.Equal(t, c.Content, back.Content)
	assert.Equal(t, c.Tags, back.Tags)
	assert.Equal(t, c.Color, back.Color)
	assert.True(t, c.Created.Equal(back.Created))
	assert.True(t, back.Pinned)
	assert.Equal(t, "todo", back.Status.Name)
}

func TestSuggestNotePath(t *testing.T) {
	assert.Equal(t, "Cards/Buy milk today.md", SuggestNotePath("Cards", "Buy   milk, today!\nsecond line"))
	assert.Equal(t, "Untitled.md", SuggestNotePath("", "!!!"))
}
