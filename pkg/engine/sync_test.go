package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.engine.Load(ctx, false)
	require.NoError(t, err)
	c := f.create(t, "Shopping", CreateOptions{WithNote: true})

	t.Run("Own Write Is Ignored", func(t *testing.T) {
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: c.NotePath})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("External Edit Updates The Card", func(t *testing.T) {
		f.docs.Put(c.NotePath, "---\nPinned: true\nTags: [\"errand\"]\n---\nShopping list\n")
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: c.NotePath})
		require.NoError(t, err)
		assert.True(t, changed)

		got, err := f.engine.Find(c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Shopping list", got.Content)
		assert.True(t, got.Pinned)
		assert.Equal(t, []string{"errand"}, got.Tags)

		// The same content again is not a change.
		changed, err = f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: c.NotePath})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("External Archive Moves The Card Out", func(t *testing.T) {
		f.docs.Put(c.NotePath, "---\nArchived: true\n---\nShopping list\n")
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: c.NotePath})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, f.engine.Visible())

		f.docs.Put(c.NotePath, "---\nArchived: false\n---\nShopping list\n")
		changed, err = f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: c.NotePath})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Len(t, f.engine.Visible(), 1)
	})

	t.Run("New Document Is Adopted", func(t *testing.T) {
		f.docs.Put("Cards/Fresh.md", "Fresh idea")
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "Cards/Fresh.md"})
		require.NoError(t, err)
		assert.True(t, changed)

		got, err := f.engine.Find(store.DocumentID("Cards/Fresh.md"))
		require.NoError(t, err)
		assert.Equal(t, "Fresh idea", got.Content)
		assert.Contains(t, f.engine.Settings().ManualOrder, "Cards/Fresh.md")
	})

	t.Run("Atomic Save Is Not A Delete", func(t *testing.T) {
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventDelete, Path: "Cards/Fresh.md"})
		require.NoError(t, err)
		assert.False(t, changed)
		got, err := f.engine.Find(store.DocumentID("Cards/Fresh.md"))
		require.NoError(t, err)
		assert.True(t, got.HasNote())
	})

	t.Run("Removed Document Demotes The Card", func(t *testing.T) {
		f.docs.Remove(c.NotePath)
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventDelete, Path: c.NotePath})
		require.NoError(t, err)
		assert.True(t, changed)

		got, err := f.engine.Find(c.ID)
		require.NoError(t, err)
		assert.False(t, got.HasNote())
		assert.Equal(t, "Shopping list", got.Content)
	})

	t.Run("Unknown Delete Is Ignored", func(t *testing.T) {
		changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventDelete, Path: "Cards/never.md"})
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestHandleEventRemovedHeaderLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.engine.Load(ctx, false)
	require.NoError(t, err)
	c := f.create(t, "Errands", CreateOptions{
		CreateOptions: store.CreateOptions{Tags: []string{"a"}, Pinned: true},
		WithNote:      true,
	})
	text, err := f.docs.Read(ctx, c.NotePath)
	require.NoError(t, err)
	require.Contains(t, text, "Pinned: true")

	// Unpinning and untagging by deleting the lines, the way the engine
	// writes false and empty values.
	f.docs.Put(c.NotePath, "---\ncard-color: \"var(--card-color-1)\"\n---\nErrands\n")
	changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: c.NotePath})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := f.engine.Find(c.ID)
	require.NoError(t, err)
	assert.False(t, got.Pinned)
	assert.Empty(t, got.Tags)
	assert.Equal(t, "Errands", got.Content)

	f.settle()
	stored, ok := findCard(f.stored(t).Cards, c.ID)
	require.True(t, ok)
	assert.False(t, stored.Pinned)
	assert.Empty(t, stored.Tags)

	text, err = f.docs.Read(ctx, c.NotePath)
	require.NoError(t, err)
	assert.NotContains(t, text, "Pinned")
}

func TestHandleEventKeepsUnloadedCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.engine.Load(ctx, false)
	require.NoError(t, err)

	old := f.create(t, "Old plan", CreateOptions{WithNote: true})
	_, err = f.engine.SetArchived(ctx, old.ID, true)
	require.NoError(t, err)
	f.settle()
	_, err = f.engine.Load(ctx, false)
	require.NoError(t, err)

	// The archived card is not in memory; its document must not be adopted
	// as a second card.
	f.docs.Put(old.NotePath, "---\nArchived: true\n---\nOld plan, revised\n")
	changed, err := f.engine.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: old.NotePath})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.engine.Load(ctx, true)
	require.NoError(t, err)
	visible := f.engine.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, old.ID, visible[0].ID)
	assert.Equal(t, "Old plan, revised", visible[0].Content)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.engine.Load(ctx, false)
	require.NoError(t, err)
	known := f.create(t, "Known", CreateOptions{WithNote: true})

	f.docs.Put("Cards/One.md", "one")
	f.docs.Put("Inbox/Two.md", "---\nArchived: true\n---\ntwo")

	n, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"Known", "one"}, contents(f.engine.Visible()))

	n, err = f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.settle()
	rec := f.stored(t)
	assert.Len(t, rec.Cards, 3)
	two, ok := findCard(rec.Cards, store.DocumentID("Inbox/Two.md"))
	require.True(t, ok)
	assert.True(t, two.Archived)
	assert.Contains(t, rec.ManualOrder, known.NotePath)
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)
	_, err := f.engine.Load(ctx, false)
	require.NoError(t, err)

	events, err := f.engine.Watch(ctx)
	require.NoError(t, err)

	f.docs.Put("Cards/Watched.md", "from outside")
	select {
	case ev := <-events:
		assert.Equal(t, core.EventCreate, ev.Type)
		assert.Equal(t, "Cards/Watched.md", ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the change")
	}
	assert.Equal(t, []string{"from outside"}, contents(f.engine.Visible()))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchUnsupported(t *testing.T) {
	settings := newFixture(t).settings
	e := New(settings)
	_, err := e.Watch(context.Background())
	assert.ErrorIs(t, err, core.ErrUnsupported)
}
