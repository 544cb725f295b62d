package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/adapters/memory"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

func seed(t *testing.T, settings *memory.Settings, cards []core.Card, order []string) {
	t.Helper()
	rec := core.DefaultRecord()
	rec.Cards = cards
	rec.ManualOrder = order
	require.NoError(t, settings.Save(context.Background(), rec))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Splits Views By Archive State", func(t *testing.T) {
		settings := memory.NewSettings()
		seed(t, settings, []core.Card{
			{ID: "a", Content: "active"},
			{ID: "b", Content: "archived", Archived: true},
		}, []string{"a", "b"})
		f := newFixtureWith(t, settings, settings)

		res, err := f.engine.Load(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Cards)
		assert.Equal(t, []string{"active"}, contents(f.engine.Visible()))

		res, err = f.engine.Load(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Cards)
		assert.Equal(t, []string{"archived"}, contents(f.engine.Visible()))
		assert.True(t, f.engine.Filter().Archived)
	})

	t.Run("Documents Win Over The Record", func(t *testing.T) {
		settings := memory.NewSettings()
		seed(t, settings, []core.Card{
			{ID: "n", Content: "stale", NotePath: "Cards/Note.md"},
		}, []string{"Cards/Note.md"})
		f := newFixtureWith(t, settings, settings)
		f.docs.Put("Cards/Note.md", "---\nPinned: true\nCategory: work\n---\nFresh body\n")

		res, err := f.engine.Load(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Refresh)
		assert.Zero(t, res.Adopted)

		got, err := f.engine.Find("n")
		require.NoError(t, err)
		assert.Equal(t, "Fresh body", got.Content)
		assert.True(t, got.Pinned)
		assert.Equal(t, "work", got.Category)

		f.settle()
		stored, ok := findCard(f.stored(t).Cards, "n")
		require.True(t, ok)
		assert.Equal(t, "Fresh body", stored.Content)
	})

	t.Run("Adopts Unreferenced Documents In Path Order", func(t *testing.T) {
		f := newFixture(t)
		f.docs.Put("Cards/b.md", "second")
		f.docs.Put("Cards/a.md", "first")

		res, err := f.engine.Load(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Adopted)
		assert.Equal(t, []string{"first", "second"}, contents(f.engine.Visible()))
		assert.Equal(t, []string{"Cards/a.md", "Cards/b.md"}, f.engine.Settings().ManualOrder)

		visible := f.engine.Visible()
		assert.Equal(t, store.DocumentID("Cards/a.md"), visible[0].ID)
		assert.Equal(t, epoch, visible[0].Created, "modification time stands in for the creation date")

		// A second load adopts nothing new.
		res, err = f.engine.Load(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, res.Adopted)
		assert.Len(t, f.engine.Visible(), 2)
	})

	t.Run("Duplicates By Note Path Collapse", func(t *testing.T) {
		settings := memory.NewSettings()
		seed(t, settings, []core.Card{
			{ID: "x", Content: "one", NotePath: "Cards/Idea.md"},
			{ID: "y", Content: "two", NotePath: "cards/idea.md"},
		}, nil)
		f := newFixtureWith(t, settings, settings)
		f.docs.Put("Cards/Idea.md", "Idea body")

		_, err := f.engine.Load(ctx, false)
		require.NoError(t, err)
		visible := f.engine.Visible()
		require.Len(t, visible, 1)
		assert.Equal(t, "x", visible[0].ID)
		assert.Equal(t, "Idea body", visible[0].Content)
	})

	t.Run("Missing Document Demotes", func(t *testing.T) {
		settings := memory.NewSettings()
		seed(t, settings, []core.Card{
			{ID: "g", Content: "kept", NotePath: "Cards/Gone.md"},
		}, []string{"Cards/Gone.md"})
		f := newFixtureWith(t, settings, settings)

		res, err := f.engine.Load(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Demoted)

		got, err := f.engine.Find("g")
		require.NoError(t, err)
		assert.Equal(t, "kept", got.Content)
		assert.False(t, got.HasNote())
		assert.Equal(t, []string{"g"}, f.engine.Settings().ManualOrder)
	})

	t.Run("Unreadable Document Is Skipped", func(t *testing.T) {
		f := newFixture(t)
		f.docs.Put("Cards/ok.md", "fine")
		f.docs.Put("Cards/bad.md", "locked")
		f.docs.FailReads["Cards/bad.md"] = errors.New("permission denied")

		res, err := f.engine.Load(ctx, false)
		require.NoError(t, err)
		assert.True(t, res.Partial)
		assert.Equal(t, []string{"fine"}, contents(f.engine.Visible()))
	})

	t.Run("Memory Wins Over The Record", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Load(ctx, false)
		require.NoError(t, err)

		c := f.create(t, "unsaved", CreateOptions{})
		_, err = f.engine.Load(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, f.engine.Visible())

		_, err = f.engine.Load(ctx, false)
		require.NoError(t, err)
		got, err := f.engine.Find(c.ID)
		require.NoError(t, err)
		assert.Equal(t, "unsaved", got.Content)
	})
}

// gatedSettings blocks the first Load after arm until release is closed.
type gatedSettings struct {
	*memory.Settings
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSettings) Load(ctx context.Context) (core.Record, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Settings.Load(ctx)
}

func TestLoadWhileLoading(t *testing.T) {
	ctx := context.Background()
	settings := memory.NewSettings()
	seed(t, settings, []core.Card{
		{ID: "a", Content: "active"},
		{ID: "b", Content: "archived", Archived: true},
	}, nil)
	gate := &gatedSettings{
		Settings: settings,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	f := newFixtureWith(t, settings, gate)
	require.NoError(t, f.engine.Open(ctx))
	gate.armed.Store(true)

	done := make(chan LoadResult)
	go func() {
		res, err := f.engine.Load(ctx, false)
		assert.NoError(t, err)
		done <- res
	}()
	<-gate.entered

	_, err := f.engine.Load(ctx, true)
	assert.ErrorIs(t, err, core.ErrLoadQueued)
	assert.Equal(t, "queued", f.engine.State().(EngineState).LoadState)

	close(gate.release)
	res := <-done

	assert.True(t, res.Archived, "the queued request ran last")
	assert.True(t, f.engine.Archived())
	assert.Equal(t, []string{"archived"}, contents(f.engine.Visible()))
	assert.Equal(t, "idle", f.engine.State().(EngineState).LoadState)
}

// deletingDocuments deletes a card through the engine during the first read
// after arm, while a load is gathering documents.
type deletingDocuments struct {
	*memory.Documents
	engine *Engine
	ref    string
	armed  atomic.Bool
	err    error
}

func (d *deletingDocuments) Read(ctx context.Context, p string) (string, error) {
	text, err := d.Documents.Read(ctx, p)
	if d.armed.CompareAndSwap(true, false) {
		d.err = d.engine.Delete(ctx, d.ref)
	}
	return text, err
}

func TestDeleteDuringLoad(t *testing.T) {
	ctx := context.Background()
	docs := &deletingDocuments{}
	f := newFixture(t, WithDocuments(docs))
	docs.Documents = f.docs
	docs.engine = f.engine

	_, err := f.engine.Load(ctx, false)
	require.NoError(t, err)
	doomed := f.create(t, "Doomed", CreateOptions{WithNote: true})
	f.create(t, "Survivor", CreateOptions{})
	f.settle()
	require.Len(t, f.stored(t).Cards, 2)

	docs.ref = doomed.ID
	docs.armed.Store(true)
	res, err := f.engine.Load(ctx, false)
	require.NoError(t, err)
	require.NoError(t, docs.err)
	assert.Zero(t, res.Adopted)

	assert.Equal(t, []string{"Survivor"}, contents(f.engine.Visible()))
	exists, err := f.docs.Exists(ctx, doomed.NotePath)
	require.NoError(t, err)
	assert.False(t, exists)

	f.settle()
	stored := f.stored(t).Cards
	require.Len(t, stored, 1)
	assert.Equal(t, "Survivor", stored[0].Content)
	assert.NotContains(t, f.engine.Settings().ManualOrder, doomed.NotePath)

	// A later document at the same path is new and gets adopted.
	f.docs.Put(doomed.NotePath, "Reborn")
	res, err = f.engine.Load(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Adopted)
}
