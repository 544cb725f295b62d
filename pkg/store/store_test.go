package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

func newTestStore() *Store {
	n := 0
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return New(
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func ids(cards []*core.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestCreate(t *testing.T) {
	s := newTestStore()

	a := s.Create("first", CreateOptions{})
	b := s.Create("second", CreateOptions{})
	p := s.Create("pinned", CreateOptions{Pinned: true})

	assert.Equal(t, []string{p.ID, a.ID, b.ID}, ids(s.Cards()))
	assert.Equal(t, core.DefaultColor, a.Color)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), a.Created)

	t.Run("Explicit ID Is Kept Unless Taken", func(t *testing.T) {
		c := s.Create("x", CreateOptions{ID: "custom"})
		assert.Equal(t, "custom", c.ID)
		d := s.Create("y", CreateOptions{ID: "custom"})
		assert.NotEqual(t, "custom", d.ID)
	})

	t.Run("Tags Are Cleaned", func(t *testing.T) {
		c := s.Create("tagged", CreateOptions{Tags: []string{"#Work", "work", " idea ", ""}})
		assert.Equal(t, []string{"Work", "idea"}, c.Tags)
	})
}

func TestDeleteTracksPending(t *testing.T) {
	s := newTestStore()
	a := s.Create("a", CreateOptions{})
	s.Create("b", CreateOptions{})

	_, ok := s.Delete(a.ID)
	require.True(t, ok)
	assert.Equal(t, 1, s.Len())
	assert.Contains(t, s.PendingDeletions(), a.ID)

	_, ok = s.Delete("missing")
	assert.False(t, ok)

	pending := s.PendingDeletions()
	s.ClearDeletions(pending)
	assert.Empty(t, s.PendingDeletions())
}

func TestDedup(t *testing.T) {
	t.Run("Note Path Collapses Case Insensitively", func(t *testing.T) {
		cards := []core.Card{
			{ID: "1", NotePath: "Cards/A.md", Content: "settings"},
			{ID: "2", NotePath: "cards/a.md", Content: "scan"},
			{ID: "3", Content: "plain"},
		}
		out := Dedup(cards)
		require.Len(t, out, 2)
		assert.Equal(t, "settings", out[0].Content)
		assert.Equal(t, "3", out[1].ID)
	})

	t.Run("Falls Back To ID", func(t *testing.T) {
		out := Dedup([]core.Card{{ID: "x", Content: "one"}, {ID: "x", Content: "two"}, {ID: ""}})
		require.Len(t, out, 1)
		assert.Equal(t, "one", out[0].Content)
	})

	t.Run("Replace Applies Dedup", func(t *testing.T) {
		s := newTestStore()
		s.Replace([]core.Card{{ID: "1", NotePath: "n.md"}, {ID: "2", NotePath: "N.md"}})
		assert.Equal(t, 1, s.Len())
		c, ok := s.FindByNotePath("n.MD")
		require.True(t, ok)
		assert.Equal(t, "1", c.ID)
	})
}

func TestLoadGuard(t *testing.T) {
	t.Run("Runs Queued Request With Different Archive State", func(t *testing.T) {
		s := newTestStore()
		t1, ok := s.BeginLoad(LoadRequest{Archived: false})
		require.True(t, ok)
		assert.Equal(t, Loading, s.LoadState())

		_, ok = s.BeginLoad(LoadRequest{Archived: false})
		assert.False(t, ok)
		_, ok = s.BeginLoad(LoadRequest{Archived: true})
		assert.False(t, ok)
		assert.Equal(t, Queued, s.LoadState())

		next := s.FinishLoad(t1)
		require.NotNil(t, next)
		assert.True(t, next.Archived)
		assert.Equal(t, Idle, s.LoadState())
	})

	t.Run("Drops Queued Request For Same Archive State", func(t *testing.T) {
		s := newTestStore()
		t1, _ := s.BeginLoad(LoadRequest{Archived: true})
		s.BeginLoad(LoadRequest{Archived: false})
		s.BeginLoad(LoadRequest{Archived: true})
		assert.Nil(t, s.FinishLoad(t1))
	})

	t.Run("Stale Tickets", func(t *testing.T) {
		s := newTestStore()
		t1, _ := s.BeginLoad(LoadRequest{})
		assert.True(t, s.Valid(t1))
		s.Invalidate()
		assert.False(t, s.Valid(t1))
		assert.Nil(t, s.FinishLoad(t1+100))
		assert.Equal(t, Loading, s.LoadState())
		s.FinishLoad(t1)
		assert.Equal(t, Idle, s.LoadState())
	})
}
