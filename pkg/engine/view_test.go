package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/filter"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

func TestRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.engine.SetCategories(ctx, []core.Category{
		{ID: "w", Label: "Work", Color: "#f00"},
	}))

	f.create(t, "plain", CreateOptions{})
	f.create(t, "task", CreateOptions{CreateOptions: store.CreateOptions{
		Category: "Work",
		Status:   &core.Status{Name: "done"},
		Tags:     []string{"#Urgent"},
		Pinned:   true,
	}})

	rows := f.engine.Rows()
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, 0, r.Index)
	assert.Equal(t, "task", r.Content)
	assert.True(t, r.Pinned)
	assert.Equal(t, "Work", r.CategoryLabel)
	assert.Equal(t, "#f00", r.CategoryColor)
	assert.Equal(t, "done", r.Status)
	assert.Equal(t, "var(--color-green)", r.StatusColor)
	assert.Equal(t, []string{"Urgent"}, r.Tags)
	assert.Equal(t, r.ID, r.Key)

	assert.Equal(t, 1, rows[1].Index)
	assert.Empty(t, rows[1].CategoryLabel)
	assert.Empty(t, rows[1].Status)
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.engine.SetCategories(ctx, []core.Category{{ID: "w", Label: "Work"}}))

	f.create(t, "write report", CreateOptions{CreateOptions: store.CreateOptions{Category: "w", Tags: []string{"job"}}})
	f.create(t, "water plants", CreateOptions{CreateOptions: store.CreateOptions{Category: "Work"}})
	f.create(t, "call mum", CreateOptions{CreateOptions: store.CreateOptions{Pinned: true}})

	cases := []struct {
		name     string
		criteria filter.Criteria
		want     []string
	}{
		{"None", filter.Criteria{}, []string{"call mum", "write report", "water plants"}},
		{"Query", filter.Criteria{Query: "WA"}, []string{"water plants"}},
		{"Tag", filter.Criteria{Tags: []string{"#JOB"}}, []string{"write report"}},
		{"Untagged", filter.Criteria{UntaggedOnly: true}, []string{"call mum"}},
		{"Pinned", filter.Criteria{PinnedOnly: true}, []string{"call mum"}},
		{"Category By Id Or Label", filter.Criteria{Category: "w"}, []string{"write report", "water plants"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.engine.SetFilter(tc.criteria)
			assert.Equal(t, tc.want, contents(f.engine.Visible()))
		})
	}

	t.Run("Archive State Belongs To Load", func(t *testing.T) {
		f.engine.SetFilter(filter.Criteria{Archived: true})
		assert.False(t, f.engine.Filter().Archived)
		assert.Len(t, f.engine.Visible(), 3)
	})
}
