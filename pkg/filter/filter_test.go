package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

func ids(cards []*core.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func fixtures() []*core.Card {
	return []*core.Card{
		{ID: "1", Content: "Buy milk", Tags: []string{"home", "Errand"}},
		{ID: "2", Content: "Write report", Tags: []string{"work"}, Category: "cat-work", Pinned: true},
		{ID: "3", Content: "old idea", Archived: true, Tags: []string{"idea"}},
		{ID: "4", Content: "loose thought"},
		{ID: "5", Content: "Plan trip", Category: "Work", Status: &core.Status{Name: "todo"}},
		{ID: "6", Content: "no tags but category", Category: "misc"},
	}
}

var categories = []core.Category{
	{ID: "cat-work", Label: "Work"},
	{ID: "misc", Label: "Miscellaneous"},
	{ID: "other", Label: "misc"},
}

func TestPredicates(t *testing.T) {
	cards := fixtures()

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"Archive State Only", Criteria{}, []string{"1", "2", "4", "5", "6"}},
		{"Archived View", Criteria{Archived: true}, []string{"3"}},
		{"Pinned Only", Criteria{PinnedOnly: true}, []string{"2"}},
		{"Tags Are Conjunctive", Criteria{Tags: []string{"home", "#errand"}}, []string{"1"}},
		{"Missing Tag Excludes", Criteria{Tags: []string{"home", "work"}}, []string{}},
		{"Untagged Only Excludes Categories", Criteria{UntaggedOnly: true}, []string{"4"}},
		{"Query Matches Content", Criteria{Query: "REPORT"}, []string{"2"}},
		{"Query Matches Tags", Criteria{Query: "errand"}, []string{"1"}},
		{"Category By ID Matches Label", Criteria{Category: "cat-work"}, []string{"2", "5"}},
		{"Category By Label Matches ID", Criteria{Category: "Work"}, []string{"2", "5"}},
		{"ID Match Wins Over Label", Criteria{Category: "misc"}, []string{"6"}},
		{"Status By Name", Criteria{Status: "todo"}, []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(cards, tt.criteria, categories)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	cards := fixtures()
	criteria := []Criteria{
		{},
		{Query: "o"},
		{Category: "Work", Tags: []string{"work"}},
		{UntaggedOnly: true},
	}
	for _, c := range criteria {
		f := New(c, categories)
		once := f.Apply(cards)
		twice := f.Apply(once)
		assert.Equal(t, ids(once), ids(twice))
	}
}

func TestCategoryAliases(t *testing.T) {
	assert.Equal(t, []string{"cat-work", "Work"}, CategoryAliases("cat-work", categories))
	assert.Equal(t, []string{"Work", "cat-work"}, CategoryAliases("Work", categories))
	assert.Equal(t, []string{"misc", "Miscellaneous"}, CategoryAliases("misc", categories))
	assert.Equal(t, []string{"unknown"}, CategoryAliases("unknown", categories))
}

func TestActive(t *testing.T) {
	assert.False(t, Criteria{Archived: true}.Active())
	assert.True(t, Criteria{Query: "x"}.Active())
}
