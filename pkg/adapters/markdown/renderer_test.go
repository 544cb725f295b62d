package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r := New()
	out, err := r.Render(context.Background(), "**buy** milk\nand eggs\n\n- [x] done")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>buy</strong>")
	assert.Contains(t, out, "<br>")
	assert.Contains(t, out, `type="checkbox"`)
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Render(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name, source, want string
	}{
		{"heading", "# Groceries\nmilk", "Groceries"},
		{"paragraph", "call mom\nabout sunday", "call mom"},
		{"leading list", "- item\n\nafter", "item"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.source))
		})
	}
}
