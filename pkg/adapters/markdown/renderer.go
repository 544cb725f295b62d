// Package markdown renders card bodies with goldmark.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// Renderer implements core.Renderer producing HTML.
type Renderer struct {
	md goldmark.Markdown
}

var _ core.Renderer = (*Renderer)(nil)

// New creates a renderer with GitHub flavoured extensions. Line breaks inside
// a card are kept as hard breaks; raw HTML is escaped.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render converts the markdown source to HTML.
func (r *Renderer) Render(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render card: %w", err)
	}
	return buf.String(), nil
}

// Title returns the plain text of the first heading or paragraph, which is
// what a card list shows as the card's headline.
func Title(source string) string {
	src := []byte(source)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
			lines := n.Lines()
			if lines.Len() == 0 {
				return ast.WalkContinue, nil
			}
			seg := lines.At(0)
			title = strings.TrimSpace(string(seg.Value(src)))
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return title
}
