// ABOUTME: Plain-text snippet extraction from card markdown via goldmark.
// ABOUTME: Walks the parsed AST so markup never leaks into summaries.

package envelope

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Snippet extracts a plain-text excerpt from markdown content, at most
// maxLen runes. Markup, links, and code fences are dropped by walking the
// parsed AST rather than stripping syntax with regexes.
func Snippet(source string, maxLen int) string {
	src := []byte(source)
	root := markdown.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Separate block-level nodes with a space
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				buf.WriteByte(' ')
			}
			if _, isHeading := n.(*ast.Heading); isHeading {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}

		if buf.Len() > maxLen*4 {
			// Enough raw text collected; stop walking large documents
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	plain := strings.Join(strings.Fields(buf.String()), " ")
	runes := []rune(plain)
	if len(runes) <= maxLen {
		return plain
	}
	return strings.TrimRight(string(runes[:maxLen]), " ") + "…"
}
