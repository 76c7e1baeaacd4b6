package hover

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Plaintext strips markdown syntax for clients that cannot render it. Link destinations are kept in
// parentheses after the link text.
func Plaintext(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.RawHTML:
			if entering {
				for i := range node.Segments.Len() {
					seg := node.Segments.At(i)
					sb.Write(seg.Value(source))
				}
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := range lines.Len() {
					seg := lines.At(i)
					sb.Write(seg.Value(source))
				}
			}
		case *ast.Link:
			if !entering {
				sb.WriteString(" (" + string(node.Destination) + ")")
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && n.NextSibling() != nil {
				sb.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}
