// Package symbols builds the document outline of a template.
package symbols

import (
	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/position"
	"go.lsp.dev/protocol"
)

const dynamicName = "<${...}>"

// Document returns one symbol per tag, nested the way the tags are. isHTML decides the symbol kind and
// defaults to the built-in HTML element list.
func Document(parsed *parser.Parsed, isHTML func(name string) bool) []protocol.DocumentSymbol {
	if parsed == nil || parsed.Program == nil {
		return nil
	}
	if isHTML == nil {
		isHTML = extract.IsHTMLTag
	}
	b := &builder{text: parsed.Text(), isHTML: isHTML}
	return b.children(parsed.Program.Body)
}

type builder struct {
	text   *position.Text
	isHTML func(string) bool
}

func (b *builder) children(nodes []parser.ChildNode) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, n := range nodes {
		var tag *parser.Tag
		switch n := n.(type) {
		case *parser.Tag:
			tag = n
		case *parser.AttrTag:
			tag = &n.Tag
		default:
			continue
		}
		out = append(out, b.symbol(tag))
	}
	return out
}

func (b *builder) symbol(tag *parser.Tag) protocol.DocumentSymbol {
	name := tag.NameText
	if name == "" {
		name = dynamicName
	}

	kind := protocol.SymbolKindClass
	if tag.NameText != "" && b.isHTML(tag.NameText) {
		kind = protocol.SymbolKindProperty
	}

	r := b.text.RangeAt(tag.Range).Protocol()

	return protocol.DocumentSymbol{
		Name:           name,
		Kind:           kind,
		Range:          r,
		SelectionRange: r,
		Children:       b.children(tag.Body),
	}
}
