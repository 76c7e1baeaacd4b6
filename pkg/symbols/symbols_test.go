package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/symbols"
	"go.lsp.dev/protocol"
)

func rng(sl, sc, el, ec uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: sl, Character: sc},
		End:   protocol.Position{Line: el, Character: ec},
	}
}

func TestDocument(t *testing.T) {
	src := "<div>\n  <@header>x</@header>\n  <${tag}/>\n  <my-card/>\n</div>"
	got := symbols.Document(parser.Parse("test.marko", src), nil)
	require.Len(t, got, 1)

	div := got[0]
	assert.Equal(t, "div", div.Name)
	assert.Equal(t, protocol.SymbolKindProperty, div.Kind)
	assert.Equal(t, rng(0, 0, 4, 6), div.Range)
	assert.Equal(t, div.Range, div.SelectionRange)

	require.Len(t, div.Children, 3)

	header := div.Children[0]
	assert.Equal(t, "@header", header.Name)
	assert.Equal(t, protocol.SymbolKindClass, header.Kind)
	assert.Equal(t, rng(1, 2, 1, 22), header.Range)

	assert.Equal(t, "<${...}>", div.Children[1].Name)
	assert.Equal(t, protocol.SymbolKindClass, div.Children[1].Kind)

	assert.Equal(t, "my-card", div.Children[2].Name)
	assert.Equal(t, protocol.SymbolKindClass, div.Children[2].Kind)
	assert.Empty(t, div.Children[2].Children)
}

func TestDocumentSkipsNonTags(t *testing.T) {
	got := symbols.Document(parser.Parse("test.marko", "hello ${name} <!-- c --><p>x</p>"), nil)
	require.Len(t, got, 1)
	assert.Equal(t, "p", got[0].Name)
}

func TestDocumentKindLookup(t *testing.T) {
	all := func(string) bool { return true }
	got := symbols.Document(parser.Parse("test.marko", "<my-card/>"), all)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.SymbolKindProperty, got[0].Kind)
}

func TestDocumentEmpty(t *testing.T) {
	assert.Empty(t, symbols.Document(parser.Parse("test.marko", ""), nil))
	assert.Nil(t, symbols.Document(nil, nil))
}
