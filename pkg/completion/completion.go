// Package completion suggests HTML element names while a tag name is being typed.
package completion

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/virtual"
	"go.lsp.dev/protocol"
)

// Complete returns the element names matching the tag name under place, each with an edit replacing the
// whole name. It returns nil when the cursor is not on a tag name.
func Complete(ctx context.Context, doc *virtual.Document, place position.Place) *protocol.CompletionList {
	lines := doc.Lines()
	offset := lines.OffsetAt(place)

	tc, ok := TagNameAt(doc.Parsed, offset)
	if !ok {
		return nil
	}

	edit := lines.RangeAt(tc.Name).Protocol()
	prefix := strings.ToLower(tc.Prefix)

	list := &protocol.CompletionList{}
	for _, name := range extract.HTMLTags() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		list.Items = append(list.Items, protocol.CompletionItem{
			Label:  name,
			Kind:   protocol.CompletionItemKindProperty,
			Detail: "HTML element",
			TextEdit: &protocol.TextEdit{
				Range:   edit,
				NewText: name,
			},
		})
	}

	zerolog.Ctx(ctx).Trace().Str("prefix", prefix).Int("items", len(list.Items)).Msg("tag name completion")
	return list
}
