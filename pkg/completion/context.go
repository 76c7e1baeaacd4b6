package completion

import (
	"strings"

	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/position"
)

// TagNameContext describes a cursor sitting on a static tag name.
type TagNameContext struct {
	// Name is the range the completion replaces.
	Name position.Range
	// Prefix is the part of the name before the cursor.
	Prefix string
}

// TagNameAt finds the tag name under offset. A bare '<' right before the cursor counts as an empty name.
func TagNameAt(parsed *parser.Parsed, offset int) (*TagNameContext, bool) {
	if parsed == nil || parsed.Program == nil {
		return nil, false
	}

	var found *parser.Tag
	parser.Walk(parsed.Program.Body, func(n parser.ChildNode) bool {
		if found != nil {
			return false
		}
		var tag *parser.Tag
		switch n := n.(type) {
		case *parser.Tag:
			tag = n
		case *parser.AttrTag:
			tag = &n.Tag
		default:
			return false
		}
		if !tag.Range.ContainsInclusive(offset) {
			return false
		}
		if tag.Name.ContainsInclusive(offset) {
			found = tag
			return false
		}
		return true
	})

	if found != nil {
		// dynamic names and attribute tags are not element names
		if found.NameText == "" && !found.Name.IsEmpty() || strings.HasPrefix(found.NameText, "@") {
			return nil, false
		}
		return &TagNameContext{
			Name:   found.Name,
			Prefix: parsed.Read(position.NewRange(found.Name.Start, offset)),
		}, true
	}

	if offset > 0 && offset <= len(parsed.Code) && parsed.Code[offset-1] == '<' {
		return &TagNameContext{Name: position.NewRange(offset, offset)}, true
	}
	return nil, false
}
