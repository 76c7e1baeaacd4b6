package parser

import (
	"github.com/walteh/markols/pkg/position"
)

// NodeType is the closed set of node kinds a Marko CST can contain.
type NodeType int

const (
	NodeProgram NodeType = iota
	NodeTag
	NodeAttrTag
	NodeAttrNamed
	NodeAttrValue
	NodeAttrMethod
	NodeAttrSpread
	NodeText
	NodePlaceholder
	NodeComment
)

func (t NodeType) String() string {
	switch t {
	case NodeProgram:
		return "Program"
	case NodeTag:
		return "Tag"
	case NodeAttrTag:
		return "AttrTag"
	case NodeAttrNamed:
		return "AttrNamed"
	case NodeAttrValue:
		return "AttrValue"
	case NodeAttrMethod:
		return "AttrMethod"
	case NodeAttrSpread:
		return "AttrSpread"
	case NodeText:
		return "Text"
	case NodePlaceholder:
		return "Placeholder"
	case NodeComment:
		return "Comment"
	default:
		return "Unknown"
	}
}

// Node is implemented by every CST node. The set of implementations is closed to this package.
type Node interface {
	Type() NodeType
	Span() position.Range
}

// ChildNode can appear in a program or tag body.
type ChildNode interface {
	Node
	childNode()
}

// AttrNode can appear in a tag's attribute list.
type AttrNode interface {
	Node
	attrNode()
}

// AttrValueNode is the right hand side of a named attribute.
type AttrValueNode interface {
	Node
	attrValueNode()
}

type Program struct {
	position.Range
	Body []ChildNode
}

type Tag struct {
	position.Range
	// Name is the range of the tag name. It is empty for error-recovery nodes with no name.
	Name position.Range
	// NameText is the static tag name, empty when the name is dynamic (`<${x}>`) or missing.
	NameText string
	Attrs    []AttrNode
	// Body is nil when the tag has no children.
	Body       []ChildNode
	SelfClosed bool
	// Open is the range of the opening tag, from '<' through '>'.
	Open position.Range
}

// AttrTag is a `<@name>` tag. It has the same shape as a Tag.
type AttrTag struct {
	Tag
}

type Text struct {
	position.Range
}

// Placeholder is a `${...}` (escaped) or `$!{...}` (unescaped) expression.
type Placeholder struct {
	position.Range
	Value  position.Range
	Escape bool
}

type Comment struct {
	position.Range
	Value position.Range
}

type AttrNamed struct {
	position.Range
	Name position.Range
	// Args is the `(...)` following the name, when present and not a method.
	Args  *position.Range
	Value AttrValueNode
}

// AttrValue covers `=expr` or `:=expr`; Range starts at the operator, Value is the bare expression.
type AttrValue struct {
	position.Range
	Value position.Range
	Bound bool
}

type AttrMethod struct {
	position.Range
	Params position.Range
	Body   position.Range
}

type AttrSpread struct {
	position.Range
	Value position.Range
}

func (*Program) Type() NodeType     { return NodeProgram }
func (*Tag) Type() NodeType         { return NodeTag }
func (*AttrTag) Type() NodeType     { return NodeAttrTag }
func (*Text) Type() NodeType        { return NodeText }
func (*Placeholder) Type() NodeType { return NodePlaceholder }
func (*Comment) Type() NodeType     { return NodeComment }
func (*AttrNamed) Type() NodeType   { return NodeAttrNamed }
func (*AttrValue) Type() NodeType   { return NodeAttrValue }
func (*AttrMethod) Type() NodeType  { return NodeAttrMethod }
func (*AttrSpread) Type() NodeType  { return NodeAttrSpread }

func (n *Program) Span() position.Range     { return n.Range }
func (n *Tag) Span() position.Range         { return n.Range }
func (n *Text) Span() position.Range        { return n.Range }
func (n *Placeholder) Span() position.Range { return n.Range }
func (n *Comment) Span() position.Range     { return n.Range }
func (n *AttrNamed) Span() position.Range   { return n.Range }
func (n *AttrValue) Span() position.Range   { return n.Range }
func (n *AttrMethod) Span() position.Range  { return n.Range }
func (n *AttrSpread) Span() position.Range  { return n.Range }

func (*Tag) childNode()         {}
func (*Text) childNode()        {}
func (*Placeholder) childNode() {}
func (*Comment) childNode()     {}

func (*AttrNamed) attrNode()  {}
func (*AttrSpread) attrNode() {}

func (*AttrValue) attrValueNode()  {}
func (*AttrMethod) attrValueNode() {}

// Error is a recovered syntax problem.
type Error struct {
	Range   position.Range
	Message string
}

// Parsed is the result of parsing one template source.
type Parsed struct {
	Filename string
	Code     string
	Program  *Program
	Errors   []Error

	text *position.Text
}

// Read returns the source text of r, clamped to the document.
func (p *Parsed) Read(r position.Range) string {
	start, end := clamp(r.Start, len(p.Code)), clamp(r.End, len(p.Code))
	if end < start {
		return ""
	}
	return p.Code[start:end]
}

func (p *Parsed) PositionAt(offset int) position.Place {
	return p.Text().PlaceAt(offset)
}

func (p *Parsed) Text() *position.Text {
	if p.text == nil {
		return position.NewText(p.Code)
	}
	return p.text
}

// Walk visits every child node depth first. Returning false from fn skips the node's body.
func Walk(nodes []ChildNode, fn func(ChildNode) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch n := n.(type) {
		case *Tag:
			Walk(n.Body, fn)
		case *AttrTag:
			Walk(n.Body, fn)
		}
	}
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
