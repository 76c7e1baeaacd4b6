// Package extract derives other-language documents from a parsed Marko template.
package extract

import (
	"strconv"
	"strings"

	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/sourcemap"
)

// NodeIDAttr is injected into every emitted HTML element so analyzer results can be traced back to it.
const NodeIDAttr = "data-marko-node-id"

// NodeDetail records what the extractor had to erase from one element.
type NodeDetail struct {
	HasDynamicAttrs bool `json:"hasDynamicAttrs"`
	HasDynamicBody  bool `json:"hasDynamicBody"`
}

// HTMLResult is the derived HTML for one parsed template.
type HTMLResult struct {
	*sourcemap.Generated
	// NodeDetails is keyed by the node id injected into the element.
	NodeDetails map[string]NodeDetail
	// NodeOffsets holds the generated offset of each element's tag name, keyed by node id.
	NodeOffsets map[string]int
}

// HTML extracts a structurally valid HTML document from the template. Dynamic content is erased: body
// placeholders become the word "placeholder" and expression-valued attributes become "dynamic". Custom
// tags are replaced by a plain div around their body. Script and style elements are left out.
func HTML(parsed *parser.Parsed) *HTMLResult {
	x := &htmlExtractor{
		parsed:  parsed,
		codegen: sourcemap.NewCodegen(parsed.Code),
		details: map[string]NodeDetail{},
		offsets: map[string]int{},
	}

	if parsed.Program != nil {
		for _, node := range parsed.Program.Body {
			x.visit(node)
		}
	}

	return &HTMLResult{
		Generated:   x.codegen.End(),
		NodeDetails: x.details,
		NodeOffsets: x.offsets,
	}
}

type htmlExtractor struct {
	parsed  *parser.Parsed
	codegen *sourcemap.Codegen
	details map[string]NodeDetail
	offsets map[string]int
	nextID  int
}

// visit writes one child node and reports whether it, or anything below it, is dynamic.
func (x *htmlExtractor) visit(node parser.ChildNode) bool {
	switch n := node.(type) {
	case *parser.AttrTag:
		dynamic := false
		for _, child := range n.Body {
			if x.visit(child) {
				dynamic = true
			}
		}
		return dynamic

	case *parser.Tag:
		if n.NameText == "script" || n.NameText == "style" {
			return false
		}
		id := strconv.Itoa(x.nextID)
		x.nextID++

		if n.NameText == "" || !IsHTMLTag(n.NameText) {
			x.writeCustomTag(n)
			x.details[id] = NodeDetail{}
			return true
		}

		detail := x.writeHTMLTag(n, id)
		x.details[id] = detail
		return detail.HasDynamicBody

	case *parser.Text:
		x.codegen.Copy(n.Range)
		return false

	case *parser.Placeholder:
		x.codegen.Write("placeholder")
		return !n.Escape
	}

	return false
}

func (x *htmlExtractor) writeHTMLTag(tag *parser.Tag, id string) NodeDetail {
	var detail NodeDetail

	x.codegen.Write("<")
	x.offsets[id] = x.codegen.Len()
	if tag.Name.IsEmpty() {
		x.codegen.CopyAs(tag.Name, tag.NameText)
	} else {
		x.codegen.Copy(tag.Name)
	}
	x.codegen.Write(" " + NodeIDAttr + `="` + id + `"`)

	for _, attr := range tag.Attrs {
		switch a := attr.(type) {
		case *parser.AttrNamed:
			x.writeAttrNamed(a)
		case *parser.AttrSpread:
			detail.HasDynamicAttrs = true
		}
	}
	x.codegen.Write(">")

	if IsVoidTag(tag.NameText) {
		return detail
	}

	for _, child := range tag.Body {
		if x.visit(child) {
			detail.HasDynamicBody = true
		}
	}
	x.codegen.Write("</" + tag.NameText + ">")

	return detail
}

func (x *htmlExtractor) writeCustomTag(tag *parser.Tag) {
	if tag.Body == nil {
		return
	}
	x.codegen.Write("<div>")
	for _, child := range tag.Body {
		x.visit(child)
	}
	x.codegen.Write("</div>")
}

var modifierSuffixes = []string{":scoped", ":no-update", ":no-update-if"}

func (x *htmlExtractor) writeAttrNamed(attr *parser.AttrNamed) {
	if attr.Name.IsEmpty() {
		return
	}
	if _, ok := attr.Value.(*parser.AttrMethod); ok {
		return
	}

	name := attr.Name
	nameText := x.parsed.Read(name)
	for _, suffix := range modifierSuffixes {
		if strings.HasSuffix(nameText, suffix) {
			name.End = name.Start + strings.LastIndexByte(nameText, ':')
			break
		}
	}

	value, _ := attr.Value.(*parser.AttrValue)
	if value == nil {
		x.codegen.Write(" ").Copy(name)
		return
	}

	valueType := AttributeValueDynamic
	if !value.Bound {
		valueType = AttributeValueTypeOf(x.parsed.Read(value.Value))
	}
	if valueType == AttributeValueSkip {
		return
	}

	x.codegen.Write(" ").Copy(name)
	switch valueType {
	case AttributeValueLiteral:
		x.codegen.Write(`="`).Copy(value.Value).Write(`"`)
	case AttributeValueQuotedString:
		inner := position.NewRange(value.Value.Start+1, value.Value.End-1)
		x.codegen.Write(`="`).Copy(inner).Write(`"`)
	case AttributeValueDynamic:
		x.codegen.Write(`="dynamic"`)
	}
}
