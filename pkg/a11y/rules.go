package a11y

import (
	"maps"
	"strings"

	"golang.org/x/net/html"
)

// Rule checks one element. Check returns a failure message, or "" when the element passes or the rule
// does not apply to it.
type Rule struct {
	ID    string
	Check func(el *html.Node, ix *Index) string
}

// Exception says when a violation of a rule cannot be trusted because of content the extractor erased.
type Exception struct {
	// AttrSpread drops violations on elements with spread attributes.
	AttrSpread bool `yaml:"attrSpread"`
	// UnknownBody drops violations on elements whose body contains dynamic content.
	UnknownBody bool `yaml:"unknownBody"`
	// DynamicAttrs drops violations when any of these attributes had an expression value.
	DynamicAttrs []string `yaml:"dynamicAttrs"`
}

// RuleExceptions is the built-in exception policy for every default rule.
var RuleExceptions = map[string]Exception{
	"image-alt":       {AttrSpread: true, DynamicAttrs: []string{"role"}},
	"input-image-alt": {AttrSpread: true},
	"button-name":     {AttrSpread: true, UnknownBody: true, DynamicAttrs: []string{"role"}},
	"link-name":       {AttrSpread: true, UnknownBody: true, DynamicAttrs: []string{"href"}},
	"label":           {AttrSpread: true, DynamicAttrs: []string{"id", "type"}},
	"aria-valid-attr": {},
	"html-has-lang":   {AttrSpread: true},
}

// DefaultExceptions returns a copy of RuleExceptions that callers may modify.
func DefaultExceptions() map[string]Exception {
	return maps.Clone(RuleExceptions)
}

func DefaultRules() []Rule {
	return []Rule{
		{ID: "image-alt", Check: checkImageAlt},
		{ID: "input-image-alt", Check: checkInputImageAlt},
		{ID: "button-name", Check: checkButtonName},
		{ID: "link-name", Check: checkLinkName},
		{ID: "label", Check: checkLabel},
		{ID: "aria-valid-attr", Check: checkAriaValidAttr},
		{ID: "html-has-lang", Check: checkHTMLHasLang},
	}
}

func checkImageAlt(el *html.Node, ix *Index) string {
	if el.Data != "img" {
		return ""
	}
	if _, ok := attr(el, "alt"); ok {
		return ""
	}
	if isPresentational(el) || hasAccessibleName(el, ix) {
		return ""
	}
	return "Images must have alternative text"
}

func checkInputImageAlt(el *html.Node, ix *Index) string {
	if el.Data != "input" || inputType(el) != "image" {
		return ""
	}
	if alt, _ := attr(el, "alt"); strings.TrimSpace(alt) != "" {
		return ""
	}
	if hasAccessibleName(el, ix) {
		return ""
	}
	return "Image buttons must have alternative text"
}

func checkButtonName(el *html.Node, ix *Index) string {
	if el.Data != "button" {
		return ""
	}
	if hasAccessibleName(el, ix) || hasVisibleText(el) {
		return ""
	}
	return "Buttons must have discernible text"
}

func checkLinkName(el *html.Node, ix *Index) string {
	if el.Data != "a" {
		return ""
	}
	if _, ok := attr(el, "href"); !ok {
		return ""
	}
	if hasAccessibleName(el, ix) || hasVisibleText(el) {
		return ""
	}
	return "Links must have discernible text"
}

var unlabelledInputTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"reset":  true,
	"button": true,
	"image":  true,
}

func checkLabel(el *html.Node, ix *Index) string {
	switch el.Data {
	case "input":
		if unlabelledInputTypes[inputType(el)] {
			return ""
		}
	case "select", "textarea":
	default:
		return ""
	}

	if hasAccessibleName(el, ix) {
		return ""
	}
	if p, _ := attr(el, "placeholder"); strings.TrimSpace(p) != "" {
		return ""
	}
	if id, ok := attr(el, "id"); ok && ix.Labelled(id) {
		return ""
	}
	for p := el.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "label" {
			return ""
		}
	}
	return "Form elements must have labels"
}

var ariaAttributes = map[string]bool{}

func init() {
	for _, name := range strings.Fields(`
		activedescendant atomic autocomplete braillelabel brailleroledescription busy checked colcount
		colindex colindextext colspan controls current describedby description details disabled
		dropeffect errormessage expanded flowto grabbed haspopup hidden invalid keyshortcuts label
		labelledby level live modal multiline multiselectable orientation owns placeholder posinset
		pressed readonly relevant required roledescription rowcount rowindex rowindextext rowspan
		selected setsize sort valuemax valuemin valuenow valuetext`) {
		ariaAttributes["aria-"+name] = true
	}
}

func checkAriaValidAttr(el *html.Node, _ *Index) string {
	var invalid []string
	for _, a := range el.Attr {
		if strings.HasPrefix(a.Key, "aria-") && !ariaAttributes[a.Key] {
			invalid = append(invalid, a.Key)
		}
	}
	if len(invalid) == 0 {
		return ""
	}
	return "ARIA attributes must conform to valid names: " + strings.Join(invalid, ", ")
}

func checkHTMLHasLang(el *html.Node, _ *Index) string {
	if el.Data != "html" {
		return ""
	}
	if lang, _ := attr(el, "lang"); strings.TrimSpace(lang) != "" {
		return ""
	}
	return "<html> element must have a lang attribute"
}

func inputType(el *html.Node) string {
	t, _ := attr(el, "type")
	return strings.ToLower(strings.TrimSpace(t))
}

func isPresentational(el *html.Node) bool {
	role, _ := attr(el, "role")
	role = strings.TrimSpace(role)
	return role == "presentation" || role == "none"
}

// hasAccessibleName checks the attributes that name an element regardless of its content.
func hasAccessibleName(el *html.Node, ix *Index) bool {
	if v, _ := attr(el, "aria-label"); strings.TrimSpace(v) != "" {
		return true
	}
	if v, _ := attr(el, "title"); strings.TrimSpace(v) != "" {
		return true
	}
	if v, ok := attr(el, "aria-labelledby"); ok {
		for _, id := range strings.Fields(v) {
			if ref := ix.ByID(id); ref != nil && strings.TrimSpace(textContent(ref)) != "" {
				return true
			}
		}
	}
	return false
}

// hasVisibleText reports whether the element's subtree contains text or an image with alt text.
func hasVisibleText(el *html.Node) bool {
	if strings.TrimSpace(textContent(el)) != "" {
		return true
	}
	found := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "img" {
				if alt, _ := attr(c, "alt"); strings.TrimSpace(alt) != "" {
					found = true
					return
				}
			}
			walk(c)
		}
	}
	walk(el)
	return found
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
