package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/virtual"
	"golang.org/x/net/html"
)

const mdnElement = "https://developer.mozilla.org/docs/Web/HTML/Element/"

var elementDocs = map[string]string{
	"a":        "Creates a hyperlink to web pages, files, email addresses, locations in the same page, or anything else a URL can address.",
	"article":  "Represents a self-contained composition intended to be independently distributable or reusable.",
	"aside":    "Represents a portion of a document whose content is only indirectly related to the main content.",
	"body":     "Represents the content of an HTML document. There can be only one such element in a document.",
	"button":   "An interactive element activated by a user that performs an action, such as submitting a form or opening a dialog.",
	"div":      "The generic container for flow content. It has no effect on the content or layout until styled.",
	"footer":   "Represents a footer for its nearest ancestor sectioning content or sectioning root element.",
	"form":     "Represents a document section containing interactive controls for submitting information.",
	"h1":       "Represents a level 1 section heading.",
	"h2":       "Represents a level 2 section heading.",
	"h3":       "Represents a level 3 section heading.",
	"head":     "Contains machine-readable information about the document, like its title, scripts, and style sheets.",
	"header":   "Represents introductory content, typically a group of introductory or navigational aids.",
	"html":     "Represents the root of an HTML document. All other elements must be descendants of this element.",
	"img":      "Embeds an image into the document.",
	"input":    "Creates interactive controls for web-based forms to accept data from the user.",
	"label":    "Represents a caption for an item in a user interface.",
	"li":       "Represents an item in a list.",
	"main":     "Represents the dominant content of the body of a document.",
	"nav":      "Represents a section of a page whose purpose is to provide navigation links.",
	"ol":       "Represents an ordered list of items, typically rendered as a numbered list.",
	"option":   "Defines an item contained in a select, an optgroup, or a datalist element.",
	"p":        "Represents a paragraph.",
	"section":  "Represents a generic standalone section of a document, which doesn't have a more specific semantic element to represent it.",
	"select":   "Represents a control that provides a menu of options.",
	"span":     "A generic inline container for phrasing content, which does not inherently represent anything.",
	"table":    "Represents tabular data in rows and columns of cells.",
	"td":       "Defines a cell of a table that contains data.",
	"textarea": "Represents a multi-line plain-text editing control.",
	"th":       "Defines a cell as the header of a group of table cells.",
	"tr":       "Defines a row of cells in a table.",
	"ul":       "Represents an unordered list of items, typically rendered as a bulleted list.",
}

var attributeDocs = map[string]string{
	"alt":             "Text description of the image, used when the image cannot be displayed and by assistive technology.",
	"aria-label":      "Defines a string value that labels the current element.",
	"aria-labelledby": "Identifies the element (or elements) that labels the current element.",
	"aria-hidden":     "Indicates whether the element is exposed to an accessibility API.",
	"class":           "A space-separated list of the classes of the element.",
	"disabled":        "Indicates that the user cannot interact with the control.",
	"for":             "The id of a labelable form-related element in the same document as the label.",
	"href":            "The URL that the hyperlink points to.",
	"id":              "Defines an identifier which must be unique in the whole document.",
	"lang":            "Participates in defining the language of the element.",
	"name":            "Name of the form control, submitted with the form as part of a name/value pair.",
	"placeholder":     "Text that appears in the form control when it has no value set.",
	"role":            "Defines an explicit role for an element for use by assistive technologies.",
	"src":             "The URL of the embeddable content.",
	"style":           "Contains CSS styling declarations to be applied to the element.",
	"tabindex":        "Indicates if the element can take input focus, and in which order.",
	"title":           "Contains a text representing advisory information related to the element.",
	"type":            "The type of control, button, or linked resource.",
	"value":           "The initial value of the control.",
}

// HTMLProvider describes the element and attribute names of a derived HTML document.
type HTMLProvider struct{}

var _ Provider = HTMLProvider{}

func (HTMLProvider) Hover(ctx context.Context, doc *virtual.DerivedDocument, offset int) (*Info, error) {
	name, r, isAttr, ok := nameAt(doc.Text, offset)
	if !ok {
		return nil, nil
	}

	if isAttr {
		desc, ok := attributeDocs[name]
		if !ok {
			return nil, nil
		}
		return &Info{Contents: fmt.Sprintf("`%s`\n\n%s", name, desc), Range: &r}, nil
	}

	desc, ok := elementDocs[name]
	if !ok {
		if !extract.IsHTMLTag(name) {
			return nil, nil
		}
		desc = "HTML element."
	}
	return &Info{
		Contents: fmt.Sprintf("`<%s>`\n\n%s\n\n[MDN Reference](%s%s)", name, desc, mdnElement, name),
		Range:    &r,
	}, nil
}

// nameAt finds the tag or attribute name whose span contains offset.
func nameAt(code string, offset int) (string, position.Range, bool, bool) {
	z := html.NewTokenizer(strings.NewReader(code))
	pos := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return "", position.Range{}, false, false
		}
		raw := z.Raw()
		start := pos
		pos += len(raw)
		if offset < start || offset > pos {
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			return scanStartTag(string(raw), start, offset)
		case html.EndTagToken:
			name := tagName(string(raw), 2)
			r := position.NewRange(start+2, start+2+len(name))
			if name != "" && r.ContainsInclusive(offset) {
				return strings.ToLower(name), r, false, true
			}
		}
		if offset < pos {
			return "", position.Range{}, false, false
		}
	}
}

func tagName(raw string, from int) string {
	end := from
	for end < len(raw) && !isTagBoundary(raw[end]) {
		end++
	}
	return raw[from:end]
}

func isTagBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '/' || c == '>' || c == '='
}

func scanStartTag(raw string, base, offset int) (string, position.Range, bool, bool) {
	name := tagName(raw, 1)
	r := position.NewRange(base+1, base+1+len(name))
	if name != "" && r.ContainsInclusive(offset) {
		return strings.ToLower(name), r, false, true
	}

	i := 1 + len(name)
	for i < len(raw) {
		c := raw[i]
		if isTagBoundary(c) {
			i++
			continue
		}
		attrStart := i
		key := tagName(raw, i)
		i += len(key)
		ar := position.NewRange(base+attrStart, base+i)
		if ar.ContainsInclusive(offset) && key != extract.NodeIDAttr {
			return strings.ToLower(key), ar, true, true
		}
		if i < len(raw) && raw[i] == '=' {
			i = skipAttrValue(raw, i+1)
		}
	}
	return "", position.Range{}, false, false
}

func skipAttrValue(raw string, i int) int {
	if i >= len(raw) {
		return i
	}
	if q := raw[i]; q == '"' || q == '\'' {
		end := strings.IndexByte(raw[i+1:], q)
		if end < 0 {
			return len(raw)
		}
		return i + end + 2
	}
	for i < len(raw) && raw[i] != ' ' && raw[i] != '\t' && raw[i] != '\n' && raw[i] != '>' {
		i++
	}
	return i
}
