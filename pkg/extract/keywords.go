package extract

import (
	"regexp"
	"sort"
	"strings"
)

var htmlTags = map[string]bool{}

var voidTags = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

func init() {
	for _, name := range strings.Fields(`
		a abbr address area article aside audio b base bdi bdo blockquote body br button canvas caption
		cite code col colgroup data datalist dd del details dfn dialog div dl dt em embed fieldset
		figcaption figure footer form h1 h2 h3 h4 h5 h6 head header hgroup hr html i iframe img input ins
		kbd label legend li link main map mark menu meta meter nav noscript object ol optgroup option
		output p param picture pre progress q rp rt ruby s samp script search section select slot small
		source span strong style sub summary sup table tbody td template textarea tfoot th thead time
		title tr track u ul var video wbr
		svg math`) {
		htmlTags[name] = true
	}
}

// IsHTMLTag reports whether name is a standard HTML element.
func IsHTMLTag(name string) bool {
	return htmlTags[name]
}

// IsVoidTag reports whether name is an HTML element that never has a closing tag or children.
func IsVoidTag(name string) bool {
	return voidTags[name]
}

// HTMLTags returns every known HTML element name, sorted.
func HTMLTags() []string {
	names := make([]string, 0, len(htmlTags))
	for name := range htmlTags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AttributeValueType classifies the right hand side of a named attribute for HTML output.
type AttributeValueType int

const (
	// AttributeValueSkip drops the attribute value entirely.
	AttributeValueSkip AttributeValueType = iota
	// AttributeValueTrue is a boolean attribute, emitted without a value.
	AttributeValueTrue
	// AttributeValueLiteral is a number or other literal copied as is.
	AttributeValueLiteral
	// AttributeValueQuotedString is a string literal copied without its quotes.
	AttributeValueQuotedString
	// AttributeValueDynamic is any expression; it is emitted as the fixed value "dynamic".
	AttributeValueDynamic
)

func (t AttributeValueType) String() string {
	switch t {
	case AttributeValueTrue:
		return "true"
	case AttributeValueLiteral:
		return "literal"
	case AttributeValueQuotedString:
		return "quoted-string"
	case AttributeValueDynamic:
		return "dynamic"
	default:
		return "skip"
	}
}

var (
	numberLiteral = regexp.MustCompile(`^[+-]?(?:(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?|0[xX][0-9a-fA-F]+|0[bB][01]+|0[oO][0-7]+|NaN|Infinity)$`)
	quotedLiteral = regexp.MustCompile(`^(?:"(?:[^"\\\n]|\\.)*"|'(?:[^'\\\n]|\\.)*'|` + "`(?:[^`\\\\$]|\\\\.|\\$[^{])*`" + `)$`)
)

// AttributeValueTypeOf classifies a bare attribute value expression.
func AttributeValueTypeOf(expr string) AttributeValueType {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "", "true":
		return AttributeValueTrue
	case "null", "false", "undefined":
		return AttributeValueSkip
	}

	if strings.Contains(expr, "${") {
		return AttributeValueDynamic
	}
	if numberLiteral.MatchString(expr) {
		return AttributeValueLiteral
	}
	if quotedLiteral.MatchString(expr) {
		return AttributeValueQuotedString
	}
	return AttributeValueDynamic
}
