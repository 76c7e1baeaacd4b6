// Package parser builds the Marko concrete syntax tree consumed by the extractors.
//
// It is a small recovering parser: it understands tags, attribute tags, named, spread and method
// attributes, text, placeholders and comments. It never fails; syntax problems are recorded in
// Parsed.Errors and the tree is closed off as well as possible.
package parser

import (
	"fmt"
	"strings"

	"github.com/walteh/markols/pkg/position"
)

// Parse parses one template source.
func Parse(filename, code string) *Parsed {
	s := &scanner{src: code}
	body, _ := s.parseBody(nil)
	return &Parsed{
		Filename: filename,
		Code:     code,
		Program: &Program{
			Range: position.NewRange(0, len(code)),
			Body:  body,
		},
		Errors: s.errs,
		text:   position.NewText(code),
	}
}

type scanner struct {
	src  string
	pos  int
	errs []Error
}

func (s *scanner) errorf(start, end int, format string, args ...any) {
	s.errs = append(s.errs, Error{Range: position.NewRange(start, end), Message: fmt.Sprintf(format, args...)})
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.src[s.pos:], p)
}

// closing describes a `</name>` that ended a body.
type closing struct {
	name string
	end  int
}

// parseBody reads children until EOF or a closing tag that belongs to one of the open tags.
// open holds the names of the enclosing tags, innermost last.
func (s *scanner) parseBody(open []string) ([]ChildNode, *closing) {
	var body []ChildNode
	textStart := -1

	flushText := func() {
		if textStart >= 0 && textStart < s.pos {
			body = append(body, &Text{Range: position.NewRange(textStart, s.pos)})
		}
		textStart = -1
	}

	for !s.eof() {
		switch {
		case s.hasPrefix("</"):
			flushText()
			start := s.pos
			name, end := s.scanClosingTag()
			if len(open) == 0 {
				s.errorf(start, end, "unexpected closing tag </%s>", name)
				s.pos = end
				continue
			}
			parent, ancestors := open[len(open)-1], open[:len(open)-1]
			switch {
			case name == "" || name == parent:
				s.pos = end
				return body, &closing{name: name, end: end}
			case contains(ancestors, name):
				// leave it for the ancestor it belongs to
				s.errorf(start, start, "missing closing tag for <%s>", parent)
				return body, nil
			case parent == "":
				// dynamic tag names accept any closing name
				s.pos = end
				return body, &closing{name: name, end: end}
			default:
				s.errorf(start, end, "unexpected closing tag </%s>", name)
				s.pos = end
			}
		case s.hasPrefix("<!--"):
			flushText()
			body = append(body, s.parseComment("<!--", "-->"))
		case s.hasPrefix("<!") || s.hasPrefix("<?"):
			flushText()
			body = append(body, s.parseComment(s.src[s.pos:s.pos+2], ">"))
		case s.peek(0) == '<' && isTagStart(s.peek(1)):
			flushText()
			body = append(body, s.parseTag(open))
		case s.hasPrefix("${") || s.hasPrefix("$!{"):
			flushText()
			body = append(body, s.parsePlaceholder())
		case s.hasPrefix(`\$`):
			if textStart < 0 {
				textStart = s.pos
			}
			s.pos += 2
		default:
			if textStart < 0 {
				textStart = s.pos
			}
			s.pos++
		}
	}
	flushText()

	if len(open) > 0 {
		s.errorf(len(s.src), len(s.src), "missing closing tag for <%s>", open[len(open)-1])
	}
	return body, nil
}

func (s *scanner) scanClosingTag() (string, int) {
	i := s.pos + 2
	for i < len(s.src) && s.src[i] != '>' {
		i++
	}
	name := strings.TrimSpace(s.src[s.pos+2 : min(i, len(s.src))])
	if i < len(s.src) {
		i++
	}
	return name, i
}

func (s *scanner) parseComment(open, close string) *Comment {
	start := s.pos
	s.pos += len(open)
	valueStart := s.pos
	idx := strings.Index(s.src[s.pos:], close)
	if idx < 0 {
		s.errorf(start, len(s.src), "unterminated comment")
		s.pos = len(s.src)
		return &Comment{Range: position.NewRange(start, s.pos), Value: position.NewRange(valueStart, s.pos)}
	}
	valueEnd := s.pos + idx
	s.pos = valueEnd + len(close)
	return &Comment{Range: position.NewRange(start, s.pos), Value: position.NewRange(valueStart, valueEnd)}
}

func (s *scanner) parsePlaceholder() *Placeholder {
	start := s.pos
	escape := true
	s.pos++
	if s.peek(0) == '!' {
		escape = false
		s.pos++
	}
	groupStart := s.pos
	if !s.skipGroup() {
		s.errorf(start, len(s.src), "unterminated placeholder")
		return &Placeholder{
			Range:  position.NewRange(start, s.pos),
			Value:  position.NewRange(groupStart+1, s.pos),
			Escape: escape,
		}
	}
	return &Placeholder{
		Range:  position.NewRange(start, s.pos),
		Value:  position.NewRange(groupStart+1, s.pos-1),
		Escape: escape,
	}
}

func (s *scanner) parseTag(open []string) ChildNode {
	start := s.pos
	s.pos++ // <

	tag := Tag{}
	if s.hasPrefix("${") {
		nameStart := s.pos
		s.pos++
		if !s.skipGroup() {
			s.errorf(start, len(s.src), "unterminated dynamic tag name")
		}
		tag.Name = position.NewRange(nameStart, s.pos)
	} else {
		nameStart := s.pos
		for !s.eof() && isNameChar(s.peek(0)) {
			s.pos++
		}
		tag.Name = position.NewRange(nameStart, s.pos)
		tag.NameText = s.src[nameStart:s.pos]
	}
	s.skipShorthands()

	attrTag := strings.HasPrefix(tag.NameText, "@")

	s.parseAttrs(&tag)
	tag.Open = position.NewRange(start, s.pos)

	finish := func() ChildNode {
		tag.Range = position.NewRange(start, s.pos)
		if attrTag {
			return &AttrTag{Tag: tag}
		}
		return &tag
	}

	if tag.SelfClosed || s.eof() && !strings.HasSuffix(s.src[start:s.pos], ">") {
		return finish()
	}
	if !attrTag && isVoidName(tag.NameText) {
		return finish()
	}

	if isRawTextName(tag.NameText) {
		s.parseRawText(&tag)
		return finish()
	}

	// dynamic and missing names close with `</>`
	name := tag.NameText
	body, closed := s.parseBody(append(open[:len(open):len(open)], name))
	if len(body) > 0 {
		tag.Body = body
	}
	if closed != nil {
		s.pos = closed.end
	}
	return finish()
}

func (s *scanner) parseRawText(tag *Tag) {
	closeTag := "</" + tag.NameText
	idx := strings.Index(s.src[s.pos:], closeTag)
	if idx < 0 {
		s.errorf(tag.Name.Start, len(s.src), "missing closing tag for <%s>", tag.NameText)
		if s.pos < len(s.src) {
			tag.Body = []ChildNode{&Text{Range: position.NewRange(s.pos, len(s.src))}}
		}
		s.pos = len(s.src)
		return
	}
	if idx > 0 {
		tag.Body = []ChildNode{&Text{Range: position.NewRange(s.pos, s.pos+idx)}}
	}
	s.pos += idx
	_, end := s.scanClosingTag()
	s.pos = end
}

// skipShorthands steps over `.class` and `#id` shorthands directly after a tag name.
func (s *scanner) skipShorthands() {
	for s.peek(0) == '.' || s.peek(0) == '#' {
		s.pos++
		for !s.eof() && isNameChar(s.peek(0)) && s.peek(0) != ':' {
			s.pos++
		}
	}
}

func (s *scanner) parseAttrs(tag *Tag) {
	for {
		s.skipAttrSeparators()
		if s.eof() {
			s.errorf(tag.Name.Start-1, len(s.src), "unterminated tag <%s>", tag.NameText)
			return
		}
		switch {
		case s.hasPrefix("/>"):
			s.pos += 2
			tag.SelfClosed = true
			return
		case s.peek(0) == '>':
			s.pos++
			return
		case s.hasPrefix("..."):
			start := s.pos
			s.pos += 3
			valueStart := s.pos
			s.skipExpression()
			tag.Attrs = append(tag.Attrs, &AttrSpread{
				Range: position.NewRange(start, s.pos),
				Value: position.NewRange(valueStart, s.pos),
			})
		default:
			if attr := s.parseAttrNamed(); attr != nil {
				tag.Attrs = append(tag.Attrs, attr)
			}
		}
	}
}

func (s *scanner) parseAttrNamed() *AttrNamed {
	start := s.pos
	for !s.eof() && isAttrNameChar(s.peek(0)) && !s.hasPrefix("/>") && !s.hasPrefix(":=") {
		s.pos++
	}
	attr := &AttrNamed{Name: position.NewRange(start, s.pos)}

	if attr.Name.IsEmpty() && s.peek(0) != '=' && s.peek(0) != '(' && !s.hasPrefix(":=") {
		s.errorf(s.pos, s.pos+1, "unexpected character %q in tag", s.peek(0))
		s.pos++
		return nil
	}

	if s.peek(0) == '(' {
		argsStart := s.pos
		s.skipGroup()
		args := position.NewRange(argsStart, s.pos)
		save := s.pos
		for s.peek(0) == ' ' || s.peek(0) == '\t' {
			s.pos++
		}
		if s.peek(0) == '{' {
			bodyStart := s.pos
			s.skipGroup()
			attr.Value = &AttrMethod{
				Range:  position.NewRange(argsStart, s.pos),
				Params: args,
				Body:   position.NewRange(bodyStart, s.pos),
			}
			attr.Range = position.NewRange(start, s.pos)
			return attr
		}
		s.pos = save
		attr.Args = &args
	}

	if s.peek(0) == '=' || s.hasPrefix(":=") {
		valueStart := s.pos
		bound := s.peek(0) == ':'
		if bound {
			s.pos++
		}
		s.pos++
		for isSpace(s.peek(0)) {
			s.pos++
		}
		exprStart := s.pos
		s.skipExpression()
		attr.Value = &AttrValue{
			Range: position.NewRange(valueStart, s.pos),
			Value: position.NewRange(exprStart, s.pos),
			Bound: bound,
		}
	}

	attr.Range = position.NewRange(start, s.pos)
	return attr
}

func (s *scanner) skipAttrSeparators() {
	for !s.eof() && (isSpace(s.peek(0)) || s.peek(0) == ',') {
		s.pos++
	}
}

// skipExpression advances over an attribute expression, stopping at top-level whitespace,
// commas, `>` or `/>`.
func (s *scanner) skipExpression() {
	for !s.eof() {
		c := s.peek(0)
		switch {
		case isSpace(c) || c == ',' || c == '>':
			return
		case s.hasPrefix("/>"):
			return
		case c == '(' || c == '[' || c == '{':
			s.skipGroup()
		case c == '"' || c == '\'' || c == '`':
			s.skipString()
		default:
			s.pos++
		}
	}
}

// skipGroup advances over a balanced (), [] or {} group starting at the current position,
// including nested strings and template literals. It reports whether the group was closed.
func (s *scanner) skipGroup() bool {
	var stack []byte
	for !s.eof() {
		c := s.peek(0)
		switch c {
		case '(':
			stack = append(stack, ')')
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ')', ']', '}':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				s.pos++
				return true
			}
		case '"', '\'', '`':
			s.skipString()
			continue
		}
		s.pos++
		if len(stack) == 0 {
			return true
		}
	}
	return false
}

func (s *scanner) skipString() {
	quote := s.peek(0)
	s.pos++
	for !s.eof() {
		c := s.peek(0)
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case c == quote:
			s.pos++
			return
		case quote == '`' && s.hasPrefix("${"):
			s.pos++
			s.skipGroup()
			continue
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
}

func isTagStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '@' || c == '$' || c == '_'
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == ':' || c == '@'
}

func isAttrNameChar(c byte) bool {
	return !isSpace(c) && c != '=' && c != '>' && c != '(' && c != ',' && c != '"' && c != '\'' && c != 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isVoidName(name string) bool {
	switch name {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

func isRawTextName(name string) bool {
	return name == "script" || name == "style"
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
