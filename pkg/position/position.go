// Package position converts between byte offsets and line/character places in a text buffer.
//
// Offsets are byte offsets into a UTF-8 string. Places are 0-based lines and 0-based characters
// counted in UTF-16 code units, which is what LSP clients send by default. Only '\n' terminates a
// line; a '\r' before it is an ordinary character of that line.
package position

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// Place is a 0-based line and UTF-16 character.
type Place struct {
	Line      int
	Character int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// PlaceRange is a pair of places.
type PlaceRange struct {
	Start Place
	End   Place
}

// Range is a half-open byte range [Start, End) over a text.
type Range struct {
	Start int
	End   int
}

func NewRange(start, end int) Range {
	return Range{Start: start, End: end}
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether off is inside [Start, End). An empty range contains its own start.
func (r Range) Contains(off int) bool {
	if r.IsEmpty() {
		return off == r.Start
	}
	return off >= r.Start && off < r.End
}

// ContainsInclusive is Contains with the end offset included, which is what a cursor
// sitting right after a word expects.
func (r Range) ContainsInclusive(off int) bool {
	return off >= r.Start && off <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Text indexes the line starts of a string.
type Text struct {
	content    string
	lineStarts []int
}

func NewText(content string) *Text {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Text{content: content, lineStarts: starts}
}

func (t *Text) String() string {
	return t.content
}

func (t *Text) Len() int {
	return len(t.content)
}

func (t *Text) LineCount() int {
	return len(t.lineStarts)
}

// Line returns the content of line n without its terminating '\n'.
func (t *Text) Line(n int) string {
	if n < 0 || n >= len(t.lineStarts) {
		return ""
	}
	return t.content[t.lineStarts[n]:t.lineEnd(n)]
}

func (t *Text) lineEnd(n int) int {
	if n+1 < len(t.lineStarts) {
		return t.lineStarts[n+1] - 1
	}
	return len(t.content)
}

// ClampOffset moves off into [0, len] and back onto the start of the rune it points into. Bytes of
// invalid UTF-8 decode as one-byte runes of their own and are left alone.
func (t *Text) ClampOffset(off int) int {
	if off <= 0 {
		return 0
	}
	if off >= len(t.content) {
		return len(t.content)
	}
	if utf8.RuneStart(t.content[off]) {
		return off
	}
	for back := 1; back < utf8.UTFMax && off-back >= 0; back++ {
		start := off - back
		if t.content[start] == '\n' {
			break
		}
		r, size := utf8.DecodeRuneInString(t.content[start:])
		if (r != utf8.RuneError || size > 1) && size > back {
			return start
		}
		if utf8.RuneStart(t.content[start]) {
			break
		}
	}
	return off
}

// PlaceAt converts a byte offset to a place, clamping out-of-range offsets.
func (t *Text) PlaceAt(off int) Place {
	off = t.ClampOffset(off)
	line := sort.Search(len(t.lineStarts), func(i int) bool { return t.lineStarts[i] > off }) - 1
	start := t.lineStarts[line]
	return Place{Line: line, Character: utf16Len(t.content[start:off])}
}

// OffsetAt converts a place to a byte offset. Lines past the end clamp to the end of the text and
// characters past the end of a line clamp to the end of that line.
func (t *Text) OffsetAt(p Place) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(t.lineStarts) {
		return len(t.content)
	}
	start, end := t.lineStarts[p.Line], t.lineEnd(p.Line)
	if p.Character <= 0 {
		return start
	}
	units := 0
	for i, r := range t.content[start:end] {
		if units >= p.Character {
			return start + i
		}
		units += utf16.RuneLen(r)
		if units > p.Character {
			// inside a surrogate pair
			return start + i
		}
	}
	return end
}

func (t *Text) RangeAt(r Range) PlaceRange {
	return PlaceRange{Start: t.PlaceAt(r.Start), End: t.PlaceAt(r.End)}
}

func (t *Text) OffsetRange(r PlaceRange) Range {
	return Range{Start: t.OffsetAt(r.Start), End: t.OffsetAt(r.End)}
}

// OffsetAt is a one-shot helper for callers that do not keep a Text around.
func OffsetAt(content string, p Place) int {
	return NewText(content).OffsetAt(p)
}

// PositionAt is a one-shot helper for callers that do not keep a Text around.
func PositionAt(content string, off int) Place {
	return NewText(content).PlaceAt(off)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		l := utf16.RuneLen(r)
		if l < 0 {
			// invalid UTF-8 decodes to RuneError, which is one unit
			l = 1
		}
		n += l
	}
	return n
}
