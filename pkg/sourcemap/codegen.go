// Package sourcemap builds derived text from ranges of a root source and maps positions between the two.
package sourcemap

import (
	"strings"

	"github.com/walteh/markols/pkg/position"
)

// Breakpoint is one anchor recorded while generating: the generated offset where a copied unit begins,
// the source offset it was copied from, and the number of bytes copied.
type Breakpoint struct {
	Generated int
	Source    int
	Length    int
}

// Codegen incrementally assembles derived text while recording a breakpoint for every copied unit.
// Breakpoints are kept in generation order.
type Codegen struct {
	source      string
	out         strings.Builder
	breakpoints []Breakpoint
}

func NewCodegen(source string) *Codegen {
	return &Codegen{source: source}
}

// Write appends synthetic text with no mapping.
func (c *Codegen) Write(text string) *Codegen {
	c.out.WriteString(text)
	return c
}

// Copy appends the source text of r and anchors it to r.Start. Empty or out of range copies are ignored.
func (c *Codegen) Copy(r position.Range) *Codegen {
	start, end := clamp(r.Start, len(c.source)), clamp(r.End, len(c.source))
	if end <= start {
		return c
	}
	c.mark(start, end-start)
	c.out.WriteString(c.source[start:end])
	return c
}

// CopyAs appends literal in place of the source text of r, anchored to r.Start.
func (c *Codegen) CopyAs(r position.Range, literal string) *Codegen {
	if literal == "" {
		return c
	}
	c.mark(clamp(r.Start, len(c.source)), len(literal))
	c.out.WriteString(literal)
	return c
}

func (c *Codegen) mark(src, length int) {
	c.breakpoints = append(c.breakpoints, Breakpoint{
		Generated: c.out.Len(),
		Source:    src,
		Length:    length,
	})
}

// Len is the number of bytes generated so far.
func (c *Codegen) Len() int {
	return c.out.Len()
}

// End returns the finished text and its breakpoints. The Codegen must not be used afterwards.
func (c *Codegen) End() *Generated {
	return &Generated{
		Source:      c.source,
		Code:        c.out.String(),
		Breakpoints: c.breakpoints,
	}
}

// Generated is a finished derived text.
type Generated struct {
	Source      string
	Code        string
	Breakpoints []Breakpoint
}

// Segments expands the breakpoints into queryable segments.
func (g *Generated) Segments() []Segment {
	return BuildSegments(g.Breakpoints, len(g.Source), len(g.Code))
}

// Mapper builds a position mapper between the source and the generated code.
func (g *Generated) Mapper() *Mapper {
	return NewMapper(g.Segments(), g.Source, g.Code)
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
