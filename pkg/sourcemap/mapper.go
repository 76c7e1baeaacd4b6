package sourcemap

import (
	"cmp"
	"slices"
	"sort"

	"github.com/walteh/markols/pkg/position"
)

// Mapper answers position queries across one derived document's segments in either direction.
// It is immutable and safe for concurrent use.
type Mapper struct {
	segments  []Segment
	bySource  []int
	source    *position.Text
	generated *position.Text
}

func NewMapper(segments []Segment, source, generated string) *Mapper {
	bySource := make([]int, len(segments))
	for i := range bySource {
		bySource[i] = i
	}
	slices.SortStableFunc(bySource, func(a, b int) int {
		return cmp.Compare(segments[a].SourceOffset(), segments[b].SourceOffset())
	})

	return &Mapper{
		segments:  segments,
		bySource:  bySource,
		source:    position.NewText(source),
		generated: position.NewText(generated),
	}
}

func (m *Mapper) Segments() []Segment {
	return m.segments
}

func (m *Mapper) Source() *position.Text {
	return m.source
}

func (m *Mapper) Generated() *position.Text {
	return m.generated
}

// ToSourceOffset maps a generated offset into the source. The offset inside the containing segment is
// carried over unchanged and clamped to the segment's source extent. It fails before the first segment
// and past the end of the last one.
func (m *Mapper) ToSourceOffset(gen int) (int, bool) {
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].GeneratedOffset() > gen
	}) - 1
	if i < 0 {
		return 0, false
	}

	seg := m.segments[i]
	delta := gen - seg.GeneratedOffset()
	if delta > seg.GeneratedLength() {
		return 0, false
	}
	return min(seg.SourceOffset()+min(delta, seg.SourceLength()), m.source.Len()), true
}

// ToGeneratedOffset maps a source offset into the generated text using the closest anchor at or before it
// whose segment covers the offset.
func (m *Mapper) ToGeneratedOffset(src int) (int, bool) {
	j := sort.Search(len(m.bySource), func(j int) bool {
		return m.segments[m.bySource[j]].SourceOffset() > src
	}) - 1

	for ; j >= 0; j-- {
		seg := m.segments[m.bySource[j]]
		delta := src - seg.SourceOffset()
		if delta > seg.SourceLength() {
			continue
		}
		return min(seg.GeneratedOffset()+min(delta, seg.GeneratedLength()), m.generated.Len()), true
	}
	return 0, false
}

func (m *Mapper) ToSourcePosition(gen int) (position.Place, bool) {
	off, ok := m.ToSourceOffset(gen)
	if !ok {
		return position.Place{}, false
	}
	return m.source.PlaceAt(off), true
}

// ToGeneratedPosition converts a place in the source into a generated offset.
func (m *Mapper) ToGeneratedPosition(p position.Place) (int, bool) {
	return m.ToGeneratedOffset(m.source.OffsetAt(p))
}

// ToSourceRange maps a generated range into the source. Both ends must map.
func (m *Mapper) ToSourceRange(genStart, genEnd int) (position.Range, bool) {
	start, ok := m.ToSourceOffset(genStart)
	if !ok {
		return position.Range{}, false
	}
	end, ok := m.ToSourceOffset(genEnd)
	if !ok {
		return position.Range{}, false
	}
	if end < start {
		end = start
	}
	return position.NewRange(start, end), true
}

// ToSourcePlaceRange is ToSourceRange converted to places in the source.
func (m *Mapper) ToSourcePlaceRange(genStart, genEnd int) (position.PlaceRange, bool) {
	r, ok := m.ToSourceRange(genStart, genEnd)
	if !ok {
		return position.PlaceRange{}, false
	}
	return m.source.RangeAt(r), true
}
