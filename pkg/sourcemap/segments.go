package sourcemap

import (
	"cmp"
	"slices"
	"sort"
)

// finalWindow is the generated extent given to the last breakpoint, which has no successor to measure against.
const finalWindow = 32

// Capabilities lists the editor features allowed to cross a segment.
type Capabilities struct {
	Completion   bool `json:"completion"`
	Format       bool `json:"format"`
	Navigation   bool `json:"navigation"`
	Semantic     bool `json:"semantic"`
	Structure    bool `json:"structure"`
	Verification bool `json:"verification"`
}

// DefaultCapabilities enables everything except formatting.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Completion:   true,
		Navigation:   true,
		Semantic:     true,
		Structure:    true,
		Verification: true,
	}
}

// Segment is a breakpoint with explicit extents on both sides. The slices always hold one element; the
// shape matches the code mapping layout used by embedded-language tooling.
type Segment struct {
	SourceOffsets    []int        `json:"sourceOffsets"`
	GeneratedOffsets []int        `json:"generatedOffsets"`
	Lengths          []int        `json:"lengths"`
	GeneratedLengths []int        `json:"generatedLengths"`
	Data             Capabilities `json:"data"`
}

func (s Segment) SourceOffset() int    { return s.SourceOffsets[0] }
func (s Segment) GeneratedOffset() int { return s.GeneratedOffsets[0] }
func (s Segment) SourceLength() int    { return s.Lengths[0] }
func (s Segment) GeneratedLength() int { return s.GeneratedLengths[0] }

// BuildSegments expands sparse breakpoints into segments ordered by generated offset.
//
// The generated extent of a segment is the distance to the next breakpoint. The source extent is the
// distance to the nearest breakpoint with a strictly greater source offset, which tolerates units that
// were emitted out of source order; when there is none it falls back to the generated extent capped by the
// remaining source. The last segment gets a fixed window, widened to the bytes actually copied. Every extent
// is at least 1.
func BuildSegments(bps []Breakpoint, sourceLen, generatedLen int) []Segment {
	if len(bps) == 0 {
		return nil
	}

	sorted := slices.Clone(bps)
	slices.SortStableFunc(sorted, func(a, b Breakpoint) int {
		return cmp.Compare(a.Generated, b.Generated)
	})

	// zero-width writes leave several anchors on one generated offset; the last one wins
	anchors := make([]Breakpoint, 0, len(sorted))
	for i, bp := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Generated == bp.Generated {
			continue
		}
		anchors = append(anchors, bp)
	}

	sources := make([]int, len(anchors))
	for i, bp := range anchors {
		sources[i] = bp.Source
	}
	slices.Sort(sources)

	segments := make([]Segment, 0, len(anchors))
	for i, bp := range anchors {
		var genLen, srcLen int
		if i+1 < len(anchors) {
			genLen = anchors[i+1].Generated - bp.Generated
			if next, ok := nextGreater(sources, bp.Source); ok {
				srcLen = next - bp.Source
			} else {
				srcLen = min(genLen, sourceLen-bp.Source)
			}
		} else {
			genLen = min(max(finalWindow, bp.Length), generatedLen-bp.Generated)
			srcLen = min(genLen, sourceLen-bp.Source)
		}

		segments = append(segments, Segment{
			SourceOffsets:    []int{bp.Source},
			GeneratedOffsets: []int{bp.Generated},
			Lengths:          []int{max(1, srcLen)},
			GeneratedLengths: []int{max(1, genLen)},
			Data:             DefaultCapabilities(),
		})
	}

	return segments
}

// nextGreater returns the smallest value in sorted that is strictly greater than v.
func nextGreater(sorted []int, v int) (int, bool) {
	i := sort.SearchInts(sorted, v+1)
	if i == len(sorted) {
		return 0, false
	}
	return sorted[i], true
}
