package sourcemap

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"

	"github.com/walteh/markols/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// V3 is the JSON shape of a revision 3 source map.
type V3 struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// SourceMap renders the breakpoints as a v3 source map with the source text embedded. Lines are 0-based
// and columns count UTF-16 units on both sides.
func (g *Generated) SourceMap(file, sourceName string) ([]byte, error) {
	v3 := V3{
		Version:        3,
		File:           file,
		Sources:        []string{sourceName},
		SourcesContent: []string{g.Source},
		Names:          []string{},
		Mappings:       string(g.mappings()),
	}

	out, err := json.Marshal(v3)
	if err != nil {
		return nil, errors.Errorf("encoding source map for %s: %w", sourceName, err)
	}
	return out, nil
}

func (g *Generated) mappings() []byte {
	bps := slices.Clone(g.Breakpoints)
	slices.SortStableFunc(bps, func(a, b Breakpoint) int {
		return cmp.Compare(a.Generated, b.Generated)
	})

	src := position.NewText(g.Source)
	gen := position.NewText(g.Code)

	var (
		buf                     []byte
		line, prevGenCol        int
		prevSrcLine, prevSrcCol int
		first                   = true
	)
	for _, bp := range bps {
		gp := gen.PlaceAt(bp.Generated)
		sp := src.PlaceAt(bp.Source)

		for line < gp.Line {
			buf = append(buf, ';')
			line++
			prevGenCol = 0
			first = true
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false

		buf = encodeVLQ(buf, gp.Character-prevGenCol)
		// single source, so the source index delta is always zero after the first mapping
		buf = encodeVLQ(buf, 0)
		buf = encodeVLQ(buf, sp.Line-prevSrcLine)
		buf = encodeVLQ(buf, sp.Character-prevSrcCol)

		prevGenCol = gp.Character
		prevSrcLine, prevSrcCol = sp.Line, sp.Character
	}
	return buf
}

var base64 = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/")

// encodeVLQ appends value as a base64 variable length quantity. The low bit of the first digit is the sign
// and bit 6 of every digit marks a continuation.
func encodeVLQ(encoded []byte, value int) []byte {
	var vlq int
	if value < 0 {
		vlq = ((-value) << 1) | 1
	} else {
		vlq = value << 1
	}

	for {
		digit := vlq & 31
		vlq >>= 5
		if vlq != 0 {
			digit |= 32
		}
		encoded = append(encoded, base64[digit])
		if vlq == 0 {
			return encoded
		}
	}
}

// decodeVLQ reads one quantity starting at start and returns it with the index just past it.
func decodeVLQ(encoded []byte, start int) (int, int, bool) {
	shift, vlq := 0, 0
	for {
		if start >= len(encoded) {
			return 0, start, false
		}
		index := bytes.IndexByte(base64, encoded[start])
		if index < 0 {
			return 0, start, false
		}
		vlq |= (index & 31) << shift
		start++
		shift += 5
		if index&32 == 0 {
			break
		}
	}

	value := vlq >> 1
	if vlq&1 != 0 {
		value = -value
	}
	return value, start, true
}
