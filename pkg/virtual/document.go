// Package virtual owns parsed Marko documents and the derived documents extracted from them.
package virtual

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/sourcemap"
)

const (
	SlotHTML = "html"
	// SlotScript is filled by an externally supplied Generator.
	SlotScript = "script"
)

// hashSpace namespaces content hashes so they never collide with ids minted elsewhere.
var hashSpace = uuid.MustParse("6f1c4c5e-2b55-4c3b-9a7e-0d9f3f4e8a11")

// State is where a Document is in its lifecycle.
type State int32

const (
	StateUnparsed State = iota
	StateParsed
	StateExtracted
	// StateStale documents were superseded by a newer snapshot. Requests already holding one may finish.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsed:
		return "parsed"
	case StateExtracted:
		return "extracted"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Generator produces one derived document from a parsed template.
type Generator interface {
	Slot() string
	LanguageID() string
	Generate(ctx context.Context, parsed *parser.Parsed) (*sourcemap.Generated, error)
}

// DerivedDocument is one generated text with its mapping back to the root. It names its root by URI and
// never holds it, so a Registry lookup is needed to get back to the Document.
type DerivedDocument struct {
	ID         string
	RootURI    string
	Slot       string
	LanguageID string
	Text       string
	Segments   []sourcemap.Segment
	Mapper     *sourcemap.Mapper

	// HTML is set for the html slot only.
	HTML *extract.HTMLResult
}

func newDerivedDocument(rootURI, slot, languageID string, gen *sourcemap.Generated) *DerivedDocument {
	segments := gen.Segments()
	return &DerivedDocument{
		ID:         DerivedID(rootURI, slot),
		RootURI:    rootURI,
		Slot:       slot,
		LanguageID: languageID,
		Text:       gen.Code,
		Segments:   segments,
		Mapper:     sourcemap.NewMapper(segments, gen.Source, gen.Code),
	}
}

// Document is an immutable snapshot of one template source and everything derived from it.
type Document struct {
	URI     string
	Version int32
	Hash    uuid.UUID
	Parsed  *parser.Parsed

	derived map[string]*DerivedDocument
	state   atomic.Int32
}

func newDocument(uri string, version int32, text string) *Document {
	return &Document{
		URI:     uri,
		Version: version,
		Hash:    ContentHash(text),
		derived: map[string]*DerivedDocument{},
	}
}

// ContentHash identifies a source text.
func ContentHash(text string) uuid.UUID {
	return uuid.NewSHA1(hashSpace, []byte(text))
}

func (d *Document) State() State {
	return State(d.state.Load())
}

func (d *Document) setState(s State) {
	d.state.Store(int32(s))
}

func (d *Document) Text() string {
	if d.Parsed == nil {
		return ""
	}
	return d.Parsed.Code
}

func (d *Document) Lines() *position.Text {
	if d.Parsed == nil {
		return position.NewText("")
	}
	return d.Parsed.Text()
}

func (d *Document) Derived(slot string) (*DerivedDocument, bool) {
	dd, ok := d.derived[slot]
	return dd, ok
}

// DerivedDocuments returns every derived document ordered by slot.
func (d *Document) DerivedDocuments() []*DerivedDocument {
	out := make([]*DerivedDocument, 0, len(d.derived))
	for _, dd := range d.derived {
		out = append(out, dd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// DerivedAt finds the first derived document, in slot order, whose mapping covers the root offset, and
// returns the offset translated into it.
func (d *Document) DerivedAt(offset int) (*DerivedDocument, int, bool) {
	for _, dd := range d.DerivedDocuments() {
		if gen, ok := dd.Mapper.ToGeneratedOffset(offset); ok {
			return dd, gen, true
		}
	}
	return nil, 0, false
}
