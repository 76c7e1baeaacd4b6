package virtual

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/parser"
	"gitlab.com/tozd/go/errors"
)

var ErrNotFound = errors.New("virtual document not found")

// DerivedID names the slot of a root document.
func DerivedID(rootURI, slot string) string {
	return rootURI + "#" + slot
}

// Registry is the process-wide index of open documents, keyed by URI.
type Registry struct {
	store      *sync.Map // map[string]*Document
	generators []Generator
}

// NewRegistry creates a registry. The html slot is always extracted; generators add further slots.
func NewRegistry(generators ...Generator) *Registry {
	return &Registry{
		store:      &sync.Map{},
		generators: generators,
	}
}

// Open parses and extracts text as the current snapshot of uri. The snapshot it replaces becomes stale.
func (r *Registry) Open(ctx context.Context, uri string, version int32, text string) (*Document, error) {
	doc, err := r.build(ctx, uri, version, text)
	if err != nil {
		return nil, err
	}

	if prev, loaded := r.store.Swap(uri, doc); loaded {
		prev.(*Document).setState(StateStale)
	}

	logOpened(ctx, doc)
	return doc, nil
}

// OpenIfAbsent is Open for text read from outside the editor: when uri already has a snapshot, that
// snapshot wins and is returned unchanged.
func (r *Registry) OpenIfAbsent(ctx context.Context, uri string, version int32, text string) (*Document, error) {
	if doc, ok := r.Document(uri); ok {
		return doc, nil
	}

	doc, err := r.build(ctx, uri, version, text)
	if err != nil {
		return nil, err
	}

	if prev, loaded := r.store.LoadOrStore(uri, doc); loaded {
		doc.setState(StateStale)
		return prev.(*Document), nil
	}

	logOpened(ctx, doc)
	return doc, nil
}

func (r *Registry) build(ctx context.Context, uri string, version int32, text string) (*Document, error) {
	if uri == "" {
		return nil, errors.New("opening document: empty uri")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("opening %s: %w", uri, err)
	}

	doc := newDocument(uri, version, text)

	doc.Parsed = parser.Parse(uri, text)
	doc.setState(StateParsed)

	html := extract.HTML(doc.Parsed)
	dd := newDerivedDocument(uri, SlotHTML, "html", html.Generated)
	dd.HTML = html
	doc.derived[SlotHTML] = dd

	for _, g := range r.generators {
		gen, err := g.Generate(ctx, doc.Parsed)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("uri", uri).Str("slot", g.Slot()).Msg("skipping derived document")
			continue
		}
		doc.derived[g.Slot()] = newDerivedDocument(uri, g.Slot(), g.LanguageID(), gen)
	}
	doc.setState(StateExtracted)

	return doc, nil
}

func logOpened(ctx context.Context, doc *Document) {
	zerolog.Ctx(ctx).Debug().
		Str("uri", doc.URI).
		Int32("version", doc.Version).
		Str("hash", doc.Hash.String()).
		Int("parse_errors", len(doc.Parsed.Errors)).
		Msg("opened document")
}

// Close forgets uri. Requests holding its last snapshot may still finish against it.
func (r *Registry) Close(uri string) {
	if prev, loaded := r.store.LoadAndDelete(uri); loaded {
		prev.(*Document).setState(StateStale)
	}
}

func (r *Registry) Document(uri string) (*Document, bool) {
	doc, ok := r.store.Load(uri)
	if !ok {
		return nil, false
	}
	return doc.(*Document), true
}

// Lookup is Document with an error wrapping ErrNotFound.
func (r *Registry) Lookup(uri string) (*Document, error) {
	doc, ok := r.Document(uri)
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotFound, uri)
	}
	return doc, nil
}

// Decode splits a derived document id into its root URI and slot. It fails unless the root is open and
// has that slot.
func (r *Registry) Decode(derivedID string) (rootURI, slot string, ok bool) {
	i := strings.LastIndexByte(derivedID, '#')
	if i <= 0 || i == len(derivedID)-1 {
		return "", "", false
	}
	rootURI, slot = derivedID[:i], derivedID[i+1:]

	doc, ok := r.Document(rootURI)
	if !ok {
		return "", "", false
	}
	if _, ok := doc.Derived(slot); !ok {
		return "", "", false
	}
	return rootURI, slot, true
}

// Get returns the current derived document for an id.
func (r *Registry) Get(derivedID string) (*DerivedDocument, bool) {
	rootURI, slot, ok := r.Decode(derivedID)
	if !ok {
		return nil, false
	}
	doc, ok := r.Document(rootURI)
	if !ok {
		return nil, false
	}
	return doc.Derived(slot)
}

// Root resolves the current root document of d. The result may be a newer snapshot than the one d was
// extracted from.
func (r *Registry) Root(d *DerivedDocument) (*Document, bool) {
	if d == nil {
		return nil, false
	}
	return r.Document(d.RootURI)
}

