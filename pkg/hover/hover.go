// Package hover answers hover requests on a root document by asking the services of its derived documents.
package hover

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/virtual"
	"gitlab.com/tozd/go/errors"
)

// Info is a provider's answer in derived document coordinates.
type Info struct {
	// Contents is markdown.
	Contents string
	// Range is the hovered span, if the provider knows it.
	Range *position.Range
	// Document is the derived document id Range refers to. Empty means the document that was asked.
	Document string
}

// Provider is the hover service of one derived language.
type Provider interface {
	Hover(ctx context.Context, doc *virtual.DerivedDocument, offset int) (*Info, error)
}

// Result is a hover answer in root coordinates.
type Result struct {
	Contents string
	Range    *position.PlaceRange
	Slot     string
}

// Orchestrator routes a root position to the provider of the derived document that covers it.
type Orchestrator struct {
	registry  *virtual.Registry
	providers map[string]Provider
}

// NewOrchestrator takes the registry the hovered documents live in and providers keyed by derived
// document slot.
func NewOrchestrator(registry *virtual.Registry, providers map[string]Provider) *Orchestrator {
	return &Orchestrator{registry: registry, providers: providers}
}

// Hover returns nil when no derived document covers place or no provider has anything to say. An answer
// whose range cannot be mapped back to the root is dropped.
func (o *Orchestrator) Hover(ctx context.Context, doc *virtual.Document, place position.Place) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	offset := doc.Lines().OffsetAt(place)

	for _, dd := range doc.DerivedDocuments() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("hover on %s: %w", doc.URI, err)
		}

		provider, ok := o.providers[dd.Slot]
		if !ok {
			continue
		}
		gen, ok := dd.Mapper.ToGeneratedOffset(offset)
		if !ok {
			continue
		}

		info, err := provider.Hover(ctx, dd, gen)
		if err != nil {
			return nil, errors.Errorf("hover in %s: %w", dd.ID, err)
		}
		if info == nil || info.Contents == "" {
			continue
		}

		result := &Result{Contents: info.Contents, Slot: dd.Slot}
		if info.Range != nil {
			target, ok := o.rangeDocument(doc, dd, info.Document)
			if !ok {
				logger.Debug().Str("slot", dd.Slot).Str("document", info.Document).Msg("dropping hover in unknown document")
				continue
			}
			r, ok := target.Mapper.ToSourceRange(info.Range.Start, info.Range.End)
			if !ok {
				logger.Debug().Str("slot", dd.Slot).Stringer("range", info.Range).Msg("dropping hover with unmapped range")
				continue
			}
			pr := doc.Lines().RangeAt(r)
			result.Range = &pr
		}
		return result, nil
	}

	return nil, nil
}

// rangeDocument resolves the derived document an answer's range is in. A range in another slot is only
// usable while that slot still belongs to the snapshot being hovered.
func (o *Orchestrator) rangeDocument(doc *virtual.Document, asked *virtual.DerivedDocument, id string) (*virtual.DerivedDocument, bool) {
	if id == "" || id == asked.ID {
		return asked, true
	}
	if o.registry == nil {
		return nil, false
	}
	target, ok := o.registry.Get(id)
	if !ok {
		return nil, false
	}
	root, ok := o.registry.Root(target)
	if !ok || root != doc {
		return nil, false
	}
	return target, true
}
