package diagnostic

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/markols/pkg/a11y"
	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/virtual"
	"gitlab.com/tozd/go/errors"
)

// Severity follows the LSP numbering.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic is a problem reported in root document coordinates.
type Diagnostic struct {
	Range    position.PlaceRange
	Message  string
	Severity Severity
	Source   string
	// Offsets is Range as byte offsets into the root.
	Offsets position.Range
}

const parseSource = "marko"

// Orchestrator produces the diagnostics of a document: recovered syntax errors from the parser plus
// accessibility violations found in the derived HTML and mapped back to the root.
type Orchestrator struct {
	analyzer   *a11y.Analyzer
	exceptions atomic.Pointer[map[string]a11y.Exception]
}

func NewOrchestrator(analyzer *a11y.Analyzer, exceptions map[string]a11y.Exception) *Orchestrator {
	o := &Orchestrator{analyzer: analyzer}
	o.SetExceptions(exceptions)
	return o
}

// SetExceptions swaps the rule exception policy. A nil map restores the built-in one.
func (o *Orchestrator) SetExceptions(exceptions map[string]a11y.Exception) {
	if exceptions == nil {
		exceptions = a11y.DefaultExceptions()
	}
	o.exceptions.Store(&exceptions)
}

// Diagnose returns every diagnostic for doc. A cancelled request gets no diagnostics.
func (o *Orchestrator) Diagnose(ctx context.Context, doc *virtual.Document) ([]Diagnostic, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	diags := ParseErrors(doc)

	found, err := o.Accessibility(ctx, doc)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	return append(diags, found...), nil
}

// ParseErrors converts the parser's recovered errors into diagnostics.
func ParseErrors(doc *virtual.Document) []Diagnostic {
	if doc.Parsed == nil {
		return nil
	}
	lines := doc.Lines()
	diags := make([]Diagnostic, 0, len(doc.Parsed.Errors))
	for _, e := range doc.Parsed.Errors {
		diags = append(diags, Diagnostic{
			Range:    lines.RangeAt(e.Range),
			Offsets:  e.Range,
			Message:  e.Message,
			Severity: SeverityError,
			Source:   parseSource,
		})
	}
	return diags
}

// Accessibility runs the shared analyzer over the document's derived HTML. Cancellation is checked before
// waiting for the analyzer, and a cancelled wait yields no diagnostics rather than an error.
func (o *Orchestrator) Accessibility(ctx context.Context, doc *virtual.Document) ([]Diagnostic, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	dd, ok := doc.Derived(virtual.SlotHTML)
	if !ok || dd.HTML == nil {
		return nil, nil
	}

	violations, err := o.analyzer.Run(ctx, dd.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, errors.Errorf("checking accessibility of %s: %w", doc.URI, err)
	}

	exceptions := *o.exceptions.Load()
	logger := zerolog.Ctx(ctx)

	var diags []Diagnostic
	for _, v := range violations {
		if suppressed(exceptions[v.RuleID], dd.HTML.NodeDetails[v.NodeID], v.Attrs) {
			logger.Trace().Str("rule", v.RuleID).Str("node", v.NodeID).Msg("suppressed violation on dynamic content")
			continue
		}

		start, ok := dd.HTML.NodeOffsets[v.NodeID]
		if !ok {
			continue
		}
		r, ok := dd.Mapper.ToSourceRange(start, start+len(v.TagName))
		if !ok {
			logger.Debug().Str("rule", v.RuleID).Int("offset", start).Msg("violation outside mapped text")
			continue
		}

		diags = append(diags, Diagnostic{
			Range:    doc.Lines().RangeAt(r),
			Offsets:  r,
			Message:  v.Message,
			Severity: SeverityInformation,
			Source:   "a11y(" + v.RuleID + ")",
		})
	}

	return diags, nil
}

func suppressed(ex a11y.Exception, detail extract.NodeDetail, attrs map[string]string) bool {
	if ex.AttrSpread && detail.HasDynamicAttrs {
		return true
	}
	if ex.UnknownBody && detail.HasDynamicBody {
		return true
	}
	for _, name := range ex.DynamicAttrs {
		if attrs[name] == "dynamic" {
			return true
		}
	}
	return false
}
