package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/markols/pkg/completion"
	"github.com/walteh/markols/pkg/diagnostic"
	"github.com/walteh/markols/pkg/hover"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/symbols"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
)

func (s *Server) handleTextDocumentDidOpen(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DidOpenTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	_, err := s.documents.Open(ctx, params.TextDocument.URI, int32(params.TextDocument.Version), params.TextDocument.Text)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", params.TextDocument.URI, err)
	}
	return nil, nil
}

func (s *Server) handleTextDocumentDidChange(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DidChangeTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.ContentChanges) == 0 {
		return nil, nil
	}

	// full sync: the last change holds the whole text
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	_, err := s.documents.Open(ctx, params.TextDocument.URI, int32(params.TextDocument.Version), text)
	if err != nil {
		return nil, errors.Errorf("updating %s: %w", params.TextDocument.URI, err)
	}
	return nil, nil
}

func (s *Server) handleTextDocumentDidClose(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DidCloseTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	s.documents.Close(params.TextDocument.URI)
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("closed document")
	return nil, nil
}

func (s *Server) handleTextDocumentHover(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.HoverParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	res, err := s.hovers.Hover(ctx, doc, position.FromProtocol(params.Position))
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	contents := protocol.MarkupContent{Kind: protocol.Markdown, Value: res.Contents}
	if s.plaintextHover.Load() {
		contents = protocol.MarkupContent{Kind: protocol.PlainText, Value: hover.Plaintext(res.Contents)}
	}

	out := &protocol.Hover{Contents: contents}
	if res.Range != nil {
		r := res.Range.Protocol()
		out.Range = &r
	}
	return out, nil
}

func (s *Server) handleTextDocumentCompletion(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.CompletionParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	list := completion.Complete(ctx, doc, position.FromProtocol(params.Position))
	if list == nil {
		return nil, nil
	}
	return list, nil
}

func (s *Server) handleTextDocumentDocumentSymbol(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DocumentSymbolParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	syms := symbols.Document(doc.Parsed, nil)
	if syms == nil {
		syms = []protocol.DocumentSymbol{}
	}
	return syms, nil
}

func (s *Server) handleTextDocumentDiagnostic(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params DocumentDiagnosticParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	diags, err := s.diagnostics.Diagnose(ctx, doc)
	if err != nil {
		return nil, errors.Errorf("diagnosing %s: %w", doc.URI, err)
	}

	zerolog.Ctx(ctx).Debug().Str("uri", doc.URI).Int("count", len(diags)).Msg("diagnostics")

	return FullDocumentDiagnosticReport{
		Kind:     DocumentDiagnosticReportKindFull,
		ResultID: doc.Hash.String(),
		Items:    toProtocolDiagnostics(diags),
	}, nil
}

func toProtocolDiagnostics(diags []diagnostic.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    d.Range.Protocol(),
			Severity: protocol.DiagnosticSeverity(d.Severity),
			Source:   d.Source,
			Message:  d.Message,
		})
	}
	return out
}
