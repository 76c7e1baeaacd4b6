// Package lsp serves Marko templates over the Language Server Protocol.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"
	"github.com/walteh/markols/pkg/a11y"
	"github.com/walteh/markols/pkg/config"
	"github.com/walteh/markols/pkg/diagnostic"
	"github.com/walteh/markols/pkg/hover"
	"github.com/walteh/markols/pkg/virtual"
	"gitlab.com/tozd/go/errors"
)

// Server represents an LSP server instance
type Server struct {
	id string

	documents   *DocumentManager
	analyzer    *a11y.Analyzer
	diagnostics *diagnostic.Orchestrator
	hovers      *hover.Orchestrator

	fs         afero.Fs
	configPath string
	config     atomic.Pointer[config.Config]
	watchMu    sync.Mutex
	stopWatch  context.CancelFunc

	initialized    atomic.Bool
	shutdown       atomic.Bool
	plaintextHover atomic.Bool

	// map[string]context.CancelFunc keyed by request id
	cancelFuncs *sync.Map

	logOnce sync.Once
	logger  zerolog.Logger

	// lifetime of the connection, outliving any single request
	baseCtx context.Context
	exited  chan struct{}
}

type Option func(*serverOptions)

type serverOptions struct {
	fs         afero.Fs
	configPath string
	generators []virtual.Generator
	providers  map[string]hover.Provider
	analyzer   []a11y.Option
}

// WithFs sets where configuration and unopened documents are read from. Defaults to the OS.
func WithFs(fs afero.Fs) Option {
	return func(o *serverOptions) { o.fs = fs }
}

// WithConfigPath pins the config file instead of searching upward from the workspace root.
func WithConfigPath(path string) Option {
	return func(o *serverOptions) { o.configPath = path }
}

// WithGenerators adds derived documents beyond the extracted HTML.
func WithGenerators(generators ...virtual.Generator) Option {
	return func(o *serverOptions) { o.generators = append(o.generators, generators...) }
}

// WithHoverProvider registers (or replaces) the hover service for a derived document slot.
func WithHoverProvider(slot string, p hover.Provider) Option {
	return func(o *serverOptions) { o.providers[slot] = p }
}

func WithAnalyzerOptions(opts ...a11y.Option) Option {
	return func(o *serverOptions) { o.analyzer = append(o.analyzer, opts...) }
}

func NewServer(opts ...Option) *Server {
	o := &serverOptions{
		fs:        afero.NewOsFs(),
		providers: map[string]hover.Provider{virtual.SlotHTML: hover.HTMLProvider{}},
	}
	for _, opt := range opts {
		opt(o)
	}

	analyzer := a11y.NewAnalyzer(o.analyzer...)
	registry := virtual.NewRegistry(o.generators...)
	s := &Server{
		id:          xid.New().String(),
		documents:   NewDocumentManager(registry, o.fs),
		analyzer:    analyzer,
		diagnostics: diagnostic.NewOrchestrator(analyzer, nil),
		hovers:      hover.NewOrchestrator(registry, o.providers),
		fs:          o.fs,
		configPath:  o.configPath,
		cancelFuncs: &sync.Map{},
		baseCtx:     context.Background(),
		exited:      make(chan struct{}),
	}
	s.config.Store(config.Default())
	return s
}

func (s *Server) ID() string {
	return s.id
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) Config() *config.Config {
	return s.config.Load()
}

// Run serves one client over rwc until the connection drops, the client sends exit, or ctx ends.
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.baseCtx = ctx

	handler := &router{
		sync:  jsonrpc2.HandlerWithError(s.handle),
		async: jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle)),
	}
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), handler)
	defer s.stopWatching()

	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-s.exited:
		return conn.Close()
	case <-ctx.Done():
		if err := conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
			return errors.Errorf("closing connection: %w", err)
		}
		return nil
	}
}

// router keeps document synchronization in arrival order on the read loop and hands every other message
// to its own goroutine.
type router struct {
	sync  jsonrpc2.Handler
	async jsonrpc2.Handler
}

func (r *router) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case "textDocument/didOpen", "textDocument/didChange", "textDocument/didClose", "$/cancelRequest", "exit":
		r.sync.Handle(ctx, conn, req)
	default:
		r.async.Handle(ctx, conn, req)
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	s.logOnce.Do(func() {
		s.logger = s.newClientLogger(s.baseCtx, conn)
	})
	ctx = s.logger.Level(s.Config().Level()).WithContext(ctx)

	if !req.Notif {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		key := req.ID.String()
		s.cancelFuncs.Store(key, cancel)
		defer func() {
			s.cancelFuncs.Delete(key)
			cancel()
		}()
	}

	zerolog.Ctx(ctx).Trace().Str("method", req.Method).Bool("notification", req.Notif).Msg("handling message")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(ctx, req)
	case "initialized":
		return nil, nil
	case "shutdown":
		s.shutdown.Store(true)
		return nil, nil
	case "exit":
		s.exit()
		return nil, nil
	case "$/cancelRequest":
		return s.handleCancelRequest(ctx, req)
	}

	if !s.initialized.Load() {
		return nil, &jsonrpc2.Error{Code: CodeServerNotInitialized, Message: "server not initialized"}
	}
	if s.shutdown.Load() {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "textDocument/didOpen":
		result, err = s.handleTextDocumentDidOpen(ctx, req)
	case "textDocument/didChange":
		result, err = s.handleTextDocumentDidChange(ctx, req)
	case "textDocument/didClose":
		result, err = s.handleTextDocumentDidClose(ctx, req)
	case "textDocument/hover":
		result, err = s.handleTextDocumentHover(ctx, req)
	case "textDocument/completion":
		result, err = s.handleTextDocumentCompletion(ctx, req)
	case "textDocument/documentSymbol":
		result, err = s.handleTextDocumentDocumentSymbol(ctx, req)
	case "textDocument/diagnostic":
		result, err = s.handleTextDocumentDiagnostic(ctx, req)
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &jsonrpc2.Error{Code: CodeRequestCancelled, Message: "request cancelled"}
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("method", req.Method).Msg("request failed")
	}
	return result, err
}

func (s *Server) exit() {
	select {
	case <-s.exited:
	default:
		close(s.exited)
	}
}

func (s *Server) handleCancelRequest(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params CancelParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	if cancel, ok := s.cancelFuncs.Load(params.ID.String()); ok {
		zerolog.Ctx(ctx).Debug().Str("request", params.ID.String()).Msg("cancelling request")
		cancel.(context.CancelFunc)()
	}
	return nil, nil
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: req.Method + ": missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: req.Method + ": " + err.Error()}
	}
	return nil
}
