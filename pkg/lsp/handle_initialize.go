package lsp

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/markols/pkg/config"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

const serverName = "markols"

func (s *Server) handleInitialize(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.InitializeParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)

	s.plaintextHover.Store(!supportsMarkdownHover(params.Capabilities))

	root := workspaceRoot(params)
	logger.Debug().Str("root", root).Bool("plaintext_hover", s.plaintextHover.Load()).Msg("initializing server")
	s.loadConfig(ctx, root)

	s.initialized.Store(true)

	return InitializeResult{
		Capabilities: ServerCapabilities{
			ServerCapabilities: protocol.ServerCapabilities{
				TextDocumentSync: protocol.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    protocol.TextDocumentSyncKindFull,
				},
				HoverProvider: true,
				CompletionProvider: &protocol.CompletionOptions{
					TriggerCharacters: []string{"<"},
				},
				DocumentSymbolProvider: true,
			},
			DiagnosticProvider: &DiagnosticOptions{Identifier: serverName},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName, Version: version()},
	}, nil
}

// supportsMarkdownHover is true unless the client lists hover formats without markdown.
func supportsMarkdownHover(caps protocol.ClientCapabilities) bool {
	if caps.TextDocument == nil || caps.TextDocument.Hover == nil || len(caps.TextDocument.Hover.ContentFormat) == 0 {
		return true
	}
	for _, kind := range caps.TextDocument.Hover.ContentFormat {
		if kind == protocol.Markdown {
			return true
		}
	}
	return false
}

func workspaceRoot(params protocol.InitializeParams) string {
	candidates := []string{string(params.RootURI)}
	for _, f := range params.WorkspaceFolders {
		candidates = append(candidates, f.URI)
	}
	for _, c := range candidates {
		if strings.HasPrefix(c, uri.FileScheme+"://") {
			return uri.URI(c).Filename()
		}
	}
	return params.RootPath
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// loadConfig applies the config for root and starts watching it. Problems are logged; the server keeps
// running on defaults.
func (s *Server) loadConfig(ctx context.Context, root string) {
	logger := zerolog.Ctx(ctx)

	path := s.configPath
	if path == "" && root != "" {
		path = filepath.Join(root, config.FileName)
		if found, ok := config.Find(s.fs, root); ok {
			path = found
		}
	}
	if path == "" {
		return
	}

	cfg, err := config.Load(s.fs, path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("using default config")
	} else {
		s.applyConfig(ctx, cfg)
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	watchCtx, cancel := context.WithCancel(s.logger.WithContext(s.baseCtx))
	if _, err := config.Watch(watchCtx, s.fs, path, func(cfg *config.Config) {
		s.applyConfig(watchCtx, cfg)
	}); err != nil {
		cancel()
		logger.Debug().Err(err).Str("path", path).Msg("not watching config")
		return
	}
	s.stopWatch = cancel
}

func (s *Server) applyConfig(ctx context.Context, cfg *config.Config) {
	s.config.Store(cfg)
	s.diagnostics.SetExceptions(cfg.Exceptions())
	s.analyzer.SetDisabled(cfg.A11y.Disabled...)
	zerolog.Ctx(ctx).Debug().Strs("disabled", cfg.A11y.Disabled).Stringer("level", cfg.Level()).Msg("config applied")
}

func (s *Server) stopWatching() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}
