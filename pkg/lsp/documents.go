package lsp

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"github.com/walteh/markols/pkg/virtual"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// normalizeURI rewrites file URIs into one canonical spelling so that clients escaping paths differently
// still hit the same document. Other schemes pass through.
func normalizeURI(u protocol.DocumentURI) string {
	s := string(u)
	if !strings.HasPrefix(s, uri.FileScheme+"://") {
		return s
	}
	return string(uri.File(uri.URI(s).Filename()))
}

// DocumentManager is the server's view of the registry: URIs are normalized on the way in, and files
// the client never opened are read from disk on first use.
type DocumentManager struct {
	registry *virtual.Registry
	fs       afero.Fs
}

func NewDocumentManager(registry *virtual.Registry, fs afero.Fs) *DocumentManager {
	return &DocumentManager{registry: registry, fs: fs}
}

func (m *DocumentManager) Open(ctx context.Context, u protocol.DocumentURI, version int32, text string) (*virtual.Document, error) {
	return m.registry.Open(ctx, normalizeURI(u), version, text)
}

func (m *DocumentManager) Close(u protocol.DocumentURI) {
	m.registry.Close(normalizeURI(u))
}

func (m *DocumentManager) Get(ctx context.Context, u protocol.DocumentURI) (*virtual.Document, error) {
	key := normalizeURI(u)
	doc, err := m.registry.Lookup(key)
	if err == nil || !errors.Is(err, virtual.ErrNotFound) || !strings.HasPrefix(key, uri.FileScheme+"://") {
		return doc, err
	}

	data, rerr := afero.ReadFile(m.fs, uri.URI(key).Filename())
	if rerr != nil {
		return nil, err
	}
	// a didOpen that landed during the read holds the editor's text and must win
	return m.registry.OpenIfAbsent(ctx, key, 0, string(data))
}
