package lsp

import (
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Pull diagnostics arrived in LSP 3.17, after go.lsp.dev/protocol was cut.

type DocumentDiagnosticParams struct {
	TextDocument     protocol.TextDocumentIdentifier `json:"textDocument"`
	Identifier       string                          `json:"identifier,omitempty"`
	PreviousResultID string                          `json:"previousResultId,omitempty"`
}

const DocumentDiagnosticReportKindFull = "full"

type FullDocumentDiagnosticReport struct {
	Kind     string                `json:"kind"`
	ResultID string                `json:"resultId,omitempty"`
	Items    []protocol.Diagnostic `json:"items"`
}

type DiagnosticOptions struct {
	Identifier            string `json:"identifier,omitempty"`
	InterFileDependencies bool   `json:"interFileDependencies"`
	WorkspaceDiagnostics  bool   `json:"workspaceDiagnostics"`
}

type ServerCapabilities struct {
	protocol.ServerCapabilities
	DiagnosticProvider *DiagnosticOptions `json:"diagnosticProvider,omitempty"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities   `json:"capabilities"`
	ServerInfo   *protocol.ServerInfo `json:"serverInfo,omitempty"`
}

type CancelParams struct {
	ID jsonrpc2.ID `json:"id"`
}

// LSP error codes outside the JSON-RPC range.
const (
	CodeServerNotInitialized int64 = -32002
	CodeRequestCancelled     int64 = -32800
)
