package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/markols/pkg/debug"
	"go.lsp.dev/protocol"
)

// LogMessageParams is window/logMessage with the structured fields of the zerolog event kept alongside
// the message. Clients that only know Type and Message ignore the rest.
type LogMessageParams struct {
	Type    protocol.MessageType `json:"type"`
	Message string               `json:"message"`
	Source  string               `json:"source,omitempty"`
	Time    string               `json:"time,omitempty"`
	Server  string               `json:"server,omitempty"`
	Extra   map[string]any       `json:"extra,omitempty"`
}

func messageType(level string) protocol.MessageType {
	switch level {
	case zerolog.LevelPanicValue, zerolog.LevelFatalValue, zerolog.LevelErrorValue:
		return protocol.MessageTypeError
	case zerolog.LevelWarnValue:
		return protocol.MessageTypeWarning
	case zerolog.LevelInfoValue:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}

// LSPWriter turns zerolog JSON lines into window/logMessage notifications.
type LSPWriter struct {
	mu   sync.Mutex
	conn *jsonrpc2.Conn
	ctx  context.Context
}

func NewLSPWriter(ctx context.Context, conn *jsonrpc2.Conn) *LSPWriter {
	return &LSPWriter{conn: conn, ctx: ctx}
}

func (w *LSPWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	params := LogMessageParams{Type: protocol.MessageTypeLog}
	if l, ok := entry[zerolog.LevelFieldName].(string); ok {
		params.Type = messageType(l)
		delete(entry, zerolog.LevelFieldName)
	}
	if m, ok := entry[zerolog.MessageFieldName].(string); ok {
		params.Message = m
		delete(entry, zerolog.MessageFieldName)
	}
	if t, ok := entry[zerolog.TimestampFieldName].(string); ok {
		params.Time = t
		delete(entry, zerolog.TimestampFieldName)
	}
	if c, ok := entry[zerolog.CallerFieldName].(string); ok {
		params.Source = c
		delete(entry, zerolog.CallerFieldName)
	}
	if id, ok := entry["server"].(string); ok {
		params.Server = id
		delete(entry, "server")
	}
	if len(entry) > 0 {
		params.Extra = entry
	}

	// a closed connection only loses the log line
	_ = w.conn.Notify(w.ctx, "window/logMessage", params)
	return len(p), nil
}

// newClientLogger builds the logger whose output goes to the client over conn.
func (s *Server) newClientLogger(ctx context.Context, conn *jsonrpc2.Conn) zerolog.Logger {
	return zerolog.New(NewLSPWriter(ctx, conn)).With().
		Str("server", s.id).
		Logger().
		Hook(debug.TimeHook{}).
		Hook(debug.CallerHook{})
}
