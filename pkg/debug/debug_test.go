package debug_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/debug"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := debug.NewLogger(&buf, zerolog.InfoLevel, false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("uri", "file:///a.marko").Msg("opened")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "opened", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "file:///a.marko", entry["uri"])
	assert.NotEmpty(t, entry["time"])
	assert.Contains(t, entry["caller"], "debug_test.go:")
	assert.Contains(t, entry["caller"], "pkg/debug_test:")
}

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		pkg, fn string
	}{
		{name: "function", in: "github.com/walteh/markols/pkg/lsp.NewServer", pkg: "github.com/walteh/markols/pkg/lsp", fn: "NewServer"},
		{name: "method", in: "github.com/walteh/markols/pkg/lsp.(*Server).handle", pkg: "github.com/walteh/markols/pkg/lsp", fn: "(*Server).handle"},
		{name: "dotted module", in: "go.lsp.dev/uri.File", pkg: "go.lsp.dev/uri", fn: "File"},
		{name: "main", in: "main.main", pkg: "main", fn: "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, fn := debug.SplitFuncName(tt.in)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.fn, fn)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "example.com/p:file.go:12", debug.FormatCaller("example.com/p", "/src/p/file.go", 12, false))
}
