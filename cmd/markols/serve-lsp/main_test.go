package serve_lsp

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/lsp"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
)

func TestServeOnSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "markols.sock")
	me := &Handler{socket: socket}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- me.Run(ctx) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", socket)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)

	client := jrpc2.NewClient(channel.LSP(conn, conn), nil)
	defer client.Close()

	var result lsp.InitializeResult
	require.NoError(t, client.CallResult(ctx, "initialize", protocol.InitializeParams{}, &result))
	assert.Equal(t, true, result.Capabilities.HoverProvider)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// brokenListener hands out its queued conns, then fails every Accept.
type brokenListener struct {
	conns  chan net.Conn
	closed atomic.Bool
}

func (l *brokenListener) Accept() (net.Conn, error) {
	if c, ok := <-l.conns; ok {
		return c, nil
	}
	return nil, errors.New("too many open files")
}

func (l *brokenListener) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *brokenListener) Addr() net.Addr {
	return &net.UnixAddr{Name: "broken.sock", Net: "unix"}
}

func TestServeStopsClientsWhenAcceptFails(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	ln := &brokenListener{conns: make(chan net.Conn, 1)}
	ln.conns <- server
	close(ln.conns)

	me := &Handler{}
	done := make(chan error, 1)
	go func() { done <- me.serve(context.Background(), ln) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many open files")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}

	assert.True(t, ln.closed.Load())

	// the client server was stopped, so its end of the pipe is gone
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}
