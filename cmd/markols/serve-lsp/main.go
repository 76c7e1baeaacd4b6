package serve_lsp

import (
	"context"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/markols/pkg/lsp"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	configPath string
	socket     string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server",
	}

	cmd.Flags().StringVar(&me.configPath, "config", "", "config file (default: .markols.yaml found from the workspace root)")
	cmd.Flags().StringVar(&me.socket, "socket", "", "listen on a unix socket instead of stdio")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) options() []lsp.Option {
	var opts []lsp.Option
	if me.configPath != "" {
		opts = append(opts, lsp.WithConfigPath(me.configPath))
	}
	return opts
}

func (me *Handler) Run(ctx context.Context) error {
	if me.socket != "" {
		return me.listen(ctx)
	}

	server := lsp.NewServer(me.options()...)
	zerolog.Ctx(ctx).Info().Str("server", server.ID()).Msg("serving on stdio")

	if err := server.Run(ctx, lsp.NewReadWriteCloser(os.Stdin, os.Stdout)); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}
	return nil
}

// listen serves every client that connects to the socket with its own server.
func (me *Handler) listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", me.socket)
	if err != nil {
		return errors.Errorf("listening on %s: %w", me.socket, err)
	}
	zerolog.Ctx(ctx).Info().Str("socket", me.socket).Msg("serving on socket")

	return me.serve(ctx, ln)
}

// serve accepts until ctx ends or Accept fails. Either way the listener is closed and every client server
// has returned before serve does.
func (me *Handler) serve(ctx context.Context, ln net.Listener) error {
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				acceptErr = errors.Errorf("accepting on %s: %w", ln.Addr(), err)
			}
			break
		}

		server := lsp.NewServer(me.options()...)
		logger.Info().Str("server", server.ID()).Msg("client connected")
		g.Go(func() error {
			if err := server.Run(ctx, conn); err != nil {
				logger.Warn().Err(err).Str("server", server.ID()).Msg("client connection ended")
			}
			return nil
		})
	}

	cancel()
	err := g.Wait()
	if acceptErr != nil {
		return acceptErr
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Errorf("serving %s: %w", ln.Addr(), err)
	}
	return nil
}
