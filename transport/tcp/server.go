// Package tcp serves the mazed line protocol over TCP.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mazed/game/protocol"
	xlog "github.com/wricardo/mazed/internal/log"
	"github.com/wricardo/mazed/internal/metrics"
)

// DefaultWriteTimeout bounds a single reply write.
const DefaultWriteTimeout = 10 * time.Second

// Server accepts TCP clients and runs one protocol driver per connection.
type Server struct {
	Addr         string
	Driver       *protocol.Driver
	Logger       zerolog.Logger
	WriteTimeout time.Duration
}

// ListenAndServe listens on s.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or accepting
// fails. It closes ln and returns only after every connection handler has
// finished and its session has been torn down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.Logger.Info().Str("addr", ln.Addr().String()).Msg("tcp server listening")

	g, gctx := errgroup.WithContext(ctx)

	// Shut the listener down when the context expires.
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if gctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				acceptErr = fmt.Errorf("accept: %w", err)
			}
			break
		}
		g.Go(func() error {
			s.serveConn(gctx, conn)
			return nil
		})
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) && acceptErr == nil {
		acceptErr = err
	}
	s.Logger.Info().Msg("tcp server stopped")
	return acceptErr
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	done := metrics.TrackConnection("tcp")
	defer done()

	timeout := s.WriteTimeout
	if timeout == 0 {
		timeout = DefaultWriteTimeout
	}
	if err := s.Driver.Serve(ctx, protocol.NewStreamConn(conn, timeout)); err != nil {
		s.Logger.Debug().Err(err).Str(xlog.FieldRemoteAddr, conn.RemoteAddr().String()).Msg("connection ended with error")
	}
}
