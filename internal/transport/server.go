package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"github.com/iceice666/sunflower/internal/config"
	"github.com/iceice666/sunflower/internal/daemon"
	"github.com/iceice666/sunflower/pkg/protocol"
)

// Server accepts client connections and correlates each request to its
// response through the task pool.
type Server struct {
	cfg   *config.Config
	pool  *daemon.TaskPool
	debug bool
}

func NewServer(cfg *config.Config, pool *daemon.TaskPool) *Server {
	return &Server{cfg: cfg, pool: pool, debug: cfg.Debug}
}

func (s *Server) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[TRANSPORT] "+format, args...)
}

// Serve listens on the configured transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := Listen(s.cfg.Daemon.Transport, s.cfg.Daemon.TCPAddr, s.cfg.Daemon.SocketPath, s.cfg.Daemon.PipeName)
	if err != nil {
		return err
	}

	log.Printf("[TRANSPORT] accepting connections via %s", describe(s.cfg))

	go func() {
		<-ctx.Done()
		if closeErr := ln.Close(); closeErr != nil {
			s.debugLog("listener close: %v", closeErr)
		}
		if s.cfg.Daemon.Transport == "unix" {
			_ = os.Remove(s.cfg.Daemon.SocketPath)
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn serves one client: a complete request in, a complete response
// out, until the peer disconnects.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			s.debugLog("conn close: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var req protocol.Request
		if err := ReadMessage(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.debugLog("read request: %v", err)
			}
			return
		}

		clientID := req.ID

		waiter, err := s.pool.Submit(req)
		if err != nil {
			s.debugLog("submit: %v", err)
			return
		}

		select {
		case resp := <-waiter:
			// Hand the response back under the id the client chose.
			resp.ID = clientID
			if err := WriteMessage(conn, resp); err != nil {
				s.debugLog("write response: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func describe(cfg *config.Config) string {
	switch cfg.Daemon.Transport {
	case "tcp":
		return "tcp " + cfg.Daemon.TCPAddr
	case "unix":
		return "unix socket " + cfg.Daemon.SocketPath
	case "pipe":
		return "named pipe " + cfg.Daemon.PipeName
	default:
		return cfg.Daemon.Transport
	}
}
