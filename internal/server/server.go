package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spondex/internal/shared"
)

// Server serves the control plane over a unix domain socket.
type Server struct {
	logger     *log.Logger
	control    *Control
	socketPath string
	httpServer *http.Server
}

func NewServer(logger *log.Logger, control *Control, socketPath string) *Server {
	if socketPath == "" {
		socketPath = shared.SocketPath()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", control.handleRPC)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, control.health(r.Context()))
	})

	return &Server{
		logger:     logger,
		control:    control,
		socketPath: socketPath,
		httpServer: &http.Server{Handler: mux},
	}
}

// Serve listens on the socket until ctx is cancelled, then shuts the
// server down gracefully and removes the socket file. A socket file
// with a live daemon behind it means [shared.ErrDaemonAlreadyRunning].
func (s *Server) Serve(ctx context.Context) error {
	if err := s.claimSocket(); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	s.logger.Info("control socket listening", "path", s.socketPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("control socket shutdown", "error", err)
		}
		os.Remove(s.socketPath)
		return nil
	case err := <-errCh:
		os.Remove(s.socketPath)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control socket failed: %w", err)
	}
}

// claimSocket removes a stale socket file left by a crashed daemon. The
// file is only stale when nothing answers a connect on it.
func (s *Server) claimSocket() error {
	if _, err := os.Stat(s.socketPath); err != nil {
		return nil
	}

	conn, err := net.DialTimeout("unix", s.socketPath, time.Second)
	if err == nil {
		conn.Close()
		return shared.ErrDaemonAlreadyRunning
	}

	s.logger.Warn("removing stale control socket", "path", s.socketPath)
	if err := os.Remove(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}
	return nil
}
