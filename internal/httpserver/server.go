// Package httpserver wraps http.Server with graceful shutdown and errgroup
// compatibility. sessiond serves plain HTTP only, with no TLS/autocert
// requirement, so that half of the usual server setup is dropped; the
// Start/Stop/Run shape and timeout defaults are kept.
package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// ErrAlreadyRunning is returned by Start when called on a running Server.
var ErrAlreadyRunning = errors.New("httpserver: server already running")

// Server wraps http.Server with graceful shutdown. Safe for concurrent use.
type Server struct {
	mu       sync.RWMutex
	addr     string
	server   *http.Server
	logger   *slog.Logger
	shutdown time.Duration
	running  bool
}

// New creates a Server bound to addr. A nil logger installs a discard logger.
func New(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{addr: addr, logger: logger, shutdown: DefaultShutdownTimeout}
}

// Start blocks serving handler until ctx is cancelled or ListenAndServe
// returns a non-shutdown error.
func (s *Server) Start(ctx context.Context, h http.Handler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      h,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "httpserver: listening", slog.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts the server down within the configured timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	if err != nil {
		s.logger.Error("httpserver: shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("httpserver: shutdown complete")
	return nil
}

// Run adapts Start/Stop to errgroup.Group.Go's `func() error` signature.
func (s *Server) Run(ctx context.Context, h http.Handler) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- s.Start(ctx, h) }()

		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				s.logger.Error("httpserver: stop during shutdown failed", slog.String("error", err.Error()))
			}
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
