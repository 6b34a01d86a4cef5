// Package http serves the bootstrapper's status and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 5 * time.Second

// NewHandler routes /healthz, /status and, when metrics is non-nil, /metrics.
func NewHandler(status *Status, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if status != nil && status.Snapshot().Failed != "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("failed\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		if status == nil {
			http.Error(w, "status unavailable", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status.Snapshot()); err != nil {
			slog.Warn("Failed to encode status", "error", err)
		}
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

// Server runs the handler until its context ends.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// Listen binds addr. Use ":0" to pick a free port.
func Listen(addr string, handler http.Handler, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is done, then shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", "addr", s.Addr())
		serverErrors <- s.srv.Serve(s.listener)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown did not complete", "error", err)
			return s.srv.Close()
		}
		return nil
	}
}
