package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server exposes /metrics and /health.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, c *Collector, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Serve accepts connections on l until Stop is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting metrics HTTP server", zap.String("addr", l.Addr().String()))

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	return s.Serve(l)
}

// Stop gracefully stops the metrics HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping metrics HTTP server")
	return s.httpServer.Shutdown(ctx)
}
