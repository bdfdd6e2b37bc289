package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/pkg/log"
)

// Server exposes the HTTP API and plugs into the srv.Service lifecycle.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	cfg        *config.ServerConfig
}

func NewServer(cfg *config.ServerConfig, h *Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(h),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: h,
		cfg:     cfg,
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Hand the process logger to every request context.
	s.httpServer.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr).Msg("http server listening")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	// Drain fire-and-forget side effects before the process exits.
	s.handler.Wait()

	return err
}
