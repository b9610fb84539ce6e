package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"chatrelay/internal/app/server/handlers"
	"chatrelay/internal/app/server/ws"
	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/services"
	"chatrelay/pkg/middleware"
)

type Server struct {
	log             *slog.Logger
	mux             *http.ServeMux
	addr            string
	shutdownTimeout time.Duration
	conns           contracts.ConnectionTable
	wsHandler       *handlers.WSHandler
	presenceHandler *handlers.PresenceHandler
	app             string
}

type Options struct {
	Name            string
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Transport       ws.Options
}

func NewServer(
	log *slog.Logger,
	opts Options,
	registry contracts.PresenceRegistry,
	conns contracts.ConnectionTable,
	sessionSvc services.ISessionService,
	managerSvc services.IManagerService,
) *Server {
	s := &Server{
		log:             log,
		mux:             http.NewServeMux(),
		addr:            opts.Addr,
		shutdownTimeout: opts.ShutdownTimeout,
		conns:           conns,
		app:             opts.Name,
		wsHandler:       handlers.NewWSHandler(sessionSvc, managerSvc, opts.Transport, opts.AllowedOrigins),
		presenceHandler: handlers.NewPresenceHandler(registry, conns),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.presenceHandler.Health)
	s.mux.HandleFunc("GET /presence", s.presenceHandler.Online)
	s.mux.HandleFunc("GET /ws", s.wsHandler.Handler)
}

// Handler returns the mux wrapped in the tracing and logging middleware.
func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.mux,
		middleware.TracerMiddleware(s.app),
		middleware.RequestLogger(s.log),
	)
}

// Start serves until ctx is cancelled, then drains HTTP and closes every
// open WebSocket.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server - start - listening", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server - shutdown - draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	// Hijacked connections are not tracked by http.Server.
	open := s.conns.All()
	for _, c := range open {
		c.Close()
	}
	s.log.Info("server - shutdown - complete", "closed_connections", len(open))
	return err
}
