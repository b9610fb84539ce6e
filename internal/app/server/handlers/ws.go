package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"chatrelay/internal/app/server/ws"
	"chatrelay/internal/core/domain"
	"chatrelay/internal/core/services"
	"chatrelay/pkg/logging"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	session  services.ISessionService
	manager  services.IManagerService
	opts     ws.Options
	upgrader websocket.Upgrader
}

func NewWSHandler(
	session services.ISessionService,
	manager services.IManagerService,
	opts ws.Options,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		session: session,
		manager: manager,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied with an HTTP error
		log.WarnContext(r.Context(), "ws handler - upgrade - ws upgrade failed", "err", err)
		return
	}
	// The socket outlives the upgrade request.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	connID := domain.NewConnectionID()
	log = log.With(logging.Connection(connID))
	ctx = logging.WithContext(ctx, log)
	span.SetAttributes(attribute.String("chat.conn_id", connID.String()))

	socket := ws.NewWebSocket(ctx, conn, s.opts, log)
	client := ws.NewClient(ctx, socket, connID)
	defer client.Close()
	s.session.Connect(ctx, client)
	defer s.session.Disconnect(ctx, connID)
	log.InfoContext(ctx, "ws handler - connect - connection established")

	// Frames from one connection are handled in arrival order.
	socket.ReadLoop(func(data []byte) {
		_ = s.manager.HandleMessage(ctx, connID, data)
	})
	log.InfoContext(ctx, "ws handler - disconnect - connection closed")
}

// originChecker allows requests without an Origin header (non-browser
// clients), any origin when "*" is listed, and exact matches otherwise.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[origin]
		if !ok {
			slog.Default().Warn("ws handler - check origin - origin rejected", "origin", origin)
		}
		return ok
	}
}
