package services

import (
	"context"
	"log/slog"
	"time"

	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/domain"
	"chatrelay/pkg/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ISessionService interface {
	// Connect attaches a freshly accepted connection in the Anonymous state.
	Connect(ctx context.Context, conn contracts.Connection) *domain.Session
	// SignIn binds an identity to the connection and registers it.
	SignIn(ctx context.Context, connID domain.ConnectionID, in domain.SignIn) error
	// SignOut unbinds the identity and drops its registry entries.
	SignOut(ctx context.Context, connID domain.ConnectionID) error
	// Disconnect closes the session for good and removes every registry
	// entry owned by the connection.
	Disconnect(ctx context.Context, connID domain.ConnectionID) []domain.Identity
}

type SessionService struct {
	registry contracts.PresenceRegistry
	conns    contracts.ConnectionTable
	relay    IRelayService
	log      *slog.Logger
}

var _ ISessionService = (*SessionService)(nil)

func NewSessionService(
	log *slog.Logger,
	registry contracts.PresenceRegistry,
	conns contracts.ConnectionTable,
	relay IRelayService,
) *SessionService {
	return &SessionService{
		log:      log,
		registry: registry,
		conns:    conns,
		relay:    relay,
	}
}

func (s *SessionService) Connect(ctx context.Context, conn contracts.Connection) *domain.Session {
	session := s.conns.Attach(conn)
	s.log.InfoContext(ctx, "session - connect - connection attached", logging.Connection(conn.ID()), slog.Int("open_connections", s.conns.Len()))
	return session
}

func (s *SessionService) SignIn(
	ctx context.Context,
	connID domain.ConnectionID,
	in domain.SignIn,
) error {
	ctx, span := tracer.Start(ctx, "SessionService.SignIn", trace.WithAttributes(
		attribute.String("conn_id", connID.String()),
		attribute.String("user_id", in.Identity.String()),
		attribute.String("target_id", in.TargetIdentity.String()),
	))
	defer span.End()
	_, session, ok := s.conns.Get(connID)
	if !ok {
		span.RecordError(domain.ErrUnknownConnection)
		return domain.ErrUnknownConnection
	}
	if !session.IsOpen() {
		return domain.ErrConnectionClosed
	}
	if in.Identity == "" {
		nerr := domain.NewInvalidAnnouncement()
		span.RecordError(nerr)
		span.SetStatus(codes.Error, "invalid announcement")
		s.log.WarnContext(ctx, "session - sign in - missing identity", logging.Connection(connID))
		s.relay.NotifyError(ctx, connID, nerr)
		return nerr
	}
	// The open check runs inside the registry lock so a concurrent Disconnect
	// either sees the entry and removes it or makes us skip the insert.
	if !s.registry.RegisterIfOpen(in.Identity, connID, session.IsOpen) {
		return domain.ErrConnectionClosed
	}
	previous, wasIdentified := session.Identity()
	if !session.Bind(in.Identity) {
		return domain.ErrConnectionClosed
	}
	if wasIdentified && previous != in.Identity {
		s.log.InfoContext(ctx, "session - sign in - identity replaced",
			logging.Connection(connID), logging.Identity(in.Identity), slog.String("previous_id", previous.String()))
	} else {
		s.log.InfoContext(ctx, "session - sign in - identity registered", logging.Connection(connID), logging.Identity(in.Identity))
	}
	span.SetStatus(codes.Ok, "signed in")
	if in.TargetIdentity == "" {
		return s.relay.Reply(ctx, connID, domain.EventSignedIn, domain.SignedIn{Identity: in.Identity})
	}
	// A missing peer is reported to the signer but the sign-in itself stands.
	if err := s.relay.NotifySignedIn(ctx, connID, in.Identity, in.TargetIdentity); err != nil {
		span.AddEvent("peer notification failed", trace.WithAttributes(attribute.String("error", err.Error())))
		return err
	}
	return nil
}

func (s *SessionService) SignOut(ctx context.Context, connID domain.ConnectionID) error {
	_, session, ok := s.conns.Get(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	identity, ok := session.Unbind()
	if !ok {
		return nil
	}
	removed := s.registry.RemoveByConnection(connID)
	s.log.InfoContext(ctx, "session - sign out - success",
		logging.Connection(connID), logging.Identity(identity), slog.Int("removed", len(removed)))
	return nil
}

// Disconnect is safe to call more than once.
func (s *SessionService) Disconnect(ctx context.Context, connID domain.ConnectionID) []domain.Identity {
	ctx, span := tracer.Start(ctx, "SessionService.Disconnect", trace.WithAttributes(
		attribute.String("conn_id", connID.String()),
	))
	defer span.End()
	_, session, ok := s.conns.Detach(connID)
	if !ok {
		return nil
	}
	session.Close()
	removed := s.registry.RemoveByConnection(connID)
	span.SetAttributes(attribute.Int("removed", len(removed)))
	s.log.InfoContext(ctx, "session - disconnect - connection detached",
		logging.Connection(connID), slog.Any("removed_ids", removed),
		slog.Duration("session_duration", time.Since(session.ConnectedAt)), slog.Int("open_connections", s.conns.Len()))
	return removed
}
