package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/domain"
	"chatrelay/pkg/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type IRelayService interface {
	// SendMessage delivers msg to the connection currently owning msg.Target.
	// The originating connection must be signed in as msg.Sender.
	SendMessage(ctx context.Context, connID domain.ConnectionID, msg domain.DirectedMessage) error
	// NotifySignedIn tells target that signer is online and acknowledges the signer.
	NotifySignedIn(ctx context.Context, connID domain.ConnectionID, signer, target domain.Identity) error
	// Broadcast sends payload to every open connection, the sender included.
	Broadcast(ctx context.Context, payload json.RawMessage) int
	// Greet runs the one-shot greeting for a connection.
	Greet(ctx context.Context, connID domain.ConnectionID, payload json.RawMessage, name string) error
	// Reply sends a single event to one connection.
	Reply(ctx context.Context, connID domain.ConnectionID, event string, data any) error
	// NotifyError reports client facing errors back to the connection.
	NotifyError(ctx context.Context, connID domain.ConnectionID, err error)
}

var tracer = otel.Tracer("relay-service")

var _ IRelayService = (*RelayService)(nil)

type RelayService struct {
	registry contracts.PresenceRegistry
	conns    contracts.ConnectionTable
	log      *slog.Logger
}

func NewRelayService(
	log *slog.Logger,
	registry contracts.PresenceRegistry,
	conns contracts.ConnectionTable,
) *RelayService {
	return &RelayService{
		log:      log,
		registry: registry,
		conns:    conns,
	}
}

func (r *RelayService) SendMessage(
	ctx context.Context,
	connID domain.ConnectionID,
	msg domain.DirectedMessage,
) error {
	ctx, span := tracer.Start(ctx, "RelayService.SendMessage", trace.WithAttributes(
		attribute.String("conn_id", connID.String()),
		attribute.String("sender_id", msg.Sender.String()),
		attribute.String("target_id", msg.Target.String()),
		attribute.Int("payload_size", len(msg.Payload)),
	))
	defer span.End()
	_, session, ok := r.conns.Get(connID)
	if !ok {
		span.RecordError(domain.ErrUnknownConnection)
		return domain.ErrUnknownConnection
	}
	bound, identified := session.Identity()
	if !identified || msg.Sender == "" || bound != msg.Sender {
		nerr := domain.NewUnauthorizedSender(msg.Sender)
		span.RecordError(nerr)
		span.SetStatus(codes.Error, "unauthorized sender")
		r.log.WarnContext(ctx, "relay - send message - unauthorized sender",
			logging.Connection(connID), logging.Identity(bound), slog.String("claimed_id", msg.Sender.String()))
		r.NotifyError(ctx, connID, nerr)
		return nerr
	}
	target, err := r.resolve(msg.Target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target not found")
		r.log.InfoContext(ctx, "relay - send message - target not found", logging.Identity(msg.Sender), logging.Target(msg.Target))
		r.NotifyError(ctx, connID, err)
		return err
	}
	frame, err := domain.Encode(domain.EventMessageReceived, domain.MessageReceived{
		Sender:  msg.Sender,
		Message: msg.Payload,
		Path:    msg.Path,
		IsImage: msg.IsImage,
	})
	if err != nil {
		span.RecordError(err)
		r.log.ErrorContext(ctx, "relay - send message - encode failed", logging.Identity(msg.Sender), logging.Err(err))
		return err
	}
	if err := target.Send(frame); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		r.log.WarnContext(ctx, "relay - send message - delivery failed",
			logging.Identity(msg.Sender), logging.Target(msg.Target), logging.Connection(target.ID()), logging.Err(err))
		return fmt.Errorf("deliver to %s: %w", msg.Target, err)
	}
	span.SetStatus(codes.Ok, "delivered")
	r.log.DebugContext(ctx, "relay - send message - delivered",
		logging.Identity(msg.Sender), logging.Target(msg.Target), logging.Connection(target.ID()))
	return nil
}

func (r *RelayService) NotifySignedIn(
	ctx context.Context,
	connID domain.ConnectionID,
	signer, target domain.Identity,
) error {
	ctx, span := tracer.Start(ctx, "RelayService.NotifySignedIn", trace.WithAttributes(
		attribute.String("conn_id", connID.String()),
		attribute.String("sender_id", signer.String()),
		attribute.String("target_id", target.String()),
	))
	defer span.End()
	peer, err := r.resolve(target)
	if err != nil {
		span.RecordError(err)
		r.log.InfoContext(ctx, "relay - notify signed in - target not found", logging.Identity(signer), logging.Target(target))
		r.NotifyError(ctx, connID, err)
		return err
	}
	frame, err := domain.Encode(domain.EventSignedIn, domain.SignedIn{Identity: signer})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := peer.Send(frame); err != nil {
		span.RecordError(err)
		r.log.WarnContext(ctx, "relay - notify signed in - delivery failed",
			logging.Identity(signer), logging.Target(target), logging.Err(err))
		return fmt.Errorf("notify %s: %w", target, err)
	}
	if err := r.Reply(ctx, connID, domain.EventSignedIn, domain.SignedIn{Identity: target}); err != nil {
		span.RecordError(err)
		return err
	}
	r.log.InfoContext(ctx, "relay - notify signed in - success", logging.Identity(signer), logging.Target(target))
	return nil
}

func (r *RelayService) Broadcast(ctx context.Context, payload json.RawMessage) int {
	ctx, span := tracer.Start(ctx, "RelayService.Broadcast", trace.WithAttributes(
		attribute.Int("payload_size", len(payload)),
	))
	defer span.End()
	frame, err := domain.EncodeRaw(domain.EventBroadcastNotice, payload)
	if err != nil {
		span.RecordError(err)
		r.log.ErrorContext(ctx, "relay - broadcast - encode failed", logging.Err(err))
		return 0
	}
	delivered := 0
	for _, c := range r.conns.All() {
		if err := c.Send(frame); err != nil {
			r.log.WarnContext(ctx, "relay - broadcast - delivery failed", logging.Connection(c.ID()), logging.Err(err))
			continue
		}
		delivered++
	}
	span.SetAttributes(attribute.Int("delivered", delivered))
	r.log.InfoContext(ctx, "relay - broadcast - success", slog.Int("delivered", delivered))
	return delivered
}

// Greet is honored once per connection; later greetings are ignored.
func (r *RelayService) Greet(
	ctx context.Context,
	connID domain.ConnectionID,
	payload json.RawMessage,
	name string,
) error {
	_, session, ok := r.conns.Get(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	if !session.MarkGreeted() {
		r.log.DebugContext(ctx, "relay - greet - already greeted", logging.Connection(connID))
		return nil
	}
	r.Broadcast(ctx, payload)
	return r.Reply(ctx, connID, domain.EventWelcome, fmt.Sprintf("Hello %s, welcome!", name))
}

// Reply sends a single event to one connection.
func (r *RelayService) Reply(ctx context.Context, connID domain.ConnectionID, event string, data any) error {
	conn, _, ok := r.conns.Get(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	frame, err := domain.Encode(event, data)
	if err != nil {
		return err
	}
	if err := conn.Send(frame); err != nil {
		r.log.WarnContext(ctx, "relay - reply - delivery failed", logging.Connection(connID), slog.String("event", event), logging.Err(err))
		return err
	}
	return nil
}

// NotifyError reports err to the originating connection when it is a
// NoticeError. Other errors are not client facing.
func (r *RelayService) NotifyError(ctx context.Context, connID domain.ConnectionID, err error) {
	var nerr *domain.NoticeError
	if !errors.As(err, &nerr) {
		return
	}
	_ = r.Reply(ctx, connID, domain.EventErrorNotice, nerr.Notice())
}

// resolve maps an identity to an open connection. A registry entry whose
// connection already left the hub counts as not found.
func (r *RelayService) resolve(target domain.Identity) (contracts.Connection, error) {
	if target == "" {
		return nil, domain.NewTargetNotFound(target)
	}
	connID, ok := r.registry.Lookup(target)
	if !ok {
		return nil, domain.NewTargetNotFound(target)
	}
	conn, session, ok := r.conns.Get(connID)
	if !ok || !session.IsOpen() {
		return nil, domain.NewTargetNotFound(target)
	}
	return conn, nil
}
