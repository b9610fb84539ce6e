package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"chatrelay/internal/core/domain"
	"chatrelay/pkg/logging"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type IManagerService interface {
	// HandleMessage decodes one inbound frame and runs the matching handler.
	// Malformed frames are logged and dropped without a reply.
	HandleMessage(ctx context.Context, connID domain.ConnectionID, raw []byte) error
}

type ManagerService struct {
	session ISessionService
	relay   IRelayService
	log     *slog.Logger
}

var _ IManagerService = (*ManagerService)(nil)

func NewManagerService(
	log *slog.Logger,
	session ISessionService,
	relay IRelayService,
) *ManagerService {
	return &ManagerService{
		log:     log,
		session: session,
		relay:   relay,
	}
}

func (m *ManagerService) HandleMessage(
	ctx context.Context,
	connID domain.ConnectionID,
	raw []byte,
) error {
	if !gjson.ValidBytes(raw) {
		m.log.WarnContext(ctx, "manager - handle message - invalid json", logging.Connection(connID), slog.Int("size", len(raw)))
		return fmt.Errorf("%w: invalid json", domain.ErrMalformedEvent)
	}
	// Frames are relayed as text frames, which must be valid UTF-8 on the wire.
	if !utf8.Valid(raw) {
		m.log.WarnContext(ctx, "manager - handle message - invalid utf-8", logging.Connection(connID), slog.Int("size", len(raw)))
		return fmt.Errorf("%w: invalid utf-8", domain.ErrMalformedEvent)
	}
	event := gjson.GetBytes(raw, "event")
	if event.Type != gjson.String || event.Str == "" {
		m.log.WarnContext(ctx, "manager - handle message - missing event name", logging.Connection(connID))
		return fmt.Errorf("%w: missing event name", domain.ErrMalformedEvent)
	}
	ctx, span := tracer.Start(ctx, "ManagerService.HandleMessage", trace.WithAttributes(
		attribute.String("conn_id", connID.String()),
		attribute.String("event", event.Str),
		attribute.Int("payload_size", len(raw)),
	))
	defer span.End()
	data := gjson.GetBytes(raw, "data")
	var err error
	switch event.Str {
	case domain.EventSignIn:
		var in domain.SignIn
		if err = decodeData(data, &in); err == nil {
			err = m.session.SignIn(ctx, connID, in)
		}
	case domain.EventSendMessage:
		var in domain.SendMessage
		err = decodeData(data, &in)
		switch {
		case err != nil:
		case in.Sender == "" || in.Target == "":
			err = fmt.Errorf("%w: sendMessage requires sourceId and targetId", domain.ErrMalformedEvent)
		default:
			err = m.relay.SendMessage(ctx, connID, in.Directed())
		}
	case domain.EventSignOut:
		err = m.session.SignOut(ctx, connID)
	case domain.EventGreeting:
		var in domain.Greeting
		if err = decodeData(data, &in); err == nil {
			err = m.relay.Greet(ctx, connID, json.RawMessage(data.Raw), in.Name)
		}
	default:
		err = fmt.Errorf("%w: unknown event %q", domain.ErrMalformedEvent, event.Str)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		m.log.InfoContext(ctx, "manager - handle message - handler failed",
			logging.Connection(connID), slog.String("event", event.Str), logging.Err(err))
		return err
	}
	span.SetStatus(codes.Ok, "handled")
	return nil
}

// decodeData expects a JSON object in the envelope's data field.
func decodeData(data gjson.Result, v any) error {
	if !data.IsObject() {
		return fmt.Errorf("%w: data must be an object", domain.ErrMalformedEvent)
	}
	if err := json.Unmarshal([]byte(data.Raw), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}
