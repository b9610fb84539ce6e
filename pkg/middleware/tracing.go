package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrUpgradeRequested = attribute.Key("relay.ws.upgrade_requested")
	attrUpgraded         = attribute.Key("relay.ws.upgraded")
)

// statusRecorder remembers the response status and whether the connection
// was taken over for a WebSocket.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacker not supported")
	}
	conn, buf, err := h.Hijack()
	if err == nil {
		rw.hijacked = true
		rw.statusCode = http.StatusSwitchingProtocols
	}
	return conn, buf, err
}

// TracerMiddleware opens a server span per request. For /ws the span lasts
// for the whole socket lifetime and records whether the upgrade went through.
func TracerMiddleware(app string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(app)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			upgrade := websocket.IsWebSocketUpgrade(r)
			ctx, span := tracer.Start(ctx,
				r.Method+" "+r.URL.Path,
				trace.WithAttributes(
					semconv.ServiceName(app),
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(r.UserAgent()),
					attrUpgradeRequested.Bool(upgrade),
				),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.statusCode))
			if upgrade {
				span.SetAttributes(attrUpgraded.Bool(rec.hijacked))
			}
			switch {
			case upgrade && !rec.hijacked:
				span.SetStatus(codes.Error, "websocket upgrade rejected")
			case rec.statusCode >= 400:
				span.SetStatus(codes.Error, "request failed")
			}
		})
	}
}
