package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

type Options struct {
	ReadLimit    int64
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:    512 * 1024,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingInterval: 50 * time.Second,
		SendBuffer:   256,
	}
}

// WebSocket serializes writes through the owning client's write loop; only
// ReadLoop reads.
type WebSocket struct {
	*websocket.Conn
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func NewWebSocket(parent context.Context, conn *websocket.Conn, opts Options, log *slog.Logger) *WebSocket {
	ctx, cancel := context.WithCancel(parent)
	return &WebSocket{Conn: conn, opts: opts, ctx: ctx, cancel: cancel, log: log}
}

func (w *WebSocket) Done() <-chan struct{} { return w.ctx.Done() }

func (w *WebSocket) WriteMessage(data []byte) error {
	w.Conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) Ping() error {
	return w.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.opts.WriteTimeout))
}

// ReadLoop blocks until the peer goes away or the socket is closed, handing
// every non-empty frame to onMsg in arrival order.
func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	// Ensure cleanup happens when the loop breaks
	defer w.Close()

	w.Conn.SetReadLimit(w.opts.ReadLimit)
	if w.opts.PongWait > 0 {
		w.Conn.SetReadDeadline(time.Now().Add(w.opts.PongWait))
		w.Conn.SetPongHandler(func(string) error {
			return w.Conn.SetReadDeadline(time.Now().Add(w.opts.PongWait))
		})
	}

	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				w.log.Warn("ws - read loop - unexpected close", "err", err)
			}
			return
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}

func (w *WebSocket) Close() {
	w.cancel()
	_ = w.Conn.Close()
}
