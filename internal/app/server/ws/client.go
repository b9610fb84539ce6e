package ws

import (
	"context"
	"sync"
	"time"

	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/domain"
)

// RuntimeClient is the transport-side handle for one live connection. Frames
// queued through Send are written in FIFO order by a single write loop.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	id     domain.ConnectionID
	out    chan []byte
	once   sync.Once
}

var _ contracts.Connection = (*RuntimeClient)(nil)

func NewClient(
	parent context.Context,
	ws *WebSocket,
	id domain.ConnectionID,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		id:     id,
		out:    make(chan []byte, ws.opts.SendBuffer),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() domain.ConnectionID { return c.id }

// Send never blocks. A full queue drops the frame.
func (c *RuntimeClient) Send(data []byte) error {
	if c.ctx.Err() != nil {
		return domain.ErrConnectionClosed
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
		return domain.ErrSendQueueFull
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	var ping <-chan time.Time
	if c.ws.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.ws.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.ws.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				return
			}
		case <-ping:
			if err := c.ws.Ping(); err != nil {
				return
			}
		}
	}
}
