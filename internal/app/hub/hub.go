package hub

import (
	"sync"

	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/domain"
)

type entry struct {
	conn    contracts.Connection
	session *domain.Session
}

// Hub is the table of open connections. Every connection gets a session in
// the Anonymous state when it is attached.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]entry
}

var _ contracts.ConnectionTable = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		conns: make(map[domain.ConnectionID]entry),
	}
}

// Attach is idempotent for an already attached connection.
func (h *Hub) Attach(c contracts.Connection) *domain.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.conns[c.ID()]; ok {
		return e.session
	}
	s := domain.NewSession(c.ID())
	h.conns[c.ID()] = entry{conn: c, session: s}
	return s
}

func (h *Hub) Detach(connID domain.ConnectionID) (contracts.Connection, *domain.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.conns[connID]
	if !ok {
		return nil, nil, false
	}
	delete(h.conns, connID)
	return e.conn, e.session, true
}

func (h *Hub) Get(connID domain.ConnectionID) (contracts.Connection, *domain.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.conns[connID]
	if !ok {
		return nil, nil, false
	}
	return e.conn, e.session, true
}

func (h *Hub) All() []contracts.Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]contracts.Connection, 0, len(h.conns))
	for _, e := range h.conns {
		out = append(out, e.conn)
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
