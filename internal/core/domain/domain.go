package domain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionID is assigned by the transport when a connection is accepted
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (id ConnectionID) String() string { return string(id) }

// Identity is the externally authenticated user name a client announces.
// The relay treats it as opaque.
type Identity string

func (i Identity) String() string { return string(i) }

// UnmarshalJSON accepts numeric ids as well, some clients send database ids
// without quoting them.
func (i *Identity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*i = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*i = Identity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identity must be a string or a number: %w", err)
	}
	*i = Identity(n.String())
	return nil
}

// PresenceEntry pairs an identity with the connection currently owning it
type PresenceEntry struct {
	Identity     Identity     `json:"id"`
	ConnectionID ConnectionID `json:"connection_id"`
}

// DirectedMessage is a message addressed to exactly one identity
type DirectedMessage struct {
	Sender  Identity
	Target  Identity
	Payload []byte
	Path    string // attachment reference, forwarded untouched
	IsImage bool
}

type SessionState int

const (
	StateAnonymous SessionState = iota
	StateIdentified
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the per-connection state the lifecycle manager drives:
// Anonymous -> Identified -> Closed.
type Session struct {
	mu          sync.RWMutex
	connID      ConnectionID
	state       SessionState
	identity    Identity
	greeted     bool
	ConnectedAt time.Time
}

func NewSession(connID ConnectionID) *Session {
	return &Session{
		connID:      connID,
		state:       StateAnonymous,
		ConnectedAt: time.Now(),
	}
}

func (s *Session) ConnectionID() ConnectionID { return s.connID }

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the bound identity and whether the session is Identified.
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == StateIdentified
}

func (s *Session) IsOpen() bool {
	return s.State() != StateClosed
}

// Bind moves the session to Identified. It reports false once closed.
func (s *Session) Bind(identity Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.identity = identity
	s.state = StateIdentified
	return true
}

// Unbind drops the identity and returns to Anonymous.
func (s *Session) Unbind() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdentified {
		return "", false
	}
	prev := s.identity
	s.identity = ""
	s.state = StateAnonymous
	return prev, true
}

// Close is terminal. It reports false if the session was already closed.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	return true
}

// MarkGreeted reports true only for the first call on an open session.
func (s *Session) MarkGreeted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.greeted || s.state == StateClosed {
		return false
	}
	s.greeted = true
	return true
}
