package contracts

import (
	"chatrelay/internal/core/domain"
)

// PresenceRegistry owns the identity -> connection mapping. It never holds
// connection objects, only their ids.
type PresenceRegistry interface {
	// Register inserts or overwrites the entry for identity.
	Register(identity domain.Identity, connID domain.ConnectionID)
	// RegisterIfOpen registers only while open reports true, checked inside the
	// registry critical section.
	RegisterIfOpen(identity domain.Identity, connID domain.ConnectionID, open func() bool) bool
	// Lookup resolves the connection currently owning identity.
	Lookup(identity domain.Identity) (domain.ConnectionID, bool)
	// Remove deletes the entry for identity. Removing an absent identity is a no-op.
	Remove(identity domain.Identity)
	// RemoveByConnection deletes every entry pointing at connID.
	RemoveByConnection(connID domain.ConnectionID) []domain.Identity
	// Snapshot returns a copy of all current entries.
	Snapshot() []domain.PresenceEntry
}

// ConnectionTable tracks the open connections and the session attached to
// each of them. It is owned by the transport side.
type ConnectionTable interface {
	Attach(c Connection) *domain.Session
	Detach(connID domain.ConnectionID) (Connection, *domain.Session, bool)
	Get(connID domain.ConnectionID) (Connection, *domain.Session, bool)
	All() []Connection
	Len() int
}

// Connection is the minimal interface the relay needs to push frames to one
// live client.
type Connection interface {
	ID() domain.ConnectionID
	// Send hands data to the outbound queue without blocking.
	Send(data []byte) error
	Close()
}
