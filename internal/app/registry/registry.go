package registry

import (
	"sort"
	"sync"

	"chatrelay/internal/core/contracts"
	"chatrelay/internal/core/domain"
)

// Registry maps each identity to the connection that last announced it.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.Identity]domain.ConnectionID // identity → conn_id
}

var _ contracts.PresenceRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.Identity]domain.ConnectionID),
	}
}

func (r *Registry) Register(identity domain.Identity, connID domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[identity] = connID
}

func (r *Registry) RegisterIfOpen(identity domain.Identity, connID domain.ConnectionID, open func() bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if open != nil && !open() {
		return false
	}
	r.entries[identity] = connID
	return true
}

func (r *Registry) Lookup(identity domain.Identity) (domain.ConnectionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.entries[identity]
	return connID, ok
}

func (r *Registry) Remove(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, identity)
}

// RemoveByConnection scans the whole map: after a re-sign-in on one
// connection more than one identity can still point at it.
func (r *Registry) RemoveByConnection(connID domain.ConnectionID) []domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.Identity
	for identity, owner := range r.entries {
		if owner == connID {
			delete(r.entries, identity)
			removed = append(removed, identity)
		}
	}
	return removed
}

// Snapshot is ordered by identity.
func (r *Registry) Snapshot() []domain.PresenceEntry {
	r.mu.RLock()
	out := make([]domain.PresenceEntry, 0, len(r.entries))
	for identity, connID := range r.entries {
		out = append(out, domain.PresenceEntry{Identity: identity, ConnectionID: connID})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
