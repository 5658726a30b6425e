// internal/coordinator/registry.go
package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mapwars/mapwars/internal/game"
)

// Entry is the coordinator's back-reference to a lobby: its type and which
// worker owns it. The owning worker holds the session itself.
type Entry struct {
	Type   game.GameType
	Worker int
}

// Registry tracks every open lobby known to the coordinator across all
// workers. Entries are added when the scheduler creates a lobby and removed
// when reconciliation finds the lobby gone, expired, full, or unreachable.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]Entry)}
}

// Add tracks a lobby.
func (r *Registry) Add(id uuid.UUID, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = e
}

// Remove drops a lobby.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Get returns the entry for id.
func (r *Registry) Get(id uuid.UUID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Snapshot returns a copy of the current tracking table.
func (r *Registry) Snapshot() map[uuid.UUID]Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]Entry, len(r.entries))
	for id, e := range r.entries {
		out[id] = e
	}
	return out
}

// Len returns the number of tracked lobbies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
