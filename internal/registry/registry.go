// Package registry holds the presence state of every live connection.
package registry

import (
	"sync"

	"github.com/mossy-p/meet-signaling/internal/models"
)

// Registry maps connection ids to their presence. The relay worker is the only
// writer; the lock exists so HTTP snapshots can read it from other goroutines.
type Registry struct {
	mu      sync.RWMutex
	entries map[models.ConnectionID]models.Presence
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[models.ConnectionID]models.Presence),
	}
}

// Connect inserts the default presence for a new connection.
func (r *Registry) Connect(id models.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = models.NewPresence()
}

// Disconnect removes the entry. Removing an unknown id is a no-op.
func (r *Registry) Disconnect(id models.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Get returns the presence of id and whether it is registered.
func (r *Registry) Get(id models.ConnectionID) (models.Presence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	return p, ok
}

// Put replaces (or creates) the entry for id.
func (r *Registry) Put(id models.ConnectionID, p models.Presence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = p
}

// Update applies fn to an existing entry and returns the result.
// It reports false and leaves the registry untouched when id is unknown.
func (r *Registry) Update(id models.ConnectionID, fn func(*models.Presence)) (models.Presence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok {
		return models.Presence{}, false
	}
	fn(&p)
	r.entries[id] = p
	return p, true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
