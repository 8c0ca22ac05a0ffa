package core

import (
	"sync"

	"github.com/lanchat/lanchat-server/internal/store"
)

// GroupRegistry caches group membership for routing. It is a lock domain of
// its own, independent from the session registry. Membership is immutable
// after creation.
type GroupRegistry struct {
	mu     sync.RWMutex
	groups map[string]store.Group
}

// NewGroupRegistry constructs an empty registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{groups: make(map[string]store.Group)}
}

// Warm loads persisted groups, typically once at boot, so group traffic
// keeps routing across server restarts.
func (r *GroupRegistry) Warm(groups []store.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range groups {
		r.groups[g.GroupID] = g
	}
}

// Put registers a freshly created group.
func (r *GroupRegistry) Put(g store.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.GroupID] = g
}

// Get returns the group for id.
func (r *GroupRegistry) Get(id string) (store.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	return g, ok
}

// Remove forgets a group; used to roll back when persisting fails.
func (r *GroupRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
}

// Len returns the number of known groups.
func (r *GroupRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
