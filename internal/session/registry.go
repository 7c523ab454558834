// Package session maps authenticated player identities to the connection
// handles currently delivering events to them. A player may hold more than
// one handle while reconnecting, so delivery always fans out to the full
// set.
package session

import "sync"

// Handle is an opaque connection identity supplied by the gateway. The
// registry never inspects it beyond identity and map-key use, which keeps
// this package free of any transport dependency.
type Handle interface {
	ID() string
}

// Registry is a concurrency-safe player-id <-> handle-set map.
type Registry struct {
	mu          sync.RWMutex
	byPlayer    map[string]map[string]Handle
	handleOwner map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byPlayer:    make(map[string]map[string]Handle),
		handleOwner: make(map[string]string),
	}
}

// Register associates handle with playerID, adding to any existing handle
// set for that player (supports concurrent multi-device connections).
func (r *Registry) Register(playerID string, handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.handleOwner[handle.ID()]; ok && owner != playerID {
		r.removeHandleLocked(owner, handle.ID())
	}

	set, ok := r.byPlayer[playerID]
	if !ok {
		set = make(map[string]Handle)
		r.byPlayer[playerID] = set
	}
	set[handle.ID()] = handle
	r.handleOwner[handle.ID()] = playerID
}

// Unregister removes handle from whichever player owns it. It reports
// whether the owning player now has zero remaining handles, which is the
// signal the match engine uses to start a disconnect grace timer.
func (r *Registry) Unregister(handle Handle) (playerID string, nowEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.handleOwner[handle.ID()]
	if !ok {
		return "", false
	}
	r.removeHandleLocked(playerID, handle.ID())

	set := r.byPlayer[playerID]
	return playerID, len(set) == 0
}

func (r *Registry) removeHandleLocked(playerID, handleID string) {
	delete(r.handleOwner, handleID)
	if set, ok := r.byPlayer[playerID]; ok {
		delete(set, handleID)
		if len(set) == 0 {
			delete(r.byPlayer, playerID)
		}
	}
}

// HandlesFor returns every handle currently associated with playerID.
func (r *Registry) HandlesFor(playerID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.byPlayer[playerID]
	if !ok {
		return nil
	}
	out := make([]Handle, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// PlayerFor returns the player-id owning handle, if any.
func (r *Registry) PlayerFor(handle Handle) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	playerID, ok := r.handleOwner[handle.ID()]
	return playerID, ok
}

// IsConnected reports whether playerID currently holds any live handle.
func (r *Registry) IsConnected(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byPlayer[playerID]
	return ok && len(set) > 0
}

// HandleCount reports how many connection handles are registered across all
// players.
func (r *Registry) HandleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handleOwner)
}
