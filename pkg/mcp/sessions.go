package mcp

import (
	"slices"
	"sync"
)

// WatchRegistry maps document IDs to the MCP sessions following them.
// Populated when a client saves a document or loads it with watch set.
type WatchRegistry struct {
	mu       sync.RWMutex
	watchers map[string]map[string]struct{} // documentID → sessionIDs
}

// NewWatchRegistry creates a new empty WatchRegistry.
func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{watchers: make(map[string]map[string]struct{})}
}

// Register adds sessionID to the watchers of documentID.
func (r *WatchRegistry) Register(documentID, sessionID string) {
	if documentID == "" || sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.watchers[documentID]
	if !ok {
		set = make(map[string]struct{})
		r.watchers[documentID] = set
	}
	set[sessionID] = struct{}{}
}

// SessionsFor returns the sessions watching documentID, sorted.
func (r *WatchRegistry) SessionsFor(documentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.watchers[documentID]
	out := make([]string, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	slices.Sort(out)
	return out
}

// Forget drops every watcher of documentID.
func (r *WatchRegistry) Forget(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watchers, documentID)
}

// Remove deletes sessionID from every document.
// Called when a session disconnects.
func (r *WatchRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for docID, set := range r.watchers {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(r.watchers, docID)
		}
	}
}
