// Package presence tracks which connections are live right now. The
// registry is process-wide, purely in-memory, and rebuilt from nothing on
// restart; it is the source of truth for actual connectivity, while the
// session store holds the declared presence list.
package presence

import "sync"

// Record ties a live connection to its user and room.
type Record struct {
	ConnID   string
	UserID   string
	Username string
	RoomID   string
	Color    string
}

// Registry maps connection ids to records and rooms to their live
// connection sets. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Record
	rooms map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Record),
		rooms: make(map[string]map[string]struct{}),
	}
}

// RecordJoin registers a live connection and adds it to its room's
// membership set.
func (r *Registry) RecordJoin(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[rec.ConnID] = rec
	if r.rooms[rec.RoomID] == nil {
		r.rooms[rec.RoomID] = make(map[string]struct{})
	}
	r.rooms[rec.RoomID][rec.ConnID] = struct{}{}
}

// RecordLeave removes a connection and returns its record. The second
// return is false when the connection was never joined or already left,
// which makes disconnect handling idempotent. The room's membership set is
// kept (possibly empty) until the sweeper drops it.
func (r *Registry) RecordLeave(connID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return Record{}, false
	}
	delete(r.conns, connID)
	if members, ok := r.rooms[rec.RoomID]; ok {
		delete(members, connID)
	}
	return rec, true
}

// Lookup returns the record for a live connection.
func (r *Registry) Lookup(connID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.conns[connID]
	return rec, ok
}

// ConnectionsOf returns the ids of all connections joined to a room.
func (r *Registry) ConnectionsOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// LiveUserIDsOf returns the distinct userIds with at least one live
// connection in the room.
func (r *Registry) LiveUserIDsOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for connID := range r.rooms[roomID] {
		rec, ok := r.conns[connID]
		if !ok {
			continue
		}
		if _, dup := seen[rec.UserID]; dup {
			continue
		}
		seen[rec.UserID] = struct{}{}
		out = append(out, rec.UserID)
	}
	return out
}

// HasOtherLiveConnection reports whether userID still has a connection in
// the room other than excludeConnID. Used on disconnect to keep multi-tab
// users from flickering out of the presence list.
func (r *Registry) HasOtherLiveConnection(userID, roomID, excludeConnID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID := range r.rooms[roomID] {
		if connID == excludeConnID {
			continue
		}
		if rec, ok := r.conns[connID]; ok && rec.UserID == userID {
			return true
		}
	}
	return false
}

// Rooms returns a snapshot of every known room and its live connections.
func (r *Registry) Rooms() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.rooms))
	for roomID, members := range r.rooms {
		connIDs := make([]string, 0, len(members))
		for connID := range members {
			connIDs = append(connIDs, connID)
		}
		out[roomID] = connIDs
	}
	return out
}

// DropRoom deletes a room's membership set. Only called for rooms whose
// set is empty.
func (r *Registry) DropRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[roomID]; ok && len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
