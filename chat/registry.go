// Package chat is the realtime presence and messaging core: connection
// registry, presence tracking, message routing, notification fallback,
// read receipts and typing relay. Everything here is process-local; the
// persistent side lives behind store.Store.
package chat

import (
	"sync"

	"github.com/campushq/chat-server/models"
)

// Conn is one live transport session between a client and this process.
// Send must be best-effort and non-blocking; the websocket client buffers
// and drops rather than stalling a caller.
type Conn interface {
	ID() string
	UserID() string
	Name() string
	Send(evt models.Event)
}

// Registry is the bidirectional mapping between user ids and their open
// connections. A user may be connected from several devices at once, so
// every addressing decision goes through ConnectionsFor rather than
// assuming one socket per user.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn            // connection id -> conn
	users map[string]map[string]Conn // user id -> connection id -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		users: make(map[string]map[string]Conn),
	}
}

// Register adds a connection and reports whether it is the user's first.
func (r *Registry) Register(c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID()] = c
	set := r.users[c.UserID()]
	if set == nil {
		set = make(map[string]Conn)
		r.users[c.UserID()] = set
	}
	set[c.ID()] = c
	return len(set) == 1
}

// Unregister removes exactly the given connection and reports the owning
// user and whether it was their last connection. Unknown ids are a no-op:
// absence of entries is a normal state here, never an error.
func (r *Registry) Unregister(connID string) (userID string, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	delete(r.conns, connID)
	userID = c.UserID()
	if set, ok := r.users[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.users, userID)
			return userID, true
		}
	}
	return userID, false
}

// ConnectionsFor returns the user's live connections, possibly empty.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	if len(set) == 0 {
		return nil
	}
	conns := make([]Conn, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// SendToUser pushes an event to every live connection of the user and
// returns how many connections it reached.
func (r *Registry) SendToUser(userID string, evt models.Event) int {
	conns := r.ConnectionsFor(userID)
	for _, c := range conns {
		c.Send(evt)
	}
	return len(conns)
}

// Broadcast pushes an event to every connection in the process.
func (r *Registry) Broadcast(evt models.Event) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	for _, c := range conns {
		c.Send(evt)
	}
}

// BroadcastExcept pushes an event to every connection not owned by userID.
func (r *Registry) BroadcastExcept(userID string, evt models.Event) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		if c.UserID() != userID {
			conns = append(conns, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range conns {
		c.Send(evt)
	}
}
