package chat

import (
	"github.com/campushq/chat-server/store"
)

// Core wires the realtime components together around one registry instance.
// It is constructed once at startup and injected into the transport layer;
// nothing in this package is ambient global state.
type Core struct {
	Registry *Registry
	Presence *Tracker
	Router   *Router
	Notifier *Notifier
	Receipts *Receipts
	Typing   *Typing
}

func NewCore(st store.Store, journal Journal) *Core {
	if journal == nil {
		journal = NopJournal{}
	}
	registry := NewRegistry()
	presence := NewTracker(registry, journal)
	notifier := NewNotifier(st, registry, presence, journal)
	return &Core{
		Registry: registry,
		Presence: presence,
		Router:   NewRouter(st, registry, notifier, journal),
		Notifier: notifier,
		Receipts: NewReceipts(st, registry, journal),
		Typing:   NewTyping(registry),
	}
}

// Connect registers a live connection and derives the presence transition.
func (c *Core) Connect(conn Conn) {
	first := c.Registry.Register(conn)
	c.Presence.HandleConnect(conn.UserID(), first)
}

// Disconnect removes exactly the given connection; only when it was the
// user's last does presence transition to offline.
func (c *Core) Disconnect(connID string) {
	userID, last := c.Registry.Unregister(connID)
	if userID == "" {
		return
	}
	c.Presence.HandleDisconnect(userID, last)
}
