package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/chat-server/models"
)

func TestRegistryRegisterFirstConnection(t *testing.T) {
	r := NewRegistry()

	first := r.Register(newFakeConn("c1", "alice", "Alice"))
	assert.True(t, first)

	first = r.Register(newFakeConn("c2", "alice", "Alice"))
	assert.False(t, first, "second device must not report first")

	assert.Len(t, r.ConnectionsFor("alice"), 2)
}

func TestRegistryUnregisterReportsLast(t *testing.T) {
	r := NewRegistry()
	r.Register(newFakeConn("c1", "alice", "Alice"))
	r.Register(newFakeConn("c2", "alice", "Alice"))

	userID, last := r.Unregister("c1")
	assert.Equal(t, "alice", userID)
	assert.False(t, last)
	assert.Len(t, r.ConnectionsFor("alice"), 1)

	userID, last = r.Unregister("c2")
	assert.Equal(t, "alice", userID)
	assert.True(t, last)
	assert.Empty(t, r.ConnectionsFor("alice"))
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	userID, last := r.Unregister("never-registered")
	assert.Empty(t, userID)
	assert.False(t, last)
}

func TestRegistrySendToUserAddressesAllDevices(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "bob", "Bob")
	c2 := newFakeConn("c2", "bob", "Bob")
	other := newFakeConn("c3", "carol", "Carol")
	r.Register(c1)
	r.Register(c2)
	r.Register(other)

	reached := r.SendToUser("bob", models.NewEvent("typing", models.TypingEvent{UserID: "alice"}))
	assert.Equal(t, 2, reached)
	require.Len(t, c1.eventsNamed("typing"), 1)
	require.Len(t, c2.eventsNamed("typing"), 1)
	assert.Empty(t, other.events)

	assert.Zero(t, r.SendToUser("nobody", models.NewEvent("typing", nil)))
}

func TestRegistryBroadcastExcept(t *testing.T) {
	r := NewRegistry()
	alice := newFakeConn("c1", "alice", "Alice")
	bob1 := newFakeConn("c2", "bob", "Bob")
	bob2 := newFakeConn("c3", "bob", "Bob")
	r.Register(alice)
	r.Register(bob1)
	r.Register(bob2)

	r.BroadcastExcept("bob", models.NewEvent("online_user", models.OnlineUserEvent{UserID: "bob"}))

	assert.Len(t, alice.eventsNamed("online_user"), 1)
	assert.Empty(t, bob1.events)
	assert.Empty(t, bob2.events)
}
