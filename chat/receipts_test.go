package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/chat-server/models"
)

func TestMarkReadRoundTrip(t *testing.T) {
	core, st := newTestCore(t)
	alice := newFakeConn("a1", "alice", "Alice")
	core.Connect(alice)

	// Bob is offline, so the send also produces a notification.
	require.NoError(t, core.Router.Send(context.Background(), alice, models.SendMessagePayload{
		RecipientID: "bob",
		Content:     "hi",
	}))
	echo := decode[models.MessageEvent](t, alice.eventsNamed(models.EventMessage)[0])
	alice.reset()

	bob := newFakeConn("b1", "bob", "Bob")
	core.Connect(bob)
	alice.reset()

	require.NoError(t, core.Receipts.MarkRead(context.Background(), bob, []string{echo.ID}))

	msg, err := st.FindMessageByID(context.Background(), echo.ID)
	require.NoError(t, err)
	assert.True(t, msg.IsRead)
	require.NotNil(t, msg.ReadAt)

	unread, err := st.UnreadNotifications(context.Background(), "bob", 50)
	require.NoError(t, err)
	assert.Empty(t, unread, "associated notification must be marked read too")

	// Sender gets a per-message read event.
	require.Len(t, alice.eventsNamed(models.EventRead), 1)
	evt := decode[models.ReadEvent](t, alice.eventsNamed(models.EventRead)[0])
	assert.Equal(t, echo.ID, evt.MessageID)
	assert.Equal(t, "bob", evt.ReadBy)
	assert.Equal(t, "Bob", evt.ReadByName)

	// Reader gets a confirmation with counts.
	require.Len(t, bob.eventsNamed(models.EventRead), 1)
	confirm := decode[models.ReadConfirmEvent](t, bob.eventsNamed(models.EventRead)[0])
	assert.True(t, confirm.Confirmed)
	assert.Equal(t, int64(1), confirm.Matched)
	assert.Equal(t, int64(1), confirm.Modified)
}

func TestMarkReadWrongReaderMatchesNothing(t *testing.T) {
	core, _ := newTestCore(t)
	alice := newFakeConn("a1", "alice", "Alice")
	core.Connect(alice)

	require.NoError(t, core.Router.Send(context.Background(), alice, models.SendMessagePayload{
		RecipientID: "bob",
		Content:     "hi",
	}))
	echo := decode[models.MessageEvent](t, alice.eventsNamed(models.EventMessage)[0])

	mallory := newFakeConn("m1", "mallory", "Mallory")
	core.Connect(mallory)
	require.NoError(t, core.Receipts.MarkRead(context.Background(), mallory, []string{echo.ID}))

	confirm := decode[models.ReadConfirmEvent](t, mallory.eventsNamed(models.EventRead)[0])
	assert.Zero(t, confirm.Matched)
	assert.Zero(t, confirm.Modified)
}

func TestMarkReadEmitsPerMessageEvents(t *testing.T) {
	core, _ := newTestCore(t)
	alice := newFakeConn("a1", "alice", "Alice")
	core.Connect(alice)

	var ids []string
	for i := 0; i < 3; i++ {
		require.NoError(t, core.Router.Send(context.Background(), alice, models.SendMessagePayload{
			RecipientID: "bob",
			Content:     "hi",
		}))
	}
	for _, evt := range alice.eventsNamed(models.EventMessage) {
		ids = append(ids, decode[models.MessageEvent](t, evt).ID)
	}
	require.Len(t, ids, 3)
	alice.reset()

	bob := newFakeConn("b1", "bob", "Bob")
	core.Connect(bob)
	alice.reset()

	require.NoError(t, core.Receipts.MarkRead(context.Background(), bob, ids))

	// Senders track read state per message id, so one event each.
	assert.Len(t, alice.eventsNamed(models.EventRead), 3)
}

func TestMarkReadAlreadyReadIsSkipped(t *testing.T) {
	core, _ := newTestCore(t)
	alice := newFakeConn("a1", "alice", "Alice")
	core.Connect(alice)

	require.NoError(t, core.Router.Send(context.Background(), alice, models.SendMessagePayload{
		RecipientID: "bob",
		Content:     "hi",
	}))
	echo := decode[models.MessageEvent](t, alice.eventsNamed(models.EventMessage)[0])

	bob := newFakeConn("b1", "bob", "Bob")
	core.Connect(bob)
	require.NoError(t, core.Receipts.MarkRead(context.Background(), bob, []string{echo.ID}))
	bob.reset()

	require.NoError(t, core.Receipts.MarkRead(context.Background(), bob, []string{echo.ID}))
	confirm := decode[models.ReadConfirmEvent](t, bob.eventsNamed(models.EventRead)[0])
	assert.Zero(t, confirm.Modified)
}

func TestMarkReadRequiresIds(t *testing.T) {
	core, _ := newTestCore(t)
	bob := newFakeConn("b1", "bob", "Bob")
	core.Connect(bob)

	err := core.Receipts.MarkRead(context.Background(), bob, nil)
	require.ErrorIs(t, err, models.ErrValidation)
}
