package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/chat-server/models"
)

func seedMessage(core *Core, t *testing.T, sender, recipient, content string) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:          "msg-" + sender + "-" + recipient,
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		SentAt:      time.Now().UTC(),
	}
	require.NoError(t, core.Router.store.CreateMessage(context.Background(), msg))
	return msg
}

func TestNotifierIdempotentCreate(t *testing.T) {
	core, st := newTestCore(t)
	msg := seedMessage(core, t, "alice", "bob", "hi")

	created, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)
	assert.False(t, created, "second call must reuse the existing notification")

	unread, err := st.UnreadNotifications(context.Background(), "bob", 50)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func TestNotifierSuppressedOnlyWhenOnline(t *testing.T) {
	core, st := newTestCore(t)
	bob := newFakeConn("b1", "bob", "Bob")
	core.Connect(bob) // bob is online

	msg := seedMessage(core, t, "alice", "bob", "hi")
	created, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)
	assert.False(t, created)

	// Connected but viewing another conversation still gets a notification.
	core.Presence.LeaveChat("bob", "Bob")
	require.Equal(t, models.StatusActive, core.Presence.Status("bob"))

	created, err = core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)
	assert.True(t, created)

	unread, err := st.UnreadNotifications(context.Background(), "bob", 50)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func TestNotifierPushesUnreadCountToLiveConnections(t *testing.T) {
	core, _ := newTestCore(t)
	bob := newFakeConn("b1", "bob", "Bob")
	core.Connect(bob)
	core.Presence.LeaveChat("bob", "Bob")
	bob.reset()

	msg := seedMessage(core, t, "alice", "bob", "hi")
	_, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)

	require.Len(t, bob.eventsNamed(models.EventNewNotification), 1)
	evt := decode[models.NewNotificationEvent](t, bob.eventsNamed(models.EventNewNotification)[0])
	assert.Equal(t, 1, evt.Count)
}

func TestNotifierTruncatesPreview(t *testing.T) {
	core, st := newTestCore(t)
	long := strings.Repeat("x", 500)
	msg := seedMessage(core, t, "alice", "bob", long)

	_, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)

	unread, err := st.UnreadNotifications(context.Background(), "bob", 50)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Len(t, unread[0].Metadata.MessagePreview, 100)
}

func TestNotifierMetadataSnapshot(t *testing.T) {
	core, st := newTestCore(t)
	msg := seedMessage(core, t, "alice", "bob", "hello there")

	_, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)

	unread, err := st.UnreadNotifications(context.Background(), "bob", 50)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "alice", unread[0].Metadata.SenderID)
	assert.Equal(t, "Alice", unread[0].Metadata.SenderName)
	assert.Equal(t, "hello there", unread[0].Metadata.MessagePreview)
}

func TestGetNotificationsAnswersOrigin(t *testing.T) {
	core, _ := newTestCore(t)
	msg := seedMessage(core, t, "alice", "bob", "hi")
	_, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)

	bob := newFakeConn("b1", "bob", "Bob")
	require.NoError(t, core.Notifier.GetNotifications(context.Background(), bob))

	require.Len(t, bob.eventsNamed(models.EventNotifications), 1)
	evt := decode[models.NotificationsEvent](t, bob.eventsNamed(models.EventNotifications)[0])
	assert.Equal(t, 1, evt.Count)
	require.Len(t, evt.Notifications, 1)
	assert.Equal(t, msg.ID, evt.Notifications[0].RelatedID)
}

func TestMarkNotificationsReadScopedToOwner(t *testing.T) {
	core, st := newTestCore(t)
	msg := seedMessage(core, t, "alice", "bob", "hi")
	_, err := core.Notifier.NotifyMessage(context.Background(), msg, "Alice")
	require.NoError(t, err)

	unread, err := st.UnreadNotifications(context.Background(), "bob", 50)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	id := unread[0].ID

	// A different user cannot mark bob's notification.
	mallory := newFakeConn("m1", "mallory", "Mallory")
	require.NoError(t, core.Notifier.MarkNotificationsRead(context.Background(), mallory, []string{id}))
	unread, _ = st.UnreadNotifications(context.Background(), "bob", 50)
	assert.Len(t, unread, 1)

	bob := newFakeConn("b1", "bob", "Bob")
	require.NoError(t, core.Notifier.MarkNotificationsRead(context.Background(), bob, []string{id}))
	unread, _ = st.UnreadNotifications(context.Background(), "bob", 50)
	assert.Empty(t, unread)

	require.Len(t, bob.eventsNamed(models.EventNotificationsMarkedRead), 1)
	confirm := decode[models.NotificationsMarkedReadEvent](t, bob.eventsNamed(models.EventNotificationsMarkedRead)[0])
	assert.True(t, confirm.Confirmed)
}
