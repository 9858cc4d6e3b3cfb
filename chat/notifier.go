package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/campushq/chat-server/config"
	"github.com/campushq/chat-server/models"
	"github.com/campushq/chat-server/store"
)

// Notifier decides, per outgoing message, whether the recipient needs a
// persisted fallback notification. A recipient is considered reachable only
// while their presence is exactly online; an active user is connected but
// looking at a different conversation and still gets one.
type Notifier struct {
	store    store.Store
	registry *Registry
	presence *Tracker
	journal  Journal

	created    metric.Int64Counter
	suppressed metric.Int64Counter
}

func NewNotifier(st store.Store, registry *Registry, presence *Tracker, journal Journal) *Notifier {
	meter := otel.Meter("chat-server")
	created, _ := meter.Int64Counter("notifications_created_total",
		metric.WithDescription("Fallback notifications persisted"))
	suppressed, _ := meter.Int64Counter("notifications_suppressed_total",
		metric.WithDescription("Notifications skipped because the recipient was online"))
	return &Notifier{
		store:      st,
		registry:   registry,
		presence:   presence,
		journal:    journal,
		created:    created,
		suppressed: suppressed,
	}
}

// NotifyMessage runs the fallback path for a freshly persisted message. It
// is invoked on every send regardless of live-delivery outcome: delivery to
// one device does not exempt the recipient's other devices from a
// notification. Returns whether a notification was newly created.
func (n *Notifier) NotifyMessage(ctx context.Context, msg *models.Message, senderName string) (bool, error) {
	if n.presence.Status(msg.RecipientID) == models.StatusOnline {
		n.suppressed.Add(ctx, 1)
		return false, nil
	}

	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    msg.RecipientID,
		Type:      models.NotificationMessage,
		RelatedID: msg.ID,
		CreatedAt: time.Now().UTC(),
		Metadata: models.NotificationMetadata{
			SenderID:       msg.SenderID,
			SenderName:     senderName,
			MessagePreview: truncate(msg.Content, config.PreviewLength),
			CreatedAt:      time.Now().UTC(),
		},
	}

	// The store makes this an atomic insert-if-absent, so two concurrent
	// sends racing on the same message cannot duplicate.
	saved, createdNow, err := n.store.CreateNotificationIfAbsent(ctx, notification)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	if !createdNow {
		return false, nil
	}

	n.created.Add(ctx, 1, metric.WithAttributes(attribute.String("type", saved.Type)))
	n.journal.Publish(ctx, SubjectNotificationCreated, saved)

	// Covers the multi-device case: one device may be inside the
	// conversation while another sits on the inbox screen.
	n.pushUnreadCount(ctx, msg.RecipientID)
	return true, nil
}

// pushUnreadCount sends a lightweight unread-count-changed signal to any of
// the user's live connections. Failures to count are swallowed; the client
// will learn the real count on its next fetch.
func (n *Notifier) pushUnreadCount(ctx context.Context, userID string) {
	unread, err := n.store.UnreadNotifications(ctx, userID, config.UnreadNotificationLimit)
	if err != nil {
		return
	}
	n.registry.SendToUser(userID, models.NewEvent(models.EventNewNotification,
		models.NewNotificationEvent{Count: len(unread)}))
}

// GetNotifications answers a get_notifications request on the origin
// connection with the user's unread notifications, newest first.
func (n *Notifier) GetNotifications(ctx context.Context, origin Conn) error {
	unread, err := n.store.UnreadNotifications(ctx, origin.UserID(), config.UnreadNotificationLimit)
	if err != nil {
		return fmt.Errorf("get notifications: %w", err)
	}
	if unread == nil {
		unread = []models.Notification{}
	}
	origin.Send(models.NewEvent(models.EventNotifications, models.NotificationsEvent{
		Notifications: unread,
		Count:         len(unread),
	}))
	return nil
}

// MarkNotificationsRead bulk-marks the user's own notifications read and
// confirms to the origin connection. Ids owned by other users are skipped.
func (n *Notifier) MarkNotificationsRead(ctx context.Context, origin Conn, ids []string) error {
	if _, err := n.store.MarkNotificationsRead(ctx, ids, origin.UserID(), time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	origin.Send(models.NewEvent(models.EventNotificationsMarkedRead,
		models.NotificationsMarkedReadEvent{NotificationIDs: ids, Confirmed: true}))
	return nil
}

// truncate bounds a preview without splitting a multibyte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
