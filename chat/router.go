package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/campushq/chat-server/models"
	"github.com/campushq/chat-server/store"
)

// Router validates, persists and fans a chat message out to the recipient's
// live connections, echoing a confirmation to the sender. It also owns the
// sender-only delete path.
type Router struct {
	store    store.Store
	registry *Registry
	notifier *Notifier
	journal  Journal

	sent      metric.Int64Counter
	delivered metric.Int64Counter
	sendTime  metric.Float64Histogram
}

func NewRouter(st store.Store, registry *Registry, notifier *Notifier, journal Journal) *Router {
	meter := otel.Meter("chat-server")
	sent, _ := meter.Int64Counter("messages_sent_total",
		metric.WithDescription("Messages persisted and routed"))
	delivered, _ := meter.Int64Counter("messages_delivered_total",
		metric.WithDescription("Live deliveries to recipient connections"))
	sendTime, _ := meter.Float64Histogram("message_send_duration_seconds",
		metric.WithDescription("End-to-end send handling time"),
		metric.WithUnit("s"))
	return &Router{
		store:     st,
		registry:  registry,
		notifier:  notifier,
		journal:   journal,
		sent:      sent,
		delivered: delivered,
		sendTime:  sendTime,
	}
}

// Send persists and routes one message from the origin connection.
// Persistence failure aborts the whole operation; an unreachable recipient
// is not an error, it is what the notification fallback exists for.
func (r *Router) Send(ctx context.Context, origin Conn, p models.SendMessagePayload) error {
	start := time.Now()
	defer func() {
		r.sendTime.Record(ctx, time.Since(start).Seconds())
	}()

	if p.RecipientID == "" {
		return fmt.Errorf("%w: recipient_id is required", models.ErrValidation)
	}
	msg := &models.Message{
		ID:          uuid.NewString(),
		SenderID:    origin.UserID(),
		RecipientID: p.RecipientID,
		Content:     p.Content,
		Attachments: p.Attachments,
		SentAt:      time.Now().UTC(),
	}
	if msg.Empty() {
		return fmt.Errorf("%w: message must carry content or attachments", models.ErrValidation)
	}
	if msg.Attachments == nil {
		msg.Attachments = []models.Attachment{}
	}

	if err := r.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	r.sent.Add(ctx, 1)
	r.journal.Publish(ctx, SubjectMessageSent, msg)

	evt := models.MessageEvent{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		SenderName:  origin.Name(),
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		Attachments: msg.Attachments,
		IsRead:      msg.IsRead,
		SentAt:      msg.SentAt,
	}

	reached := r.registry.SendToUser(msg.RecipientID, models.NewEvent(models.EventMessage, evt))
	r.delivered.Add(ctx, int64(reached), metric.WithAttributes(
		attribute.Bool("live", reached > 0)))

	// Echo to the originating connection only, carrying the client's temp
	// id so it can reconcile its optimistic copy.
	echo := evt
	echo.IsOwnMessage = true
	echo.TempID = p.TempID
	origin.Send(models.NewEvent(models.EventMessage, echo))

	// Always runs: live delivery above does not exempt the recipient's
	// other devices from needing a notification.
	if _, err := r.notifier.NotifyMessage(ctx, msg, origin.Name()); err != nil {
		slog.Warn("notification fallback failed", "message_id", msg.ID,
			"recipient", msg.RecipientID, "error", err)
	}
	return nil
}

// Delete removes a message on behalf of its sender, cascades to any
// associated notifications and pushes a delete event to the recipient.
func (r *Router) Delete(ctx context.Context, origin Conn, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("%w: message_id is required", models.ErrValidation)
	}
	msg, err := r.store.FindMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: cannot delete this message", models.ErrUnauthorized)
		}
		return fmt.Errorf("find message: %w", err)
	}
	if msg.SenderID != origin.UserID() {
		return fmt.Errorf("%w: cannot delete this message", models.ErrUnauthorized)
	}

	if err := r.store.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if _, err := r.store.DeleteNotificationsByRelatedID(ctx, messageID); err != nil {
		slog.Warn("notification cleanup failed", "message_id", messageID, "error", err)
	}

	evt := models.DeleteEvent{
		MessageID: messageID,
		DeletedBy: origin.UserID(),
		DeletedAt: time.Now().UTC(),
	}
	r.journal.Publish(ctx, SubjectMessageDeleted, evt)
	r.registry.SendToUser(msg.RecipientID, models.NewEvent(models.EventDelete, evt))

	confirm := evt
	confirm.Confirmed = true
	origin.Send(models.NewEvent(models.EventDelete, confirm))
	return nil
}
