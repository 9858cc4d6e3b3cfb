package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/campushq/chat-server/models"
	"github.com/campushq/chat-server/store"
)

// Receipts marks messages and their notifications read in bulk and informs
// the original senders. Ids that do not belong to the reader are silently
// skipped: a reader cannot mark someone else's inbound message as read, and
// partial application is reported through counts, not errors.
type Receipts struct {
	store    store.Store
	registry *Registry
	journal  Journal

	marked metric.Int64Counter
}

func NewReceipts(st store.Store, registry *Registry, journal Journal) *Receipts {
	meter := otel.Meter("chat-server")
	marked, _ := meter.Int64Counter("messages_marked_read_total",
		metric.WithDescription("Messages flipped to read"))
	return &Receipts{store: st, registry: registry, journal: journal, marked: marked}
}

// MarkRead applies a bulk read update for the reader and emits a per-message
// read event to each affected sender. Senders track read state per message
// id, so this is deliberately not a single bulk event.
func (rc *Receipts) MarkRead(ctx context.Context, origin Conn, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return fmt.Errorf("%w: message_ids is required", models.ErrValidation)
	}
	now := time.Now().UTC()

	affected, res, err := rc.store.MarkMessagesRead(ctx, messageIDs, origin.UserID(), now)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	rc.marked.Add(ctx, res.Modified)

	// Keep unread counts consistent across the two persisted entities
	// without a schema-level cascade.
	if _, err := rc.store.MarkMessageNotificationsRead(ctx, messageIDs, origin.UserID(), now); err != nil {
		slog.Warn("notification read sync failed", "reader", origin.UserID(), "error", err)
	}

	for _, msg := range affected {
		if msg.SenderID == origin.UserID() {
			continue
		}
		evt := models.ReadEvent{
			MessageID:  msg.ID,
			ReadBy:     origin.UserID(),
			ReadByName: origin.Name(),
			ReadAt:     now,
		}
		rc.journal.Publish(ctx, SubjectMessageRead, evt)
		rc.registry.SendToUser(msg.SenderID, models.NewEvent(models.EventRead, evt))
	}

	origin.Send(models.NewEvent(models.EventRead, models.ReadConfirmEvent{
		MessageIDs: messageIDs,
		Matched:    res.Matched,
		Modified:   res.Modified,
		Confirmed:  true,
	}))
	return nil
}
