package chat

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/campushq/chat-server/models"
)

// Typing relays start/stop typing signals to a single recipient. Stateless,
// unpersisted and unacknowledged: losing a stop event is cosmetically wrong
// but never a correctness bug.
type Typing struct {
	registry *Registry

	relayed metric.Int64Counter
}

func NewTyping(registry *Registry) *Typing {
	meter := otel.Meter("chat-server")
	relayed, _ := meter.Int64Counter("typing_relayed_total",
		metric.WithDescription("Typing signals relayed"))
	return &Typing{registry: registry, relayed: relayed}
}

// Relay addresses all of the recipient's live connections. A missing
// recipient id is a no-op, not an error.
func (t *Typing) Relay(sender Conn, p models.TypingPayload) {
	if p.RecipientID == "" {
		return
	}
	t.registry.SendToUser(p.RecipientID, models.NewEvent(models.EventTyping, models.TypingEvent{
		UserID:    sender.UserID(),
		UserName:  sender.Name(),
		Status:    p.Status,
		Timestamp: time.Now(),
	}))
	t.relayed.Add(context.Background(), 1)
}
