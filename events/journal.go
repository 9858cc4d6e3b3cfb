// Package events mirrors the hub's externally visible events onto a NATS
// JetStream stream so out-of-process consumers (persisters, analytics,
// future gateways) can replay them. Live delivery never depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Journal publishes events to a JetStream stream. The zero value is not
// usable; construct with NewJournal.
type Journal struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewJournal connects to NATS and ensures the stream exists.
func NewJournal(natsURL, streamName string) (*Journal, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("chat-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "Realtime chat event journal",
		Subjects:    []string{"chat.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %q: %w", streamName, err)
	}
	slog.Info("event journal ready", "stream", streamName)

	return &Journal{nc: nc, js: js}, nil
}

// Publish mirrors one event onto the stream. Failures are logged and
// swallowed: the journal is an observer of delivery, not a participant.
func (j *Journal) Publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("journal marshal failed", "subject", subject, "error", err)
		return
	}
	if _, err := j.js.Publish(ctx, subject, data); err != nil {
		slog.Warn("journal publish failed", "subject", subject, "error", err)
	}
}

// Close drains the NATS connection.
func (j *Journal) Close() {
	if j.nc != nil {
		j.nc.Drain()
	}
}
