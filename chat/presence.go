package chat

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/campushq/chat-server/models"
)

// Tracker owns the canonical presence map. State machine per user:
//
//	offline -> online   first connection registered
//	online  -> active   leave_chat while still connected
//	active  -> online   join_chat
//	any     -> offline  last connection closed
//
// Presence is best-effort and never persisted; a restart resets everyone to
// offline until they reconnect.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*models.PresenceRecord

	registry *Registry
	journal  Journal

	transitions metric.Int64Counter
}

func NewTracker(registry *Registry, journal Journal) *Tracker {
	meter := otel.Meter("chat-server")
	transitions, _ := meter.Int64Counter("presence_transitions_total",
		metric.WithDescription("Presence state transitions"))
	return &Tracker{
		records:     make(map[string]*models.PresenceRecord),
		registry:    registry,
		journal:     journal,
		transitions: transitions,
	}
}

// Status returns the user's current presence state, offline for users the
// process has never seen.
func (t *Tracker) Status(userID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rec, ok := t.records[userID]; ok {
		return rec.Status
	}
	return models.StatusOffline
}

// Snapshot copies the full status map for the get_online_users broadcast.
func (t *Tracker) Snapshot() map[string]models.PresenceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snapshot := make(map[string]models.PresenceRecord, len(t.records))
	for id, rec := range t.records {
		snapshot[id] = *rec
	}
	return snapshot
}

func (t *Tracker) set(userID, status, viewingPeer string) {
	t.mu.Lock()
	t.records[userID] = &models.PresenceRecord{
		Status:      status,
		LastSeen:    time.Now(),
		ViewingPeer: viewingPeer,
	}
	t.mu.Unlock()

	t.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("status", status)))
	t.journal.Publish(context.Background(), SubjectPresence, models.OnlineUserEvent{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
	})
}

// broadcastMap fans the full status map out to every connected party.
// Latest state wins: a slow consumer may miss an intermediate map but sees
// the final one on the next broadcast.
func (t *Tracker) broadcastMap() {
	t.registry.Broadcast(models.NewEvent(models.EventOnlineUsers, t.Snapshot()))
}

// HandleConnect marks the user online on their first registered connection.
// Additional devices of an already-tracked user keep the existing state.
func (t *Tracker) HandleConnect(userID string, first bool) {
	if !first {
		return
	}
	t.set(userID, models.StatusOnline, "")
	t.broadcastMap()
}

// HandleDisconnect marks the user offline once their last connection closed.
func (t *Tracker) HandleDisconnect(userID string, last bool) {
	if !last {
		return
	}
	t.set(userID, models.StatusOffline, "")
	t.broadcastMap()
}

// JoinChat records that the user opened the conversation with friendID and
// tells everyone else, so independent UIs can update without refetching.
func (t *Tracker) JoinChat(userID, userName, friendID string) {
	t.set(userID, models.StatusOnline, friendID)
	t.broadcastMap()
	t.registry.BroadcastExcept(userID, models.NewEvent(models.EventOnlineUser, models.OnlineUserEvent{
		UserID:    userID,
		UserName:  userName,
		Status:    models.StatusOnline,
		Timestamp: time.Now(),
	}))
}

// LeaveChat records that the user is still connected but no longer focused
// on a conversation.
func (t *Tracker) LeaveChat(userID, userName string) {
	t.set(userID, models.StatusActive, "")
	t.broadcastMap()
	t.registry.BroadcastExcept(userID, models.NewEvent(models.EventOnlineUser, models.OnlineUserEvent{
		UserID:    userID,
		UserName:  userName,
		Status:    models.StatusActive,
		Timestamp: time.Now(),
	}))
}
