// Package store is the persistence collaborator for the realtime core.
// Components only depend on the Store interface; Postgres backs production
// and the in-memory implementation backs dev mode and tests.
package store

import (
	"context"
	"time"

	"github.com/campushq/chat-server/models"
)

// ReadUpdateResult reports how a bulk read update applied. Matched counts
// the records the filter selected, Modified the records actually flipped.
// Ids that belong to someone else are silently skipped, so callers detect
// partial application from these counts rather than from an error.
type ReadUpdateResult struct {
	Matched  int64
	Modified int64
}

// MessageQuery selects a page of message history for one user, optionally
// narrowed to the conversation with a single peer.
type MessageQuery struct {
	UserID    string
	WithUser  string
	Limit     int
	Offset    int
	Ascending bool
}

type Store interface {
	// CreateMessage persists a new message. The caller assigns the id.
	CreateMessage(ctx context.Context, msg *models.Message) error
	// FindMessageByID returns models.ErrNotFound for unknown ids.
	FindMessageByID(ctx context.Context, id string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	// MarkMessagesRead flips is_read on the targeted messages whose
	// recipient is readerID and that are still unread, and returns the
	// affected messages so callers can notify their senders.
	MarkMessagesRead(ctx context.Context, messageIDs []string, readerID string, at time.Time) ([]models.Message, ReadUpdateResult, error)
	ListMessages(ctx context.Context, q MessageQuery) ([]models.Message, int64, error)

	// CreateNotificationIfAbsent inserts atomically; when a notification
	// with the same (user, type, related id) already exists it returns the
	// existing record and created=false instead of duplicating.
	CreateNotificationIfAbsent(ctx context.Context, n *models.Notification) (*models.Notification, bool, error)
	UnreadNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkMessageNotificationsRead(ctx context.Context, messageIDs []string, userID string, at time.Time) (ReadUpdateResult, error)
	MarkNotificationsRead(ctx context.Context, notificationIDs []string, userID string, at time.Time) (ReadUpdateResult, error)
	DeleteNotificationsByRelatedID(ctx context.Context, relatedID string) (int64, error)
}
