package models

import (
	"time"
)

// Notification types. Only message notifications are created by the realtime
// core; friend request/accept notifications come from the friendship API.
const (
	NotificationMessage        = "message"
	NotificationFriendRequest  = "friend_request"
	NotificationFriendAccepted = "friend_accepted"
)

// NotificationMetadata is a denormalized snapshot taken at creation time so
// the notification stays renderable after the sender changes their profile.
type NotificationMetadata struct {
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	MessagePreview string    `json:"message_preview"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification is the persisted fallback record created when a message could
// not be shown to its recipient live. At most one notification of type
// "message" exists per (user, related message); the store enforces that.
type Notification struct {
	ID        string               `json:"_id"`
	UserID    string               `json:"user_id"`
	Type      string               `json:"type"`
	RelatedID string               `json:"related_id"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Metadata  NotificationMetadata `json:"metadata"`
}
