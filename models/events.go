package models

import (
	"encoding/json"
	"time"
)

// Inbound event names accepted from clients.
const (
	EventJoinChat              = "join_chat"
	EventLeaveChat             = "leave_chat"
	EventMessage               = "message"
	EventMarkRead              = "mark_read"
	EventDeleteMessage         = "delete_message"
	EventTyping                = "typing"
	EventGetNotifications      = "get_notifications"
	EventMarkNotificationsRead = "mark_notifications_read"
)

// Outbound event names pushed to clients.
const (
	EventOnlineUsers             = "get_online_users"
	EventOnlineUser              = "online_user"
	EventRead                    = "read"
	EventDelete                  = "delete"
	EventNewNotification         = "new_notification"
	EventNotifications           = "notifications"
	EventNotificationsMarkedRead = "notifications_marked_read"
	EventError                   = "error"
)

// Typing statuses relayed between peers.
const (
	TypingStart = "typing"
	TypingStop  = "stopped"
)

// Event is the wire envelope for every frame in both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an envelope. Marshal failures are
// programming errors (all payloads are plain structs), so they panic.
func NewEvent(name string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		panic("models: unmarshalable event payload: " + err.Error())
	}
	return Event{Event: name, Data: data}
}

// JoinChatPayload opens a conversation with a friend.
type JoinChatPayload struct {
	FriendID string `json:"friendId"`
}

// SendMessagePayload is the inbound message event.
type SendMessagePayload struct {
	RecipientID string       `json:"recipient_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	TempID      string       `json:"temp_id,omitempty"`
}

// MarkReadPayload requests a bulk read update.
type MarkReadPayload struct {
	MessageIDs []string `json:"message_ids"`
}

// DeleteMessagePayload requests deletion of a single message.
type DeleteMessagePayload struct {
	MessageID string `json:"message_id"`
}

// TypingPayload is the inbound typing signal.
type TypingPayload struct {
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
}

// MarkNotificationsReadPayload requests a bulk notification read update.
type MarkNotificationsReadPayload struct {
	NotificationIDs []string `json:"notification_ids"`
}

// MessageEvent is the outbound message payload, delivered to the recipient
// with IsOwnMessage=false and echoed to the sender with IsOwnMessage=true.
type MessageEvent struct {
	ID           string       `json:"_id"`
	SenderID     string       `json:"sender_id"`
	SenderName   string       `json:"sender_name"`
	RecipientID  string       `json:"recipient_id"`
	Content      string       `json:"content"`
	Attachments  []Attachment `json:"attachments"`
	IsRead       bool         `json:"is_read"`
	SentAt       time.Time    `json:"sent_at"`
	IsOwnMessage bool         `json:"is_own_message"`
	TempID       string       `json:"temp_id,omitempty"`
}

// OnlineUserEvent is the point-to-point presence change broadcast.
type OnlineUserEvent struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadEvent tells a sender that one of their messages was read.
type ReadEvent struct {
	MessageID  string    `json:"message_id"`
	ReadBy     string    `json:"read_by"`
	ReadByName string    `json:"read_by_name,omitempty"`
	ReadAt     time.Time `json:"read_at"`
}

// ReadConfirmEvent acknowledges a mark_read request to the reader.
type ReadConfirmEvent struct {
	MessageIDs []string `json:"message_ids"`
	Matched    int64    `json:"matched"`
	Modified   int64    `json:"modified"`
	Confirmed  bool     `json:"confirmed"`
}

// DeleteEvent announces a message deletion.
type DeleteEvent struct {
	MessageID string    `json:"message_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
	Confirmed bool      `json:"confirmed,omitempty"`
}

// TypingEvent is the relayed typing signal.
type TypingEvent struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotificationEvent carries the recipient's current unread count.
type NewNotificationEvent struct {
	Count int `json:"count"`
}

// NotificationsEvent answers a get_notifications request.
type NotificationsEvent struct {
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
}

// NotificationsMarkedReadEvent acknowledges a mark_notifications_read request.
type NotificationsMarkedReadEvent struct {
	NotificationIDs []string `json:"notification_ids"`
	Confirmed       bool     `json:"confirmed"`
}

// ErrorEvent reports a failed inbound event back to its originating
// connection, tagged so optimistic UI state can be rolled back.
type ErrorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}
