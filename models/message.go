package models

import (
	"time"
)

// Attachment is a reference to an uploaded file carried by a message.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

// Message is a persisted direct (or channel) chat message. Once delivered it
// is immutable except for the read flag; only the sender may delete it.
type Message struct {
	ID          string       `json:"_id"`
	ChannelID   string       `json:"channel_id,omitempty"` // empty for direct messages
	SenderID    string       `json:"sender_id"`
	RecipientID string       `json:"recipient_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	IsRead      bool         `json:"is_read"`
	SentAt      time.Time    `json:"sent_at"`
	ReadAt      *time.Time   `json:"read_at,omitempty"`
}

// Empty reports whether the message carries neither text nor attachments.
func (m *Message) Empty() bool {
	return m.Content == "" && len(m.Attachments) == 0
}
