package chat

import "context"

// Journal subjects mirrored to the event stream.
const (
	SubjectMessageSent         = "chat.message.sent"
	SubjectMessageDeleted      = "chat.message.deleted"
	SubjectMessageRead         = "chat.message.read"
	SubjectNotificationCreated = "chat.notification.created"
	SubjectPresence            = "chat.presence"
)

// Journal receives a copy of every externally visible event so out-of-process
// consumers can replay the stream. Publishing is strictly best-effort; live
// delivery never waits on it.
type Journal interface {
	Publish(ctx context.Context, subject string, payload any)
}

// NopJournal is used when no event stream is configured, and in tests.
type NopJournal struct{}

func (NopJournal) Publish(context.Context, string, any) {}
