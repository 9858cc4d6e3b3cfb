package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/campushq/chat-server/models"
)

// Memory is a mutex-guarded in-memory Store used for single-binary dev mode
// and component tests. It mirrors the Postgres semantics, including the
// insert-if-absent notification dedupe.
type Memory struct {
	mu            sync.RWMutex
	messages      map[string]*models.Message
	notifications map[string]*models.Notification
}

func NewMemory() *Memory {
	return &Memory{
		messages:      make(map[string]*models.Message),
		notifications: make(map[string]*models.Notification),
	}
}

func (s *Memory) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *Memory) FindMessageByID(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, models.ErrNotFound)
	}
	cp := *msg
	return &cp, nil
}

func (s *Memory) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return fmt.Errorf("message %s: %w", id, models.ErrNotFound)
	}
	delete(s.messages, id)
	return nil
}

func (s *Memory) MarkMessagesRead(_ context.Context, messageIDs []string, readerID string, at time.Time) ([]models.Message, ReadUpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected []models.Message
	for _, id := range messageIDs {
		msg, ok := s.messages[id]
		if !ok || msg.RecipientID != readerID || msg.IsRead {
			continue
		}
		msg.IsRead = true
		readAt := at
		msg.ReadAt = &readAt
		affected = append(affected, *msg)
	}
	n := int64(len(affected))
	return affected, ReadUpdateResult{Matched: n, Modified: n}, nil
}

func (s *Memory) ListMessages(_ context.Context, q MessageQuery) ([]models.Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.Message
	for _, msg := range s.messages {
		if q.WithUser != "" {
			if !(msg.SenderID == q.UserID && msg.RecipientID == q.WithUser) &&
				!(msg.SenderID == q.WithUser && msg.RecipientID == q.UserID) {
				continue
			}
		} else if msg.SenderID != q.UserID && msg.RecipientID != q.UserID {
			continue
		}
		matched = append(matched, *msg)
	}
	sort.Slice(matched, func(i, j int) bool {
		if q.Ascending {
			return matched[i].SentAt.Before(matched[j].SentAt)
		}
		return matched[i].SentAt.After(matched[j].SentAt)
	})
	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (s *Memory) CreateNotificationIfAbsent(_ context.Context, n *models.Notification) (*models.Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.notifications {
		if existing.UserID == n.UserID && existing.Type == n.Type && existing.RelatedID == n.RelatedID {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return n, true, nil
}

func (s *Memory) UnreadNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var unread []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			unread = append(unread, *n)
		}
	}
	sort.Slice(unread, func(i, j int) bool {
		return unread[i].CreatedAt.After(unread[j].CreatedAt)
	})
	if limit > 0 && limit < len(unread) {
		unread = unread[:limit]
	}
	return unread, nil
}

func (s *Memory) MarkMessageNotificationsRead(_ context.Context, messageIDs []string, userID string, at time.Time) (ReadUpdateResult, error) {
	ids := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, n := range s.notifications {
		if n.UserID == userID && n.Type == models.NotificationMessage && ids[n.RelatedID] && !n.IsRead {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
			modified++
		}
	}
	return ReadUpdateResult{Matched: modified, Modified: modified}, nil
}

func (s *Memory) MarkNotificationsRead(_ context.Context, notificationIDs []string, userID string, at time.Time) (ReadUpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, id := range notificationIDs {
		n, ok := s.notifications[id]
		if !ok || n.UserID != userID || n.IsRead {
			continue
		}
		n.IsRead = true
		readAt := at
		n.ReadAt = &readAt
		modified++
	}
	return ReadUpdateResult{Matched: modified, Modified: modified}, nil
}

func (s *Memory) DeleteNotificationsByRelatedID(_ context.Context, relatedID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, n := range s.notifications {
		if n.Type == models.NotificationMessage && n.RelatedID == relatedID {
			delete(s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
