package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/campushq/chat-server/models"
)

// Postgres implements Store on database/sql with the pq driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the database, waits for it to come up and ensures the
// schema exists.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	for attempt := 1; attempt <= 30; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Postgres{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) Close() error { return s.db.Close() }

// ensureSchema creates tables and the notification dedupe index. The unique
// index on (user_id, type, related_id) is what makes
// CreateNotificationIfAbsent an atomic insert-if-absent.
func (s *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			channel_id TEXT,
			sender_id TEXT NOT NULL,
			recipient_id TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			attachments JSONB NOT NULL DEFAULT '[]',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			sent_at TIMESTAMPTZ NOT NULL,
			read_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS messages_user_sent_idx
			ON messages (sender_id, recipient_id, sent_at DESC)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			related_id TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			read_at TIMESTAMPTZ,
			metadata JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS notifications_dedupe_idx
			ON notifications (user_id, type, related_id)`,
		`CREATE INDEX IF NOT EXISTS notifications_unread_idx
			ON notifications (user_id, is_read, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) CreateMessage(ctx context.Context, msg *models.Message) error {
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, channel_id, sender_id, recipient_id, content, attachments, is_read, sent_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.ChannelID, msg.SenderID, msg.RecipientID, msg.Content, attachments, msg.IsRead, msg.SentAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const messageColumns = `id, COALESCE(channel_id, ''), sender_id, recipient_id, content, attachments, is_read, sent_at, read_at`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	var msg models.Message
	var attachments []byte
	var readAt sql.NullTime
	err := row.Scan(&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.RecipientID,
		&msg.Content, &attachments, &msg.IsRead, &msg.SentAt, &readAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return &msg, nil
}

func (s *Postgres) FindMessageByID(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return msg, nil
}

func (s *Postgres) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (s *Postgres) MarkMessagesRead(ctx context.Context, messageIDs []string, readerID string, at time.Time) ([]models.Message, ReadUpdateResult, error) {
	if len(messageIDs) == 0 {
		return nil, ReadUpdateResult{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`UPDATE messages SET is_read = TRUE, read_at = $1
		 WHERE id = ANY($2) AND recipient_id = $3 AND is_read = FALSE
		 RETURNING `+messageColumns,
		at, pq.Array(messageIDs), readerID)
	if err != nil {
		return nil, ReadUpdateResult{}, fmt.Errorf("mark messages read: %w", err)
	}
	defer rows.Close()

	var affected []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, ReadUpdateResult{}, fmt.Errorf("scan message: %w", err)
		}
		affected = append(affected, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, ReadUpdateResult{}, fmt.Errorf("mark messages read: %w", err)
	}
	n := int64(len(affected))
	return affected, ReadUpdateResult{Matched: n, Modified: n}, nil
}

func (s *Postgres) ListMessages(ctx context.Context, q MessageQuery) ([]models.Message, int64, error) {
	where := `(sender_id = $1 OR recipient_id = $1)`
	args := []any{q.UserID}
	if q.WithUser != "" {
		where = `((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))`
		args = append(args, q.WithUser)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE %s ORDER BY sent_at %s LIMIT %d OFFSET %d`,
		messageColumns, where, order, q.Limit, q.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, total, rows.Err()
}

const notificationColumns = `id, user_id, type, related_id, is_read, created_at, read_at, metadata`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	var n models.Notification
	var metadata []byte
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.RelatedID, &n.IsRead, &n.CreatedAt, &readAt, &metadata)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}

func (s *Postgres) CreateNotificationIfAbsent(ctx context.Context, n *models.Notification) (*models.Notification, bool, error) {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("marshal metadata: %w", err)
	}

	// The unique index turns concurrent creates into exactly one insert;
	// losers fall through to the select below.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, related_id, is_read, created_at, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, type, related_id) DO NOTHING`,
		n.ID, n.UserID, n.Type, n.RelatedID, n.IsRead, n.CreatedAt, metadata)
	if err != nil {
		return nil, false, fmt.Errorf("insert notification: %w", err)
	}
	if inserted, _ := res.RowsAffected(); inserted == 1 {
		return n, true, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = $1 AND type = $2 AND related_id = $3`,
		n.UserID, n.Type, n.RelatedID)
	existing, err := scanNotification(row)
	if err != nil {
		return nil, false, fmt.Errorf("find existing notification: %w", err)
	}
	return existing, false, nil
}

func (s *Postgres) UnreadNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = $1 AND is_read = FALSE
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func (s *Postgres) MarkMessageNotificationsRead(ctx context.Context, messageIDs []string, userID string, at time.Time) (ReadUpdateResult, error) {
	if len(messageIDs) == 0 {
		return ReadUpdateResult{}, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $1
		 WHERE user_id = $2 AND type = $3 AND related_id = ANY($4) AND is_read = FALSE`,
		at, userID, models.NotificationMessage, pq.Array(messageIDs))
	if err != nil {
		return ReadUpdateResult{}, fmt.Errorf("mark message notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return ReadUpdateResult{Matched: n, Modified: n}, nil
}

func (s *Postgres) MarkNotificationsRead(ctx context.Context, notificationIDs []string, userID string, at time.Time) (ReadUpdateResult, error) {
	if len(notificationIDs) == 0 {
		return ReadUpdateResult{}, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $1
		 WHERE id = ANY($2) AND user_id = $3 AND is_read = FALSE`,
		at, pq.Array(notificationIDs), userID)
	if err != nil {
		return ReadUpdateResult{}, fmt.Errorf("mark notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return ReadUpdateResult{Matched: n, Modified: n}, nil
}

func (s *Postgres) DeleteNotificationsByRelatedID(ctx context.Context, relatedID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE type = $1 AND related_id = $2`,
		models.NotificationMessage, relatedID)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
