package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gorkbot/gork/internal/domain"
)

// MessageStore keeps chat history for summaries and conversation context.
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a MessageStore.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append stores a chat line.
func (s *MessageStore) Append(ctx context.Context, m domain.StoredMessage) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	var id int64
	err := s.db.queryRow(ctx, `
		INSERT INTO messages (chat_id, message_id, sender_id, sender_name, content, from_bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, m.ChatID, m.MessageID, m.SenderID, m.SenderName, m.Content, m.FromBot, formatTime(m.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	return id, nil
}

// Recent returns up to limit of the latest messages of a chat, oldest first.
func (s *MessageStore) Recent(ctx context.Context, chatID string, limit int) ([]domain.StoredMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.query(ctx, `
		SELECT id, chat_id, message_id, sender_id, sender_name, content, from_bot, created_at
		FROM messages WHERE chat_id = ?
		ORDER BY id DESC LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages for %s: %w", chatID, err)
	}
	defer rows.Close()

	var out []domain.StoredMessage
	for rows.Next() {
		var (
			m         domain.StoredMessage
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.MessageID, &m.SenderID, &m.SenderName,
			&m.Content, &m.FromBot, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}
