package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gorkbot/gork/internal/domain"
)

// Whitelist stores which users and groups may talk to the bot.
type Whitelist struct {
	db *DB
}

// NewWhitelist creates a Whitelist.
func NewWhitelist(db *DB) *Whitelist {
	return &Whitelist{db: db}
}

func validSenderType(t string) error {
	if t != domain.SenderUser && t != domain.SenderGroup {
		return fmt.Errorf("invalid sender type %q", t)
	}
	return nil
}

// Add grants access, reviving a previously removed entry.
func (w *Whitelist) Add(ctx context.Context, senderType, senderID string, admin bool) error {
	if err := validSenderType(senderType); err != nil {
		return err
	}
	_, err := w.db.exec(ctx, `
		INSERT INTO whitelist (sender_type, sender_id, is_admin, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sender_type, sender_id) DO UPDATE SET
			is_admin = excluded.is_admin,
			deleted_at = NULL
	`, senderType, senderID, admin, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("whitelist add %s %s: %w", senderType, senderID, err)
	}
	return nil
}

// Remove soft-deletes an entry. It returns false when nothing was active.
func (w *Whitelist) Remove(ctx context.Context, senderType, senderID string) (bool, error) {
	res, err := w.db.exec(ctx, `
		UPDATE whitelist SET deleted_at = ?
		WHERE sender_type = ? AND sender_id = ? AND deleted_at IS NULL
	`, formatTime(time.Now()), senderType, senderID)
	if err != nil {
		return false, fmt.Errorf("whitelist remove %s %s: %w", senderType, senderID, err)
	}
	return affected(res)
}

// IsAllowed reports whether an active entry exists.
func (w *Whitelist) IsAllowed(ctx context.Context, senderType, senderID string) (bool, error) {
	var one int
	err := w.db.queryRow(ctx, `
		SELECT 1 FROM whitelist
		WHERE sender_type = ? AND sender_id = ? AND deleted_at IS NULL
	`, senderType, senderID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("whitelist lookup: %w", err)
	}
	return true, nil
}

// List returns all active entries.
func (w *Whitelist) List(ctx context.Context) ([]domain.WhitelistEntry, error) {
	rows, err := w.db.query(ctx, `
		SELECT sender_type, sender_id, is_admin, created_at FROM whitelist
		WHERE deleted_at IS NULL ORDER BY sender_type, sender_id
	`)
	if err != nil {
		return nil, fmt.Errorf("whitelist list: %w", err)
	}
	defer rows.Close()

	var out []domain.WhitelistEntry
	for rows.Next() {
		var (
			e         domain.WhitelistEntry
			createdAt string
		)
		if err := rows.Scan(&e.SenderType, &e.SenderID, &e.IsAdmin, &createdAt); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
