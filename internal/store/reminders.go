package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gorkbot/gork/internal/domain"
)

// ReminderStore persists reminders.
type ReminderStore struct {
	db *DB
}

// NewReminderStore creates a ReminderStore.
func NewReminderStore(db *DB) *ReminderStore {
	return &ReminderStore{db: db}
}

const reminderColumns = `id, user_id, group_id, remote_id, message, remind_at, created_at, fired_at, cancelled_at`

// Create inserts a reminder and returns it with its id set.
func (s *ReminderStore) Create(ctx context.Context, r domain.Reminder) (domain.Reminder, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	err := s.db.queryRow(ctx, `
		INSERT INTO reminders (user_id, group_id, remote_id, message, remind_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, r.UserID, nullInt(r.GroupID), r.RemoteID, r.Message, formatTime(r.RemindAt), formatTime(r.CreatedAt)).Scan(&r.ID)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	r.RemindAt = r.RemindAt.UTC().Truncate(time.Microsecond)
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Microsecond)
	r.FiredAt, r.CancelledAt = nil, nil
	return r, nil
}

// Get loads a reminder by id.
func (s *ReminderStore) Get(ctx context.Context, id int64) (domain.Reminder, error) {
	rows, err := s.db.query(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("get reminder %d: %w", id, err)
	}
	list, err := scanReminders(rows)
	if err != nil {
		return domain.Reminder{}, err
	}
	if len(list) == 0 {
		return domain.Reminder{}, ErrNotFound
	}
	return list[0], nil
}

// PendingReminders lists every reminder that has neither fired nor been
// cancelled, ordered by due time.
func (s *ReminderStore) PendingReminders(ctx context.Context) ([]domain.Reminder, error) {
	rows, err := s.db.query(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE fired_at IS NULL AND cancelled_at IS NULL
		ORDER BY remind_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	return scanReminders(rows)
}

// PendingFor lists the pending reminders of one chat.
func (s *ReminderStore) PendingFor(ctx context.Context, remoteID string) ([]domain.Reminder, error) {
	rows, err := s.db.query(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE remote_id = ? AND fired_at IS NULL AND cancelled_at IS NULL
		ORDER BY remind_at, id
	`, remoteID)
	if err != nil {
		return nil, fmt.Errorf("list reminders for %s: %w", remoteID, err)
	}
	return scanReminders(rows)
}

// MarkFired stamps fired_at. It returns false when the reminder was already
// fired or cancelled, so a callback can skip its side effect.
func (s *ReminderStore) MarkFired(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.exec(ctx, `
		UPDATE reminders SET fired_at = ?
		WHERE id = ? AND fired_at IS NULL AND cancelled_at IS NULL
	`, formatTime(time.Now()), id)
	if err != nil {
		return false, fmt.Errorf("mark reminder %d fired: %w", id, err)
	}
	return affected(res)
}

// Cancel stamps cancelled_at on a pending reminder. A non-empty remoteID
// restricts the cancel to reminders of that chat.
func (s *ReminderStore) Cancel(ctx context.Context, id int64, remoteID string) (bool, error) {
	query := `
		UPDATE reminders SET cancelled_at = ?
		WHERE id = ? AND fired_at IS NULL AND cancelled_at IS NULL`
	args := []any{formatTime(time.Now()), id}
	if remoteID != "" {
		query += ` AND remote_id = ?`
		args = append(args, remoteID)
	}
	res, err := s.db.exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("cancel reminder %d: %w", id, err)
	}
	return affected(res)
}

// List returns the most recent reminders regardless of status.
func (s *ReminderStore) List(ctx context.Context, limit int) ([]domain.Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.query(ctx, `
		SELECT `+reminderColumns+` FROM reminders ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]domain.Reminder, error) {
	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		var (
			r                   domain.Reminder
			groupID             sql.NullInt64
			remindAt, createdAt string
			firedAt, cancelled  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &groupID, &r.RemoteID, &r.Message,
			&remindAt, &createdAt, &firedAt, &cancelled); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.GroupID = groupID.Int64

		var err error
		if r.RemindAt, err = parseTime(remindAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.FiredAt, err = parseNullTime(firedAt); err != nil {
			return nil, err
		}
		if r.CancelledAt, err = parseNullTime(cancelled); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

