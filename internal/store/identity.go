package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gorkbot/gork/internal/domain"
)

// IdentityStore persists the users and groups the bot has seen.
type IdentityStore struct {
	db *DB
}

// NewIdentityStore creates an IdentityStore.
func NewIdentityStore(db *DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// UpsertUser records a user by platform id. Non-empty phone and name
// overwrite stored values.
func (s *IdentityStore) UpsertUser(ctx context.Context, srcID, phone, name string) (domain.User, error) {
	now := formatTime(time.Now())
	u := domain.User{SrcID: srcID}

	var createdAt string
	err := s.db.queryRow(ctx, `
		INSERT INTO users (src_id, phone_number, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (src_id) DO UPDATE SET
			phone_number = CASE WHEN excluded.phone_number <> '' THEN excluded.phone_number ELSE users.phone_number END,
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			updated_at = excluded.updated_at
		RETURNING id, phone_number, name, created_at
	`, srcID, phone, name, now, now).Scan(&u.ID, &u.PhoneNumber, &u.Name, &createdAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user %s: %w", srcID, err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// UpsertGroup records a group by platform id.
func (s *IdentityStore) UpsertGroup(ctx context.Context, srcID, name string) (domain.Group, error) {
	now := formatTime(time.Now())
	g := domain.Group{SrcID: srcID}

	var createdAt string
	err := s.db.queryRow(ctx, `
		INSERT INTO chat_groups (src_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (src_id) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE chat_groups.name END
		RETURNING id, name, created_at
	`, srcID, name, now).Scan(&g.ID, &g.Name, &createdAt)
	if err != nil {
		return domain.Group{}, fmt.Errorf("upsert group %s: %w", srcID, err)
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

// FindUser looks a user up by platform id or phone number.
func (s *IdentityStore) FindUser(ctx context.Context, idOrPhone string) (domain.User, error) {
	var (
		u         domain.User
		createdAt string
	)
	err := s.db.queryRow(ctx, `
		SELECT id, src_id, phone_number, name, created_at
		FROM users WHERE src_id = ? OR phone_number = ?
		ORDER BY id LIMIT 1
	`, idOrPhone, idOrPhone).Scan(&u.ID, &u.SrcID, &u.PhoneNumber, &u.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user %s: %w", idOrPhone, err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
