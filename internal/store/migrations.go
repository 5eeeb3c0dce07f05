package store

import "strings"

// migration represents a single schema migration. Schemas are written once
// in the SQLite flavour; the few type differences for PostgreSQL are
// substituted by sql().
type migration struct {
	Version int
	Name    string
	SQL     string
}

// postgresTypes maps SQLite column definitions to their PostgreSQL form.
var postgresTypes = strings.NewReplacer(
	"INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY",
	"BOOL_INT", "BOOLEAN",
	"DEFAULT_FALSE", "DEFAULT FALSE",
)

var sqliteTypes = strings.NewReplacer(
	"BOOL_INT", "INTEGER",
	"DEFAULT_FALSE", "DEFAULT 0",
)

func (m migration) sql(d dialect) string {
	if d == dialectPostgres {
		return postgresTypes.Replace(m.SQL)
	}
	return sqliteTypes.Replace(m.SQL)
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users and groups",
		SQL: `
			CREATE TABLE users (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				src_id        TEXT NOT NULL,
				phone_number  TEXT NOT NULL DEFAULT '',
				name          TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_users_src ON users (src_id);
			CREATE INDEX idx_users_phone ON users (phone_number);

			CREATE TABLE chat_groups (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				src_id      TEXT NOT NULL,
				name        TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_groups_src ON chat_groups (src_id);
		`,
	},
	{
		Version: 2,
		Name:    "create reminders",
		SQL: `
			CREATE TABLE reminders (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				group_id      BIGINT REFERENCES chat_groups(id) ON DELETE CASCADE,
				remote_id     TEXT NOT NULL,
				message       TEXT NOT NULL,
				remind_at     TEXT NOT NULL,
				created_at    TEXT NOT NULL,
				fired_at      TEXT,
				cancelled_at  TEXT
			);

			CREATE INDEX idx_reminders_pending ON reminders (remind_at) WHERE fired_at IS NULL AND cancelled_at IS NULL;
			CREATE INDEX idx_reminders_remote ON reminders (remote_id);
		`,
	},
	{
		Version: 3,
		Name:    "create messages and command log",
		SQL: `
			CREATE TABLE messages (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				chat_id      TEXT NOT NULL,
				message_id   TEXT NOT NULL DEFAULT '',
				sender_id    TEXT NOT NULL DEFAULT '',
				sender_name  TEXT NOT NULL DEFAULT '',
				content      TEXT NOT NULL,
				from_bot     BOOL_INT NOT NULL DEFAULT_FALSE,
				created_at   TEXT NOT NULL
			);

			CREATE INDEX idx_messages_chat ON messages (chat_id, id);

			CREATE TABLE command_log (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				command     TEXT NOT NULL,
				user_id     BIGINT REFERENCES users(id) ON DELETE SET NULL,
				group_id    BIGINT REFERENCES chat_groups(id) ON DELETE SET NULL,
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_command_log_command ON command_log (command);
		`,
	},
	{
		Version: 4,
		Name:    "create whitelist",
		SQL: `
			CREATE TABLE whitelist (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				sender_type  TEXT NOT NULL,
				sender_id    TEXT NOT NULL,
				is_admin     BOOL_INT NOT NULL DEFAULT_FALSE,
				created_at   TEXT NOT NULL,
				deleted_at   TEXT
			);

			CREATE UNIQUE INDEX idx_whitelist_sender ON whitelist (sender_type, sender_id);
		`,
	},
}
