package store

import (
	"context"
	"fmt"
	"time"
)

// CommandLog records which commands were dispatched.
type CommandLog struct {
	db *DB
}

// NewCommandLog creates a CommandLog.
func NewCommandLog(db *DB) *CommandLog {
	return &CommandLog{db: db}
}

// CommandCount is one row of usage statistics.
type CommandCount struct {
	Command string
	Count   int
}

// Record logs a dispatched command. Zero ids are stored as NULL.
func (c *CommandLog) Record(ctx context.Context, command string, userID, groupID int64) error {
	_, err := c.db.exec(ctx, `
		INSERT INTO command_log (command, user_id, group_id, created_at)
		VALUES (?, ?, ?, ?)
	`, command, nullInt(userID), nullInt(groupID), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record command %s: %w", command, err)
	}
	return nil
}

// Counts returns usage per command, most used first.
func (c *CommandLog) Counts(ctx context.Context) ([]CommandCount, error) {
	rows, err := c.db.query(ctx, `
		SELECT command, COUNT(*) AS n FROM command_log
		GROUP BY command ORDER BY n DESC, command
	`)
	if err != nil {
		return nil, fmt.Errorf("command counts: %w", err)
	}
	defer rows.Close()

	var out []CommandCount
	for rows.Next() {
		var cc CommandCount
		if err := rows.Scan(&cc.Command, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan command count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
