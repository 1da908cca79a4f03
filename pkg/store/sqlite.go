// Package store persists bindings and blacklist entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tinyland-inc/bridgeclaw/pkg/registry"
)

const schema = `
CREATE TABLE IF NOT EXISTS bindings (
	guild_id TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	guild_name TEXT NOT NULL DEFAULT '',
	channel_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS blacklist (
	guild_id TEXT PRIMARY KEY,
	reason TEXT NOT NULL DEFAULT '',
	blacklisted_by TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`

// SQLite implements registry.Store on a local database file.
type SQLite struct {
	db *sql.DB
}

var _ registry.Store = (*SQLite)(nil)

func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetAllBindings(ctx context.Context) ([]registry.Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, channel_id, guild_name, channel_name FROM bindings
	`)
	if err != nil {
		return nil, fmt.Errorf("query bindings: %w", err)
	}
	defer rows.Close()

	var out []registry.Binding
	for rows.Next() {
		var b registry.Binding
		if err := rows.Scan(&b.GuildID, &b.ChannelID, &b.GuildName, &b.ChannelName); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertBinding(ctx context.Context, b registry.Binding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bindings (guild_id, channel_id, guild_name, channel_name)
		VALUES (?, ?, ?, ?)
	`, b.GuildID, b.ChannelID, b.GuildName, b.ChannelName)
	if err != nil {
		return fmt.Errorf("upsert binding: %w", err)
	}
	return nil
}

func (s *SQLite) GetAllBlacklist(ctx context.Context) ([]registry.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, reason, blacklisted_by, created_at FROM blacklist
	`)
	if err != nil {
		return nil, fmt.Errorf("query blacklist: %w", err)
	}
	defer rows.Close()

	var out []registry.BlacklistEntry
	for rows.Next() {
		var e registry.BlacklistEntry
		var createdAt int64
		if err := rows.Scan(&e.GuildID, &e.Reason, &e.BlacklistedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) InsertBlacklist(ctx context.Context, e registry.BlacklistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blacklist (guild_id, reason, blacklisted_by, created_at)
		VALUES (?, ?, ?, ?)
	`, e.GuildID, e.Reason, e.BlacklistedBy, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteBlacklist(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE guild_id = ?`, guildID)
	if err != nil {
		return fmt.Errorf("delete blacklist entry: %w", err)
	}
	return nil
}
