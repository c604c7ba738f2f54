package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"durandal/model"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRecordNotFound is returned by Get when no record exists for a guild.
var ErrRecordNotFound = errors.New("record not found")

// CommunityDB stores guild records in SQLite.
type CommunityDB struct {
	db *sqlx.DB
}

type communityRow struct {
	GuildID       string `db:"guild_id"`
	LogChannelID  string `db:"log_channel_id"`
	TimeoutRoleID string `db:"timeout_role_id"`
	SchemaVersion int    `db:"schema_version"`
}

type timeoutRow struct {
	GuildID     string `db:"guild_id"`
	UserID      string `db:"user_id"`
	ExpiresAt   int64  `db:"expires_at"`
	Reason      string `db:"reason"`
	RequestedBy string `db:"requested_by"`
}

type namelockRow struct {
	GuildID string `db:"guild_id"`
	UserID  string `db:"user_id"`
}

// InitCommunityDB opens the database at path and applies pending migrations.
func InitCommunityDB(path string) (*CommunityDB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to community database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	store := NewCommunityDB(db)
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewCommunityDB wraps an open connection without migrating it.
func NewCommunityDB(db *sqlx.DB) *CommunityDB {
	return &CommunityDB{db: db}
}

// Migrate brings the schema up to the latest embedded migration.
func (c *CommunityDB) Migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(c.db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Get loads the record of a guild.
func (c *CommunityDB) Get(ctx context.Context, guildID string) (*model.GuildRecord, error) {
	var row communityRow
	err := c.db.GetContext(ctx, &row,
		`SELECT guild_id, log_channel_id, timeout_role_id, schema_version FROM communities WHERE guild_id = ?`, guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community %s: %w", guildID, err)
	}

	var timeouts []timeoutRow
	err = c.db.SelectContext(ctx, &timeouts,
		`SELECT guild_id, user_id, expires_at, reason, requested_by FROM timeouts WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get timeouts for community %s: %w", guildID, err)
	}

	var locks []namelockRow
	err = c.db.SelectContext(ctx, &locks,
		`SELECT guild_id, user_id FROM namelocks WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get namelocks for community %s: %w", guildID, err)
	}

	rec := &model.GuildRecord{
		SchemaVersion: row.SchemaVersion,
		GuildID:       row.GuildID,
		LogChannelID:  row.LogChannelID,
		TimeoutRoleID: row.TimeoutRoleID,
		Timeouts:      make(map[string]model.TimeoutEntry, len(timeouts)),
		Namelocks:     make(map[string]bool, len(locks)),
	}
	for _, t := range timeouts {
		rec.Timeouts[t.UserID] = model.TimeoutEntry{
			GuildID:     t.GuildID,
			UserID:      t.UserID,
			ExpiresAt:   time.UnixMilli(t.ExpiresAt).UTC(),
			Reason:      t.Reason,
			RequestedBy: t.RequestedBy,
		}
	}
	for _, l := range locks {
		rec.Namelocks[l.UserID] = true
	}
	return rec, nil
}

// Put replaces the stored record of a guild in a single transaction.
func (c *CommunityDB) Put(ctx context.Context, rec *model.GuildRecord) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO communities (guild_id, log_channel_id, timeout_role_id, schema_version)
		VALUES (:guild_id, :log_channel_id, :timeout_role_id, :schema_version)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel_id = excluded.log_channel_id,
			timeout_role_id = excluded.timeout_role_id,
			schema_version = excluded.schema_version`,
		communityRow{
			GuildID:       rec.GuildID,
			LogChannelID:  rec.LogChannelID,
			TimeoutRoleID: rec.TimeoutRoleID,
			SchemaVersion: rec.SchemaVersion,
		})
	if err != nil {
		return fmt.Errorf("failed to upsert community %s: %w", rec.GuildID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM timeouts WHERE guild_id = ?`, rec.GuildID); err != nil {
		return fmt.Errorf("failed to clear timeouts for community %s: %w", rec.GuildID, err)
	}
	for userID, entry := range rec.Timeouts {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO timeouts (guild_id, user_id, expires_at, reason, requested_by)
			VALUES (:guild_id, :user_id, :expires_at, :reason, :requested_by)`,
			timeoutRow{
				GuildID:     rec.GuildID,
				UserID:      userID,
				ExpiresAt:   entry.ExpiresAt.UnixMilli(),
				Reason:      entry.Reason,
				RequestedBy: entry.RequestedBy,
			})
		if err != nil {
			return fmt.Errorf("failed to insert timeout for user %s: %w", userID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM namelocks WHERE guild_id = ?`, rec.GuildID); err != nil {
		return fmt.Errorf("failed to clear namelocks for community %s: %w", rec.GuildID, err)
	}
	for userID, locked := range rec.Namelocks {
		if !locked {
			continue
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO namelocks (guild_id, user_id) VALUES (?, ?)`, rec.GuildID, userID)
		if err != nil {
			return fmt.Errorf("failed to insert namelock for user %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit community %s: %w", rec.GuildID, err)
	}
	return nil
}

// Delete removes a guild and everything stored for it.
func (c *CommunityDB) Delete(ctx context.Context, guildID string) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM timeouts WHERE guild_id = ?`,
		`DELETE FROM namelocks WHERE guild_id = ?`,
		`DELETE FROM communities WHERE guild_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, guildID); err != nil {
			return fmt.Errorf("failed to delete community %s: %w", guildID, err)
		}
	}
	return tx.Commit()
}

// ListGuildIDs returns the IDs of all stored guilds in ascending order.
func (c *CommunityDB) ListGuildIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.db.SelectContext(ctx, &ids, `SELECT guild_id FROM communities ORDER BY guild_id`); err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	return ids, nil
}

// Close closes the underlying connection.
func (c *CommunityDB) Close() error {
	return c.db.Close()
}
