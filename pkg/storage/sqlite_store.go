package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/small-frappuccino/guildsettings/pkg/settings"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps settings in an embedded SQLite database, one row per
// (guild, kind). It uses modernc.org/sqlite for CGO-less builds.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	now    func() time.Time
}

// NewSQLiteStore creates a store pointing to dbPath. Call Init() before using it.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{dbPath: dbPath, now: time.Now}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// Pragmas for durability and concurrency
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA synchronous=NORMAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close(context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const createCommandSettings = `
CREATE TABLE IF NOT EXISTS command_settings (
  guild_id             TEXT NOT NULL,
  kind                 TEXT NOT NULL,
  enabled              INTEGER NOT NULL,
  cooldown_ms          INTEGER,
  custom_items         TEXT NOT NULL DEFAULT '[]',
  custom_items_only    INTEGER NOT NULL DEFAULT 0,
  blacklisted_channels TEXT NOT NULL DEFAULT '[]',
  reason_required      INTEGER NOT NULL DEFAULT 0,
  evidence_required    INTEGER NOT NULL DEFAULT 0,
  log_channel_id       TEXT,
  default_duration_ms  INTEGER NOT NULL DEFAULT 0,
  mute_role_id         TEXT,
  updated_at           TIMESTAMP NOT NULL,
  PRIMARY KEY (guild_id, kind)
);`

	if _, err := db.ExecContext(ctx, createCommandSettings); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const upsertColumns = `guild_id, kind, enabled, cooldown_ms, custom_items, custom_items_only, blacklisted_channels,
  reason_required, evidence_required, log_channel_id, default_duration_ms, mute_role_id, updated_at`

// FindOrCreate inserts the kind defaults if the row is missing, then reads it back.
func (s *SQLiteStore) FindOrCreate(ctx context.Context, kind settings.Kind, guildID string) (settings.Settings, error) {
	if s.db == nil {
		return settings.Settings{}, ErrNotInitialized
	}
	args, err := rowArgs(settings.Defaults(guildID, kind), s.now())
	if err != nil {
		return settings.Settings{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO command_settings (`+upsertColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(guild_id, kind) DO NOTHING`,
		args...,
	); err != nil {
		return settings.Settings{}, fmt.Errorf("insert default %s settings: %w", kind, err)
	}
	return s.get(ctx, kind, guildID)
}

// Update overwrites every column of the row and returns what was stored.
func (s *SQLiteStore) Update(ctx context.Context, in settings.Settings) (settings.Settings, error) {
	if s.db == nil {
		return settings.Settings{}, ErrNotInitialized
	}
	args, err := rowArgs(in, s.now())
	if err != nil {
		return settings.Settings{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO command_settings (`+upsertColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(guild_id, kind) DO UPDATE SET
           enabled=excluded.enabled,
           cooldown_ms=excluded.cooldown_ms,
           custom_items=excluded.custom_items,
           custom_items_only=excluded.custom_items_only,
           blacklisted_channels=excluded.blacklisted_channels,
           reason_required=excluded.reason_required,
           evidence_required=excluded.evidence_required,
           log_channel_id=excluded.log_channel_id,
           default_duration_ms=excluded.default_duration_ms,
           mute_role_id=excluded.mute_role_id,
           updated_at=excluded.updated_at`,
		args...,
	); err != nil {
		return settings.Settings{}, fmt.Errorf("update %s settings: %w", in.Kind, err)
	}
	return s.get(ctx, in.Kind, in.GuildID)
}

func (s *SQLiteStore) get(ctx context.Context, kind settings.Kind, guildID string) (settings.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT enabled, cooldown_ms, custom_items, custom_items_only, blacklisted_channels,
                reason_required, evidence_required, log_channel_id, default_duration_ms, mute_role_id, updated_at
         FROM command_settings
         WHERE guild_id=? AND kind=?`,
		guildID, string(kind),
	)

	out := settings.Settings{GuildID: guildID, Kind: kind}
	var (
		cooldown             sql.NullInt64
		items, blacklist     string
		logChannel, muteRole sql.NullString
		durationMS           int64
	)
	if err := row.Scan(
		&out.Enabled,
		&cooldown,
		&items,
		&out.Fun.CustomItemsOnly,
		&blacklist,
		&out.Moderation.ReasonRequired,
		&out.Moderation.EvidenceRequired,
		&logChannel,
		&durationMS,
		&muteRole,
		&out.UpdatedAt,
	); err != nil {
		return settings.Settings{}, fmt.Errorf("read %s settings: %w", kind, err)
	}

	if cooldown.Valid {
		d := time.Duration(cooldown.Int64) * time.Millisecond
		out.Fun.Cooldown = &d
	}
	if err := json.Unmarshal([]byte(items), &out.Fun.CustomItems); err != nil {
		return settings.Settings{}, fmt.Errorf("decode custom items: %w", err)
	}
	if err := json.Unmarshal([]byte(blacklist), &out.Fun.BlacklistedChannels); err != nil {
		return settings.Settings{}, fmt.Errorf("decode blacklisted channels: %w", err)
	}
	out.Moderation.LogChannelID = logChannel.String
	out.Moderation.MuteRoleID = muteRole.String
	out.Moderation.DefaultDuration = time.Duration(durationMS) * time.Millisecond
	return out, nil
}

func rowArgs(s settings.Settings, now time.Time) ([]any, error) {
	var cooldown any
	if s.Fun.Cooldown != nil {
		cooldown = s.Fun.Cooldown.Milliseconds()
	}
	items, err := json.Marshal(nonNil(s.Fun.CustomItems))
	if err != nil {
		return nil, fmt.Errorf("encode custom items: %w", err)
	}
	blacklist, err := json.Marshal(nonNil(s.Fun.BlacklistedChannels))
	if err != nil {
		return nil, fmt.Errorf("encode blacklisted channels: %w", err)
	}
	return []any{
		s.GuildID,
		string(s.Kind),
		s.Enabled,
		cooldown,
		string(items),
		s.Fun.CustomItemsOnly,
		string(blacklist),
		s.Moderation.ReasonRequired,
		s.Moderation.EvidenceRequired,
		nullString(s.Moderation.LogChannelID),
		s.Moderation.DefaultDuration.Milliseconds(),
		nullString(s.Moderation.MuteRoleID),
		now.UTC(),
	}, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
