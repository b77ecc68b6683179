// SPDX-License-Identifier: MIT

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/xtreamcache/xtreamcache/internal/log"
)

// schemaVersion is recorded in PRAGMA user_version. Migrations are
// forward-only numbered steps, mirroring
// internal/domain/session/store.SqliteStore.migrate's version gate.
const schemaVersion = 1

// Bootstrap idempotently creates every table, index, FTS5 virtual table and
// trigger this package needs, and applies the operational pragmas from
// spec.md §6.1. Running it against an already-initialized database is a
// no-op (component C1's migration contract).
func Bootstrap(db *sql.DB) error {
	logger := log.WithComponent("catalog.schema")

	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return newErr("catalog.Bootstrap", KindDatabase, "", fmt.Errorf("read user_version: %w", err))
	}
	if current >= schemaVersion {
		logger.Debug().Int("version", current).Msg("schema already bootstrapped")
		return optimizeSettings(db)
	}

	tx, err := db.Begin()
	if err != nil {
		return newErr("catalog.Bootstrap", KindDatabase, "", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return newErr("catalog.Bootstrap", KindDatabase, "", fmt.Errorf("exec schema stmt: %w: %s", err, stmt))
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return newErr("catalog.Bootstrap", KindDatabase, "", fmt.Errorf("set user_version: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return newErr("catalog.Bootstrap", KindDatabase, "", err)
	}

	logger.Info().Int("version", schemaVersion).Msg("catalog schema bootstrapped")
	return optimizeSettings(db)
}

// optimizeSettings applies the journal-mode/cache-size/mmap/synchronous
// pragmas from spec.md §6.1. It is safe to call repeatedly; pragmas are
// idempotent. Exposed standalone as the C6 `optimize_settings` maintenance
// operation too.
func optimizeSettings(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -65536",  // ~64 MB, negative = KiB
		"PRAGMA mmap_size = 268435456", // ~256 MB
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return newErr("catalog.optimizeSettings", KindDatabase, "", fmt.Errorf("%s: %w", p, err))
		}
	}
	return nil
}

// schemaStatements is executed in order inside one bootstrap transaction.
// FTS5 content tables use content= external-content mode with AFTER
// triggers on the base tables, per SPEC_FULL.md §4.1 / spec.md §9's
// trigger-based coherence guidance.
var schemaStatements = []string{
	// --- categories ---
	`CREATE TABLE IF NOT EXISTS categories (
		account     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		category_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		parent_id   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (account, kind, category_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_account ON categories(account, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(account, kind, parent_id)`,

	// --- channels ---
	`CREATE TABLE IF NOT EXISTS channels (
		account           TEXT NOT NULL,
		stream_id         INTEGER NOT NULL,
		name              TEXT NOT NULL,
		number            INTEGER NOT NULL DEFAULT 0,
		icon_url          TEXT NOT NULL DEFAULT '',
		epg_channel_id    TEXT NOT NULL DEFAULT '',
		category_id       TEXT NOT NULL DEFAULT '',
		archive_duration  INTEGER NOT NULL DEFAULT 0,
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL,
		PRIMARY KEY (account, stream_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_account ON channels(account)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_account_category ON channels(account, category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_name_nocase ON channels(account, name COLLATE NOCASE)`,

	// --- movies ---
	`CREATE TABLE IF NOT EXISTS movies (
		account             TEXT NOT NULL,
		stream_id           INTEGER NOT NULL,
		name                TEXT NOT NULL,
		title               TEXT NOT NULL DEFAULT '',
		year                INTEGER NOT NULL DEFAULT 0,
		rating              REAL NOT NULL DEFAULT 0,
		rating_5based       REAL NOT NULL DEFAULT 0,
		genre               TEXT NOT NULL DEFAULT '',
		category_id         TEXT NOT NULL DEFAULT '',
		plot                TEXT NOT NULL DEFAULT '',
		"cast"              TEXT NOT NULL DEFAULT '',
		director            TEXT NOT NULL DEFAULT '',
		container_extension TEXT NOT NULL DEFAULT '',
		release_date        TEXT NOT NULL DEFAULT '',
		tmdb_id             TEXT NOT NULL DEFAULT '',
		last_modified_wire  TEXT NOT NULL DEFAULT '',
		created_at          INTEGER NOT NULL,
		updated_at          INTEGER NOT NULL,
		PRIMARY KEY (account, stream_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_account ON movies(account)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_account_category ON movies(account, category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_name_nocase ON movies(account, name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_rating ON movies(account, rating DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(account, year DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_genre ON movies(account, genre)`,

	// --- series ---
	`CREATE TABLE IF NOT EXISTS series (
		account             TEXT NOT NULL,
		series_id           INTEGER NOT NULL,
		name                TEXT NOT NULL,
		title               TEXT NOT NULL DEFAULT '',
		year                INTEGER NOT NULL DEFAULT 0,
		cover_url           TEXT NOT NULL DEFAULT '',
		plot                TEXT NOT NULL DEFAULT '',
		"cast"              TEXT NOT NULL DEFAULT '',
		director            TEXT NOT NULL DEFAULT '',
		genre               TEXT NOT NULL DEFAULT '',
		rating              TEXT NOT NULL DEFAULT '',
		rating_5based       REAL NOT NULL DEFAULT 0,
		category_id         TEXT NOT NULL DEFAULT '',
		tmdb_id             TEXT NOT NULL DEFAULT '',
		last_modified_wire  TEXT NOT NULL DEFAULT '',
		created_at          INTEGER NOT NULL,
		updated_at          INTEGER NOT NULL,
		PRIMARY KEY (account, series_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_series_account ON series(account)`,
	`CREATE INDEX IF NOT EXISTS idx_series_account_category ON series(account, category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_series_name_nocase ON series(account, name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_series_rating5 ON series(account, rating_5based DESC)`,

	// --- seasons (cascades from series at the application level, see
	// Store.DeleteSeries and deleteSeriesChildrenLocked) ---
	`CREATE TABLE IF NOT EXISTS seasons (
		account       TEXT NOT NULL,
		series_id     INTEGER NOT NULL,
		season_number INTEGER NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		episode_count INTEGER NOT NULL DEFAULT 0,
		overview      TEXT NOT NULL DEFAULT '',
		air_date      TEXT NOT NULL DEFAULT '',
		cover_url     TEXT NOT NULL DEFAULT '',
		vote_average  REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (account, series_id, season_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seasons_series ON seasons(account, series_id)`,

	// --- episodes ---
	`CREATE TABLE IF NOT EXISTS episodes (
		account             TEXT NOT NULL,
		series_id           INTEGER NOT NULL,
		episode_id          TEXT NOT NULL,
		season_number       INTEGER NOT NULL,
		episode_num         TEXT NOT NULL DEFAULT '0',
		title               TEXT NOT NULL DEFAULT '',
		container_extension TEXT NOT NULL DEFAULT '',
		added_wire          TEXT NOT NULL DEFAULT '',
		info_json           TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (account, episode_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_episodes_series ON episodes(account, series_id)`,
	`CREATE INDEX IF NOT EXISTS idx_episodes_season ON episodes(account, series_id, season_number)`,

	// --- sync status / settings ---
	`CREATE TABLE IF NOT EXISTS sync_status (
		account             TEXT PRIMARY KEY,
		last_sync_channels  INTEGER NOT NULL DEFAULT 0,
		last_sync_movies    INTEGER NOT NULL DEFAULT 0,
		last_sync_series    INTEGER NOT NULL DEFAULT 0,
		state               TEXT NOT NULL DEFAULT 'pending',
		progress            INTEGER NOT NULL DEFAULT 0,
		current_step        TEXT NOT NULL DEFAULT '',
		channels_synced     INTEGER NOT NULL DEFAULT 0,
		movies_synced       INTEGER NOT NULL DEFAULT 0,
		series_synced       INTEGER NOT NULL DEFAULT 0,
		errors_json         TEXT NOT NULL DEFAULT '[]',
		last_error_message  TEXT NOT NULL DEFAULT '',
		updated_at          INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sync_settings (
		account               TEXT PRIMARY KEY,
		auto_sync_enabled     INTEGER NOT NULL DEFAULT 1,
		sync_interval_hours   INTEGER NOT NULL DEFAULT 24,
		wifi_only             INTEGER NOT NULL DEFAULT 1,
		notify_on_complete    INTEGER NOT NULL DEFAULT 0
	)`,

	// --- FTS5 external-content indexes ---
	`CREATE VIRTUAL TABLE IF NOT EXISTS channels_fts USING fts5(
		name, epg_channel_id,
		content='channels', content_rowid='rowid'
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS movies_fts USING fts5(
		name, title, genre, "cast", director, plot,
		content='movies', content_rowid='rowid'
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS series_fts USING fts5(
		name, title, genre, "cast", director, plot,
		content='series', content_rowid='rowid'
	)`,

	// --- triggers keeping FTS rows in lockstep with base rows (invariant 5) ---
	`CREATE TRIGGER IF NOT EXISTS channels_ai AFTER INSERT ON channels BEGIN
		INSERT INTO channels_fts(rowid, name, epg_channel_id)
		VALUES (new.rowid, new.name, new.epg_channel_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS channels_ad AFTER DELETE ON channels BEGIN
		INSERT INTO channels_fts(channels_fts, rowid, name, epg_channel_id)
		VALUES ('delete', old.rowid, old.name, old.epg_channel_id);
	END`,
	`CREATE TRIGGER IF NOT EXISTS channels_au AFTER UPDATE ON channels BEGIN
		INSERT INTO channels_fts(channels_fts, rowid, name, epg_channel_id)
		VALUES ('delete', old.rowid, old.name, old.epg_channel_id);
		INSERT INTO channels_fts(rowid, name, epg_channel_id)
		VALUES (new.rowid, new.name, new.epg_channel_id);
	END`,

	`CREATE TRIGGER IF NOT EXISTS movies_ai AFTER INSERT ON movies BEGIN
		INSERT INTO movies_fts(rowid, name, title, genre, "cast", director, plot)
		VALUES (new.rowid, new.name, new.title, new.genre, new."cast", new.director, new.plot);
	END`,
	`CREATE TRIGGER IF NOT EXISTS movies_ad AFTER DELETE ON movies BEGIN
		INSERT INTO movies_fts(movies_fts, rowid, name, title, genre, "cast", director, plot)
		VALUES ('delete', old.rowid, old.name, old.title, old.genre, old."cast", old.director, old.plot);
	END`,
	`CREATE TRIGGER IF NOT EXISTS movies_au AFTER UPDATE ON movies BEGIN
		INSERT INTO movies_fts(movies_fts, rowid, name, title, genre, "cast", director, plot)
		VALUES ('delete', old.rowid, old.name, old.title, old.genre, old."cast", old.director, old.plot);
		INSERT INTO movies_fts(rowid, name, title, genre, "cast", director, plot)
		VALUES (new.rowid, new.name, new.title, new.genre, new."cast", new.director, new.plot);
	END`,

	`CREATE TRIGGER IF NOT EXISTS series_ai AFTER INSERT ON series BEGIN
		INSERT INTO series_fts(rowid, name, title, genre, "cast", director, plot)
		VALUES (new.rowid, new.name, new.title, new.genre, new."cast", new.director, new.plot);
	END`,
	`CREATE TRIGGER IF NOT EXISTS series_ad AFTER DELETE ON series BEGIN
		INSERT INTO series_fts(series_fts, rowid, name, title, genre, "cast", director, plot)
		VALUES ('delete', old.rowid, old.name, old.title, old.genre, old."cast", old.director, old.plot);
	END`,
	`CREATE TRIGGER IF NOT EXISTS series_au AFTER UPDATE ON series BEGIN
		INSERT INTO series_fts(series_fts, rowid, name, title, genre, "cast", director, plot)
		VALUES ('delete', old.rowid, old.name, old.title, old.genre, old."cast", old.director, old.plot);
		INSERT INTO series_fts(rowid, name, title, genre, "cast", director, plot)
		VALUES (new.rowid, new.name, new.title, new.genre, new."cast", new.director, new.plot);
	END`,
}
