// SPDX-License-Identifier: MIT

package catalog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure-Go driver, same as the teacher's persistence layer

	"github.com/xtreamcache/xtreamcache/internal/log"
)

// Config mirrors internal/persistence/sqlite.Config: a small struct of
// operational knobs with a documented default, decoded the way the
// teacher's own Config structs are (yaml-tagged, defaults applied by a
// constructor function rather than zero-value magic).
type Config struct {
	BusyTimeout  time.Duration `yaml:"busyTimeout,omitempty"`
	SlowQueryMS  int64         `yaml:"slowQueryMs,omitempty"`
	SlowLogSize  int           `yaml:"slowLogSize,omitempty"`

	// DisableHotCache skips the short-TTL read-through cache Cache.Init
	// wraps around content counts and sync status, going straight to
	// SQLite on every read. Useful for tests asserting on read-after-write
	// freshness, or hosts that already rate-limit their own polling.
	DisableHotCache bool `yaml:"disableHotCache,omitempty"`
}

// DefaultConfig returns the recommended configuration (spec.md §6.1 / §4.3).
func DefaultConfig() Config {
	return Config{
		BusyTimeout: 5 * time.Second,
		SlowQueryMS: 100,
		SlowLogSize: 1000,
	}
}

// Store is the C2 Storage Layer: a single mutex-guarded *sql.DB handle plus
// the C3 slow-query ring buffer. All per-entity CRUD methods live in the
// store_*.go files in this package; Store itself only owns the handle and
// shared bookkeeping, mirroring
// internal/domain/session/store.SqliteStore{DB *sql.DB}.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	cfg    Config
	logger zerolog.Logger

	slow *slowLog
}

// Open opens (or creates) the SQLite database at path, applies the
// mandatory pragmas, and bootstraps the schema. It is the C2/C1 entry
// point equivalent to spec.md §6.2's `init(db_handle) → Cache`.
func Open(path string, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newErr("catalog.Open", KindDatabase, "", fmt.Errorf("open: %w", err))
	}
	// A single connection avoids SQLITE_BUSY storms across concurrent
	// per-account syncs; reads and writes all queue for that one
	// connection, so they are serialized.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, newErr("catalog.Open", KindDatabase, "", fmt.Errorf("ping: %w", err))
	}

	if err := Bootstrap(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		cfg:    cfg,
		logger: log.WithComponent("catalog.store"),
		slow:   newSlowLog(cfg.SlowLogSize, time.Duration(cfg.SlowQueryMS)*time.Millisecond),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for maintenance operations (vacuum/analyze)
// that must not run inside Store's own write helpers.
func (s *Store) DB() *sql.DB { return s.db }

func validateAccount(op, account string) error {
	if account == "" {
		return newErr(op, KindValidation, account, ErrEmptyAccount)
	}
	return nil
}

func validatePositiveKey(op, account string, key int64) error {
	if key <= 0 {
		return newErr(op, KindValidation, account, ErrInvalidKey)
	}
	return nil
}

// withWriteTx runs fn inside a transaction, serialized by Store.mu so no
// two writers interleave on the shared handle (spec.md §5: "must not await
// while holding it" — fn must be purely synchronous DB work, never a
// network call).
func (s *Store) withWriteTx(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
