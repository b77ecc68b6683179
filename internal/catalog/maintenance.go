// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/google/renameio/v2"

	"github.com/xtreamcache/xtreamcache/internal/log"
)

// vacuumFreePageRatioThreshold is the free-page fraction above which
// ShouldVacuum recommends reclaiming space, mirroring the threshold the
// teacher's own database-size alerting uses for "is this worth compacting".
const vacuumFreePageRatioThreshold = 0.20

// AnalyzeTables runs ANALYZE so the query planner's statistics stay current
// after large batch writes (component C6's analyze_tables operation).
func (s *Store) AnalyzeTables(ctx context.Context) error {
	const op = "AnalyzeTables"
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return newErr(op, KindDatabase, "", err)
	}
	return nil
}

// ShouldVacuum reports whether the database's free-page ratio exceeds
// vacuumFreePageRatioThreshold, meaning a Vacuum call would meaningfully
// shrink the file on disk.
func (s *Store) ShouldVacuum(ctx context.Context) (bool, error) {
	const op = "ShouldVacuum"
	var pageCount, freelistCount int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return false, newErr(op, KindDatabase, "", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA freelist_count").Scan(&freelistCount); err != nil {
		return false, newErr(op, KindDatabase, "", err)
	}
	if pageCount == 0 {
		return false, nil
	}
	ratio := float64(freelistCount) / float64(pageCount)
	return ratio > vacuumFreePageRatioThreshold, nil
}

// Vacuum reclaims free pages. It must never be called from inside a
// transaction; VACUUM is its own top-level statement against the
// connection.
func (s *Store) Vacuum(ctx context.Context) error {
	const op = "Vacuum"
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return newErr(op, KindDatabase, "", err)
	}
	log.WithComponent("catalog.maintenance").Info().Msg("vacuum complete")
	return nil
}

// CheckIntegrity runs SQLite's built-in integrity check and returns an
// error describing the first reported problem, if any. Grounded on the
// teacher's persistence-layer verification pass run after snapshot restore.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	const op = "CheckIntegrity"
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return newErr(op, KindDatabase, "", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return newErr(op, KindDatabase, "", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return newErr(op, KindDatabase, "", err)
	}
	if len(problems) > 0 {
		return newErr(op, KindDatabase, "", fmt.Errorf("integrity check failed: %v", problems))
	}
	return nil
}

// OptimizeSettings (re-)applies the operational pragmas from spec.md §6.1.
// Exposed here as the public C6 maintenance operation; schema.Bootstrap
// calls the same underlying function on open.
func (s *Store) OptimizeSettings() error {
	return optimizeSettings(s.db)
}

// ExportSnapshot writes a consistent point-in-time copy of the database to
// destPath, using SQLite's VACUUM INTO (a single-statement, read-consistent
// export) followed by an atomic rename so readers of destPath never observe
// a partially-written file, the same guarantee the teacher's atomic
// file-writer helper gives its config snapshots.
func (s *Store) ExportSnapshot(ctx context.Context, destPath string) error {
	const op = "ExportSnapshot"
	tmp := destPath + ".snapshot.tmp"
	_ = os.Remove(tmp)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return newErr(op, KindDatabase, "", fmt.Errorf("vacuum into: %w", err))
	}
	defer os.Remove(tmp)

	data, err := os.ReadFile(tmp)
	if err != nil {
		return newErr(op, KindDatabase, "", fmt.Errorf("read snapshot: %w", err))
	}
	if err := renameio.WriteFile(destPath, data, 0o644); err != nil {
		return newErr(op, KindDatabase, "", fmt.Errorf("atomic rename snapshot: %w", err))
	}
	return nil
}
