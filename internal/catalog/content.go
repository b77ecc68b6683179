// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
)

// GetContentCounts returns the per-entity row counts for account, used by
// the §6.2 get_content_counts operation.
func (s *Store) GetContentCounts(ctx context.Context, account string) (ContentCounts, error) {
	const op = "GetContentCounts"
	if err := validateAccount(op, account); err != nil {
		return ContentCounts{}, err
	}

	var out ContentCounts
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels WHERE account = ?`, account).Scan(&out.Channels); err != nil {
		return ContentCounts{}, newErr(op, KindDatabase, account, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies WHERE account = ?`, account).Scan(&out.Movies); err != nil {
		return ContentCounts{}, newErr(op, KindDatabase, account, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM series WHERE account = ?`, account).Scan(&out.Series); err != nil {
		return ContentCounts{}, newErr(op, KindDatabase, account, err)
	}
	return out, nil
}

// ClearAccountContent removes every row belonging to account across all
// content and status tables in one transaction — the §6.2
// clear_account_content operation. The account's sync_settings row is kept.
func (s *Store) ClearAccountContent(ctx context.Context, account string) error {
	const op = "ClearAccountContent"
	if err := validateAccount(op, account); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, op, account)
	defer span.End()

	tables := []string{"channels", "movies", "series", "seasons", "episodes",
		"categories", "sync_status"}
	return s.withWriteTx(func(tx *sql.Tx) error {
		for _, t := range tables {
			if _, err := tx.Exec(`DELETE FROM `+t+` WHERE account = ?`, account); err != nil {
				return err
			}
		}
		return nil
	})
}
