// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ensureStatusRowLocked makes sure a sync_status row exists for account,
// called from within an active write transaction before any count
// refresh. SyncStatus is "created implicitly on first write" per spec.md
// §3.3.
func ensureStatusRowLocked(tx *sql.Tx, account string) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO sync_status (account, updated_at) VALUES (?, ?)`,
		account, time.Now().Unix())
	return err
}

// refreshContentCountLocked recomputes the persisted per-content-type
// count for entity ("channels", "movies" or "series") from the base table,
// within tx. Recomputing rather than incrementally adjusting keeps the
// count correct regardless of how many rows in the batch were inserts vs.
// updates (an upsert batch of N items may touch fewer than N new rows).
func refreshContentCountLocked(tx *sql.Tx, account, entity string) error {
	if err := ensureStatusRowLocked(tx, account); err != nil {
		return err
	}
	var table, column string
	switch entity {
	case "channels":
		table, column = "channels", "channels_synced"
	case "movies":
		table, column = "movies", "movies_synced"
	case "series":
		table, column = "series", "series_synced"
	default:
		return fmt.Errorf("refreshContentCountLocked: unknown entity %q", entity)
	}
	_, err := tx.Exec(
		fmt.Sprintf(`UPDATE sync_status SET %s = (SELECT COUNT(*) FROM %s WHERE account = ?), updated_at = ? WHERE account = ?`, column, table),
		account, time.Now().Unix(), account,
	)
	return err
}

// method form used by store_*.go, thin wrapper kept for call-site brevity.
func (s *Store) refreshContentCountLocked(tx *sql.Tx, account, column string, _ int) error {
	entity := map[string]string{
		"channels_synced": "channels",
		"movies_synced":   "movies",
		"series_synced":   "series",
	}[column]
	return refreshContentCountLocked(tx, account, entity)
}

// GetSyncStatus returns the persisted sync status for account (spec.md
// §6.2's get_sync_status). Unknown accounts yield a zero-value Pending
// status, per §3.3 ("a fresh account is Pending").
func (s *Store) GetSyncStatus(ctx context.Context, account string) (SyncStatus, error) {
	const op = "GetSyncStatus"
	if err := validateAccount(op, account); err != nil {
		return SyncStatus{}, err
	}

	var st SyncStatus
	var lastChannels, lastMovies, lastSeries, updatedAt int64
	var state, errorsJSON string
	row := s.db.QueryRowContext(ctx, `
		SELECT last_sync_channels, last_sync_movies, last_sync_series, state, progress,
			current_step, channels_synced, movies_synced, series_synced, errors_json,
			last_error_message, updated_at
		FROM sync_status WHERE account = ?`, account)
	err := row.Scan(&lastChannels, &lastMovies, &lastSeries, &state, &st.Progress,
		&st.CurrentStep, &st.ChannelsSynced, &st.MoviesSynced, &st.SeriesSynced, &errorsJSON,
		&st.LastErrorMessage, &updatedAt)
	if err == sql.ErrNoRows {
		return SyncStatus{Account: account, State: SyncPending}, nil
	}
	if err != nil {
		return SyncStatus{}, newErr(op, KindDatabase, account, err)
	}

	st.Account = account
	st.State = SyncState(state)
	if lastChannels > 0 {
		st.LastSyncChannels = time.Unix(lastChannels, 0).UTC()
	}
	if lastMovies > 0 {
		st.LastSyncMovies = time.Unix(lastMovies, 0).UTC()
	}
	if lastSeries > 0 {
		st.LastSyncSeries = time.Unix(lastSeries, 0).UTC()
	}
	st.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if errorsJSON != "" {
		_ = json.Unmarshal([]byte(errorsJSON), &st.Errors)
	}
	return st, nil
}

// PutSyncStatus persists a full status snapshot, used by the sync pipeline
// to emit progress (spec.md §4.5.4). It is the only writer of status
// transitions (invariant 6's "only the pipeline itself writes Completed,
// Partial, or Failed").
func (s *Store) PutSyncStatus(ctx context.Context, st SyncStatus) error {
	const op = "PutSyncStatus"
	if err := validateAccount(op, st.Account); err != nil {
		return err
	}

	errorsJSON, err := json.Marshal(st.Errors)
	if err != nil {
		return newErr(op, KindSerialization, st.Account, err)
	}

	return s.withWriteTx(func(tx *sql.Tx) error {
		if err := ensureStatusRowLocked(tx, st.Account); err != nil {
			return err
		}
		_, err := tx.Exec(`
			UPDATE sync_status SET
				state = ?, progress = ?, current_step = ?,
				channels_synced = ?, movies_synced = ?, series_synced = ?,
				errors_json = ?, last_error_message = ?, updated_at = ?
				`+stampTouchedColumns(st)+`
			WHERE account = ?`,
			string(st.State), st.Progress, st.CurrentStep,
			st.ChannelsSynced, st.MoviesSynced, st.SeriesSynced,
			string(errorsJSON), st.LastErrorMessage, time.Now().Unix(),
			st.Account,
		)
		return err
	})
}

// stampTouchedColumns renders the optional last_sync_* SET clauses: only
// timestamps that are non-zero in st are written, so a progress update
// mid-pipeline doesn't clobber a content type's timestamp with zero before
// that stage has run.
func stampTouchedColumns(st SyncStatus) string {
	out := ""
	if !st.LastSyncChannels.IsZero() {
		out += fmt.Sprintf(", last_sync_channels = %d", st.LastSyncChannels.Unix())
	}
	if !st.LastSyncMovies.IsZero() {
		out += fmt.Sprintf(", last_sync_movies = %d", st.LastSyncMovies.Unix())
	}
	if !st.LastSyncSeries.IsZero() {
		out += fmt.Sprintf(", last_sync_series = %d", st.LastSyncSeries.Unix())
	}
	return out
}
