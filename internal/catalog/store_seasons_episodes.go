// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"time"
)

// ListSeasons returns the seasons of a single series, ordered by season
// number. Most callers reach seasons via GetSeriesDetails; this is exposed
// standalone for C3 list operations that don't need the episode list too.
func (s *Store) ListSeasons(ctx context.Context, account string, seriesID int64) ([]Season, error) {
	const op = "list_seasons"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}
	if err := validatePositiveKey(op, account, seriesID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account, series_id, season_number, name, episode_count, overview, air_date,
			cover_url, vote_average
		FROM seasons WHERE account = ? AND series_id = ? ORDER BY season_number ASC`,
		account, seriesID)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rows.Close()

	var out []Season
	for rows.Next() {
		var sn Season
		if err := rows.Scan(&sn.Account, &sn.SeriesID, &sn.SeasonNumber, &sn.Name,
			&sn.EpisodeCount, &sn.Overview, &sn.AirDate, &sn.CoverURL, &sn.VoteAverage); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), len(out))
	return out, nil
}

// ListEpisodes returns the episodes of a single series, optionally narrowed
// to one season, ordered by season then numerically by episode number (the
// column is TEXT on the wire, e.g. "1".."10", so a lexical sort would be
// wrong).
func (s *Store) ListEpisodes(ctx context.Context, account string, seriesID int64, seasonNumber int) ([]Episode, error) {
	const op = "list_episodes"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}
	if err := validatePositiveKey(op, account, seriesID); err != nil {
		return nil, err
	}

	query := `SELECT account, series_id, episode_id, season_number, episode_num, title,
		container_extension, added_wire, info_json
		FROM episodes WHERE account = ? AND series_id = ?`
	args := []any{account, seriesID}
	if seasonNumber > 0 {
		query += " AND season_number = ?"
		args = append(args, seasonNumber)
	}
	query += " ORDER BY season_number ASC, CAST(episode_num AS INTEGER) ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.Account, &ep.SeriesID, &ep.EpisodeID, &ep.SeasonNumber,
			&ep.EpisodeNum, &ep.Title, &ep.ContainerExt, &ep.AddedWire, &ep.InfoJSON); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), len(out))
	return out, nil
}

// deleteSeriesChildrenLocked removes the seasons and episodes belonging to
// seriesID for account, called from within an active write transaction.
// Used by SaveSeriesDetails's "full replace" semantics; DeleteSeries runs
// its own multi-id cascade over seasons and episodes.
func deleteSeriesChildrenLocked(tx *sql.Tx, account string, seriesID int64) error {
	if _, err := tx.Exec(`DELETE FROM seasons WHERE account = ? AND series_id = ?`, account, seriesID); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM episodes WHERE account = ? AND series_id = ?`, account, seriesID)
	return err
}
