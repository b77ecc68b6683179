// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// SeriesFilter composes the predicates spec.md §4.2 allows for series.
type SeriesFilter struct {
	Category      string
	NameContains  string
	GenreContains string
	Year          int
	MinRating5    float64
	Pagination    Pagination
}

func (f SeriesFilter) where() (string, []any) {
	b := NewWhereBuilder()
	if f.Category != "" {
		b.Add("category_id", OpEquals, f.Category)
	}
	if f.NameContains != "" {
		b.Add("name", OpLike, f.NameContains)
	}
	if f.GenreContains != "" {
		b.Add("genre", OpLike, f.GenreContains)
	}
	if f.Year != 0 {
		b.Add("year", OpEquals, f.Year)
	}
	if f.MinRating5 != 0 {
		b.Add("rating_5based", OpGe, f.MinRating5)
	}
	return b.Build()
}

// SaveSeries upserts a batch of series for account in a single transaction.
// It does not touch seasons/episodes; use SaveSeriesDetails for a full
// series-with-relationships write (invariant I9).
func (s *Store) SaveSeries(ctx context.Context, account string, items []Series) (int, error) {
	const op = "SaveSeries"
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := validatePositiveKey(op, account, it.SeriesID); err != nil {
			return 0, err
		}
	}

	ctx, span := startSpan(ctx, op, account)
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(items)))

	now := time.Now().Unix()
	var n int
	err := s.withWriteTx(func(tx *sql.Tx) error {
		for _, it := range items {
			if err := upsertSeriesRow(tx, account, it, now); err != nil {
				return err
			}
			n++
		}
		return s.refreshContentCountLocked(tx, account, "series_synced", len(items))
	})
	if err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	saveTotal.WithLabelValues("series").Add(float64(n))
	return n, nil
}

func upsertSeriesRow(tx *sql.Tx, account string, it Series, now int64) error {
	_, err := tx.Exec(`
		INSERT INTO series (account, series_id, name, title, year, cover_url, plot, "cast",
			director, genre, rating, rating_5based, category_id, tmdb_id, last_modified_wire,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, series_id) DO UPDATE SET
			name=excluded.name, title=excluded.title, year=excluded.year,
			cover_url=excluded.cover_url, plot=excluded.plot, "cast"=excluded."cast",
			director=excluded.director, genre=excluded.genre, rating=excluded.rating,
			rating_5based=excluded.rating_5based, category_id=excluded.category_id,
			tmdb_id=excluded.tmdb_id, last_modified_wire=excluded.last_modified_wire,
			updated_at=excluded.updated_at
	`, account, it.SeriesID, it.Name, it.Title, it.Year, it.CoverURL, it.Plot, it.Cast,
		it.Director, it.Genre, it.Rating, it.Rating5Based, it.CategoryID, it.TMDBID,
		it.LastModifiedWire, now, now)
	if err != nil {
		return fmt.Errorf("upsert series %d: %w", it.SeriesID, err)
	}
	return nil
}

// SaveSeriesDetails atomically writes a series row plus its full seasons and
// episodes list in one transaction (invariant I9: "series_details is
// written as a unit — never partially"). Existing seasons/episodes for the
// series not present in details are removed, so this is a full replace, not
// a merge.
func (s *Store) SaveSeriesDetails(ctx context.Context, account string, details SeriesDetails) error {
	const op = "SaveSeriesDetails"
	if err := validateAccount(op, account); err != nil {
		return err
	}
	if err := validatePositiveKey(op, account, details.Series.SeriesID); err != nil {
		return err
	}

	ctx, span := startSpan(ctx, op, account)
	defer span.End()

	now := time.Now().Unix()
	err := s.withWriteTx(func(tx *sql.Tx) error {
		if err := upsertSeriesRow(tx, account, details.Series, now); err != nil {
			return err
		}

		if err := deleteSeriesChildrenLocked(tx, account, details.Series.SeriesID); err != nil {
			return fmt.Errorf("clear seasons/episodes: %w", err)
		}
		for _, sn := range details.Seasons {
			if _, err := tx.Exec(`
				INSERT INTO seasons (account, series_id, season_number, name, episode_count,
					overview, air_date, cover_url, vote_average)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				account, details.Series.SeriesID, sn.SeasonNumber, sn.Name, sn.EpisodeCount,
				sn.Overview, sn.AirDate, sn.CoverURL, sn.VoteAverage); err != nil {
				return fmt.Errorf("insert season %d: %w", sn.SeasonNumber, err)
			}
		}

		for _, ep := range details.Episodes {
			if _, err := tx.Exec(`
				INSERT INTO episodes (account, series_id, episode_id, season_number, episode_num,
					title, container_extension, added_wire, info_json)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				account, details.Series.SeriesID, ep.EpisodeID, ep.SeasonNumber, ep.EpisodeNum,
				ep.Title, ep.ContainerExt, ep.AddedWire, ep.InfoJSON); err != nil {
				return fmt.Errorf("insert episode %s: %w", ep.EpisodeID, err)
			}
		}

		return s.refreshContentCountLocked(tx, account, "series_synced", 1)
	})
	if err != nil {
		return newErr(op, KindDatabase, account, err)
	}
	saveTotal.WithLabelValues("series_details").Add(1)
	return nil
}

// GetSeriesDetails reads a series row together with its seasons and
// episodes. Returns ErrNotFound if the series row itself is absent.
func (s *Store) GetSeriesDetails(ctx context.Context, account string, seriesID int64) (SeriesDetails, error) {
	const op = "GetSeriesDetails"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return SeriesDetails{}, err
	}
	if err := validatePositiveKey(op, account, seriesID); err != nil {
		return SeriesDetails{}, err
	}

	var out SeriesDetails
	row := s.db.QueryRowContext(ctx, `
		SELECT account, series_id, name, title, year, cover_url, plot, "cast", director, genre,
			rating, rating_5based, category_id, tmdb_id, last_modified_wire, created_at, updated_at
		FROM series WHERE account = ? AND series_id = ?`, account, seriesID)
	var createdAt, updatedAt int64
	sr := &out.Series
	err := row.Scan(&sr.Account, &sr.SeriesID, &sr.Name, &sr.Title, &sr.Year, &sr.CoverURL,
		&sr.Plot, &sr.Cast, &sr.Director, &sr.Genre, &sr.Rating, &sr.Rating5Based,
		&sr.CategoryID, &sr.TMDBID, &sr.LastModifiedWire, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return SeriesDetails{}, newErr(op, KindNotFound, account, fmt.Errorf("series %d: %w", seriesID, ErrNotFound))
	}
	if err != nil {
		return SeriesDetails{}, newErr(op, KindDatabase, account, err)
	}
	sr.CreatedAt = time.Unix(createdAt, 0).UTC()
	sr.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	seasonRows, err := s.db.QueryContext(ctx, `
		SELECT account, series_id, season_number, name, episode_count, overview, air_date,
			cover_url, vote_average
		FROM seasons WHERE account = ? AND series_id = ? ORDER BY season_number ASC`,
		account, seriesID)
	if err != nil {
		return SeriesDetails{}, newErr(op, KindDatabase, account, err)
	}
	defer seasonRows.Close()
	for seasonRows.Next() {
		var sn Season
		if err := seasonRows.Scan(&sn.Account, &sn.SeriesID, &sn.SeasonNumber, &sn.Name,
			&sn.EpisodeCount, &sn.Overview, &sn.AirDate, &sn.CoverURL, &sn.VoteAverage); err != nil {
			return SeriesDetails{}, newErr(op, KindDatabase, account, err)
		}
		out.Seasons = append(out.Seasons, sn)
	}
	if err := seasonRows.Err(); err != nil {
		return SeriesDetails{}, newErr(op, KindDatabase, account, err)
	}

	// Episodes are ordered numerically by episode_num even though the
	// column is TEXT, since providers send values like "1", "2", "10".
	episodeRows, err := s.db.QueryContext(ctx, `
		SELECT account, series_id, episode_id, season_number, episode_num, title,
			container_extension, added_wire, info_json
		FROM episodes WHERE account = ? AND series_id = ?
		ORDER BY season_number ASC, CAST(episode_num AS INTEGER) ASC`, account, seriesID)
	if err != nil {
		return SeriesDetails{}, newErr(op, KindDatabase, account, err)
	}
	defer episodeRows.Close()
	for episodeRows.Next() {
		var ep Episode
		if err := episodeRows.Scan(&ep.Account, &ep.SeriesID, &ep.EpisodeID, &ep.SeasonNumber,
			&ep.EpisodeNum, &ep.Title, &ep.ContainerExt, &ep.AddedWire, &ep.InfoJSON); err != nil {
			return SeriesDetails{}, newErr(op, KindDatabase, account, err)
		}
		out.Episodes = append(out.Episodes, ep)
	}
	if err := episodeRows.Err(); err != nil {
		return SeriesDetails{}, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), 1+len(out.Seasons)+len(out.Episodes))
	return out, nil
}

// DeleteSeries removes the given series ids for account (cascading their
// seasons/episodes at the application level), or all series when ids is
// empty and all=true.
func (s *Store) DeleteSeries(ctx context.Context, account string, ids []int64, all bool) (int, error) {
	const op = "DeleteSeries"
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	ctx, span := startSpan(ctx, op, account)
	defer span.End()

	var n int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		var targetIDs []int64
		if all {
			rows, err := tx.Query(`SELECT series_id FROM series WHERE account = ?`, account)
			if err != nil {
				return err
			}
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return err
				}
				targetIDs = append(targetIDs, id)
			}
			rows.Close()
		} else {
			targetIDs = ids
		}
		if len(targetIDs) == 0 {
			return nil
		}

		b := NewWhereBuilder().Add("account", OpEquals, account)
		args := make([]any, len(targetIDs))
		for i, id := range targetIDs {
			args[i] = id
		}
		b.Add("series_id", OpIn, args)
		where, params := b.Build()

		if _, err := tx.Exec(`DELETE FROM seasons WHERE `+where, params...); err != nil {
			return fmt.Errorf("cascade delete seasons: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM episodes WHERE `+where, params...); err != nil {
			return fmt.Errorf("cascade delete episodes: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM series WHERE `+where, params...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	deleteTotal.WithLabelValues("series").Add(float64(n))
	return int(n), nil
}

// ListSeries returns series for account matching filter, sorted by name
// case-insensitively.
func (s *Store) ListSeries(ctx context.Context, account string, filter SeriesFilter) ([]Series, error) {
	const op = "list_series"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	query := `SELECT account, series_id, name, title, year, cover_url, plot, "cast", director,
		genre, rating, rating_5based, category_id, tmdb_id, last_modified_wire, created_at, updated_at
		FROM series WHERE account = ?`
	args := []any{account}
	if extra, extraArgs := filter.where(); extra != "" {
		query += " AND " + extra
		args = append(args, extraArgs...)
	}
	query += " ORDER BY name COLLATE NOCASE ASC"
	offset, limit := filter.Pagination.OffsetLimit()
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		var sr Series
		var createdAt, updatedAt int64
		if err := rows.Scan(&sr.Account, &sr.SeriesID, &sr.Name, &sr.Title, &sr.Year, &sr.CoverURL,
			&sr.Plot, &sr.Cast, &sr.Director, &sr.Genre, &sr.Rating, &sr.Rating5Based,
			&sr.CategoryID, &sr.TMDBID, &sr.LastModifiedWire, &createdAt, &updatedAt); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		sr.CreatedAt = time.Unix(createdAt, 0).UTC()
		sr.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), len(out))
	return out, nil
}

// CountSeries returns the number of series for account matching filter.
func (s *Store) CountSeries(ctx context.Context, account string, filter SeriesFilter) (int, error) {
	const op = "count_series"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM series WHERE account = ?`
	args := []any{account}
	if extra, extraArgs := filter.where(); extra != "" {
		query += " AND " + extra
		args = append(args, extraArgs...)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	s.slow.record(op, time.Since(start), 1)
	return n, nil
}
