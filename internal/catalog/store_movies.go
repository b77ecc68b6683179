// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// MovieSort selects the ORDER BY for ListMovies.
type MovieSort string

const (
	MovieSortName   MovieSort = "name"
	MovieSortRating MovieSort = "rating"
	MovieSortYear   MovieSort = "year"
	MovieSortAdded  MovieSort = "added"
)

// MovieFilter composes the predicates spec.md §4.2 allows for movies.
type MovieFilter struct {
	Category     string
	NameContains string
	GenreContains string
	Year         int
	MinRating    float64
	SortBy       MovieSort
	Descending   bool
	Pagination   Pagination
}

func (f MovieFilter) where() (string, []any) {
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
	if f.MinRating != 0 {
		b.Add("rating", OpGe, f.MinRating)
	}
	return b.Build()
}

func (f MovieFilter) orderBy() string {
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	switch f.SortBy {
	case MovieSortRating:
		return "rating " + dir
	case MovieSortYear:
		return "year " + dir
	case MovieSortAdded:
		return "created_at " + dir
	default:
		return "name COLLATE NOCASE " + dir
	}
}

// SaveMovies upserts a batch of movies for account in a single transaction
// (invariant 4: all-or-nothing). Existing rows keep their created_at.
func (s *Store) SaveMovies(ctx context.Context, account string, items []Movie) (int, error) {
	const op = "SaveMovies"
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := validatePositiveKey(op, account, it.StreamID); err != nil {
			return 0, err
		}
	}

	ctx, span := startSpan(ctx, op, account)
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(items)))

	now := time.Now().Unix()
	var n int
	err := s.withWriteTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO movies (account, stream_id, name, title, year, rating, rating_5based,
				genre, category_id, plot, "cast", director, container_extension, release_date,
				tmdb_id, last_modified_wire, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(account, stream_id) DO UPDATE SET
				name=excluded.name, title=excluded.title, year=excluded.year,
				rating=excluded.rating, rating_5based=excluded.rating_5based,
				genre=excluded.genre, category_id=excluded.category_id, plot=excluded.plot,
				"cast"=excluded."cast", director=excluded.director,
				container_extension=excluded.container_extension, release_date=excluded.release_date,
				tmdb_id=excluded.tmdb_id, last_modified_wire=excluded.last_modified_wire,
				updated_at=excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.Exec(account, it.StreamID, it.Name, it.Title, it.Year, it.Rating,
				it.Rating5Based, it.Genre, it.CategoryID, it.Plot, it.Cast, it.Director,
				it.ContainerExt, it.ReleaseDate, it.TMDBID, it.LastModifiedWire, now, now); err != nil {
				return fmt.Errorf("upsert movie %d: %w", it.StreamID, err)
			}
			n++
		}
		return s.refreshContentCountLocked(tx, account, "movies_synced", len(items))
	})
	if err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	saveTotal.WithLabelValues("movie").Add(float64(n))
	return n, nil
}

// DeleteMovies removes the given stream ids for account, or all movies when
// ids is empty and all=true.
func (s *Store) DeleteMovies(ctx context.Context, account string, ids []int64, all bool) (int, error) {
	const op = "DeleteMovies"
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	ctx, span := startSpan(ctx, op, account)
	defer span.End()

	var n int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		var res sql.Result
		var err error
		if all {
			res, err = tx.Exec(`DELETE FROM movies WHERE account = ?`, account)
		} else {
			if len(ids) == 0 {
				return nil
			}
			b := NewWhereBuilder().Add("account", OpEquals, account)
			args := make([]any, len(ids))
			for i, id := range ids {
				args[i] = id
			}
			b.Add("stream_id", OpIn, args)
			where, params := b.Build()
			res, err = tx.Exec(`DELETE FROM movies WHERE `+where, params...)
		}
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	deleteTotal.WithLabelValues("movie").Add(float64(n))
	return int(n), nil
}

// ListMovies returns movies for account matching filter, sorted per
// filter.SortBy (defaulting to case-insensitive name ascending).
func (s *Store) ListMovies(ctx context.Context, account string, filter MovieFilter) ([]Movie, error) {
	const op = "list_movies"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	query := `SELECT account, stream_id, name, title, year, rating, rating_5based, genre,
		category_id, plot, "cast", director, container_extension, release_date, tmdb_id,
		last_modified_wire, created_at, updated_at
		FROM movies WHERE account = ?`
	args := []any{account}
	if extra, extraArgs := filter.where(); extra != "" {
		query += " AND " + extra
		args = append(args, extraArgs...)
	}
	query += " ORDER BY " + filter.orderBy()
	offset, limit := filter.Pagination.OffsetLimit()
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rows.Close()

	var out []Movie
	for rows.Next() {
		var m Movie
		var createdAt, updatedAt int64
		if err := rows.Scan(&m.Account, &m.StreamID, &m.Name, &m.Title, &m.Year, &m.Rating,
			&m.Rating5Based, &m.Genre, &m.CategoryID, &m.Plot, &m.Cast, &m.Director,
			&m.ContainerExt, &m.ReleaseDate, &m.TMDBID, &m.LastModifiedWire, &createdAt, &updatedAt); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), len(out))
	return out, nil
}

// CountMovies returns the number of movies for account matching filter.
func (s *Store) CountMovies(ctx context.Context, account string, filter MovieFilter) (int, error) {
	const op = "count_movies"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM movies WHERE account = ?`
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
