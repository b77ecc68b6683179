// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var caseFold = cases.Fold()

// prepareFTSQuery turns a raw user search term into an FTS5 MATCH
// expression: FTS5 meta-characters are stripped, the remainder is split on
// whitespace, each surviving term is made a prefix match, and terms are
// OR'd together so a multi-word search still matches partial input (spec.md
// §4.4: "a search is a best-effort OR of its terms, not a strict phrase").
// An empty result means the caller should fall back to a plain, unranked
// listing.
func prepareFTSQuery(raw string) string {
	const meta = `"*():`
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(meta, r) {
			return -1
		}
		return r
	}, raw)

	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, caseFold.String(f)+"*")
	}
	return strings.Join(terms, " OR ")
}

// relevanceBucket scores how well term matches field: an exact
// case-insensitive match scores highest, a prefix match scores next, and a
// substring match scores lowest. weight lets callers weigh name matches
// above plot matches, for instance.
func relevanceBucket(field, term string, weight int) int {
	if term == "" || field == "" {
		return 0
	}
	f := caseFold.String(field)
	t := caseFold.String(term)
	switch {
	case f == t:
		return weight
	case strings.HasPrefix(f, t):
		return weight / 2
	case strings.Contains(f, t):
		return weight / 4
	default:
		return 0
	}
}

// SearchChannels full-text searches channel name/EPG id for account,
// falling back to an unranked name listing when term is empty or carries no
// usable terms.
func (s *Store) SearchChannels(ctx context.Context, account, term string, p Pagination) ([]Channel, error) {
	const op = "search_channels"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	match := prepareFTSQuery(term)
	offset, limit := p.OffsetLimit()
	var rows []Channel
	var err error
	if match == "" {
		rows, err = s.ListChannels(ctx, account, ChannelFilter{Pagination: p})
	} else {
		rows, err = s.searchChannelsFTS(ctx, account, match, term, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	s.slow.record(op, time.Since(start), len(rows))
	return rows, nil
}

func (s *Store) searchChannelsFTS(ctx context.Context, account, match, rawTerm string, offset, limit int) ([]Channel, error) {
	const op = "search_channels"
	q := `
		SELECT c.account, c.stream_id, c.name, c.number, c.icon_url, c.epg_channel_id,
			c.category_id, c.archive_duration, c.created_at, c.updated_at
		FROM channels_fts f
		JOIN channels c ON c.rowid = f.rowid
		WHERE f.channels_fts MATCH ? AND c.account = ?
		ORDER BY bm25(f) ASC
		LIMIT ? OFFSET ?`
	rs, err := s.db.QueryContext(ctx, q, match, account, limit, offset)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rs.Close()

	type scored struct {
		c     Channel
		score int
	}
	var out []scored
	for rs.Next() {
		var c Channel
		var createdAt, updatedAt int64
		if err := rs.Scan(&c.Account, &c.StreamID, &c.Name, &c.Number, &c.IconURL,
			&c.EPGChannelID, &c.CategoryID, &c.ArchiveDuration, &createdAt, &updatedAt); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, scored{c: c, score: relevanceBucket(c.Name, rawTerm, 100)})
	}
	if err := rs.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	sortByScoreDesc(out, func(i int) int { return out[i].score })
	res := make([]Channel, len(out))
	for i, o := range out {
		res[i] = o.c
	}
	return res, nil
}

// SearchMovies full-text searches movie name/title/genre/cast/director/plot
// for account. Rows are fetched in bm25() order and then stable-sorted by a
// bucketed relevance score over name, title and plot, highest first, so
// bm25() order only decides between rows with equal scores.
func (s *Store) SearchMovies(ctx context.Context, account, term string, p Pagination) ([]Movie, error) {
	const op = "search_movies"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	match := prepareFTSQuery(term)
	offset, limit := p.OffsetLimit()
	var rows []Movie
	var err error
	if match == "" {
		rows, err = s.ListMovies(ctx, account, MovieFilter{Pagination: p})
	} else {
		rows, err = s.searchMoviesFTS(ctx, account, match, term, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	s.slow.record(op, time.Since(start), len(rows))
	return rows, nil
}

func (s *Store) searchMoviesFTS(ctx context.Context, account, match, rawTerm string, offset, limit int) ([]Movie, error) {
	const op = "search_movies"
	q := `
		SELECT m.account, m.stream_id, m.name, m.title, m.year, m.rating, m.rating_5based,
			m.genre, m.category_id, m.plot, m."cast", m.director, m.container_extension,
			m.release_date, m.tmdb_id, m.last_modified_wire, m.created_at, m.updated_at
		FROM movies_fts f
		JOIN movies m ON m.rowid = f.rowid
		WHERE f.movies_fts MATCH ? AND m.account = ?
		ORDER BY bm25(f) ASC
		LIMIT ? OFFSET ?`
	rs, err := s.db.QueryContext(ctx, q, match, account, limit, offset)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rs.Close()

	type scored struct {
		m     Movie
		score int
	}
	var out []scored
	for rs.Next() {
		var m Movie
		var createdAt, updatedAt int64
		if err := rs.Scan(&m.Account, &m.StreamID, &m.Name, &m.Title, &m.Year, &m.Rating,
			&m.Rating5Based, &m.Genre, &m.CategoryID, &m.Plot, &m.Cast, &m.Director,
			&m.ContainerExt, &m.ReleaseDate, &m.TMDBID, &m.LastModifiedWire, &createdAt, &updatedAt); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		score := relevanceBucket(m.Name, rawTerm, 100) +
			relevanceBucket(m.Title, rawTerm, 80) +
			relevanceBucket(m.Plot, rawTerm, 40)
		out = append(out, scored{m: m, score: score})
	}
	if err := rs.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	sortByScoreDesc(out, func(i int) int { return out[i].score })
	res := make([]Movie, len(out))
	for i, o := range out {
		res[i] = o.m
	}
	return res, nil
}

// SearchSeries full-text searches series name/title/genre/cast/director/plot
// for account.
func (s *Store) SearchSeries(ctx context.Context, account, term string, p Pagination) ([]Series, error) {
	const op = "search_series"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	match := prepareFTSQuery(term)
	offset, limit := p.OffsetLimit()
	var rows []Series
	var err error
	if match == "" {
		rows, err = s.ListSeries(ctx, account, SeriesFilter{Pagination: p})
	} else {
		rows, err = s.searchSeriesFTS(ctx, account, match, term, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	s.slow.record(op, time.Since(start), len(rows))
	return rows, nil
}

func (s *Store) searchSeriesFTS(ctx context.Context, account, match, rawTerm string, offset, limit int) ([]Series, error) {
	const op = "search_series"
	q := `
		SELECT sr.account, sr.series_id, sr.name, sr.title, sr.year, sr.cover_url, sr.plot,
			sr."cast", sr.director, sr.genre, sr.rating, sr.rating_5based, sr.category_id,
			sr.tmdb_id, sr.last_modified_wire, sr.created_at, sr.updated_at
		FROM series_fts f
		JOIN series sr ON sr.rowid = f.rowid
		WHERE f.series_fts MATCH ? AND sr.account = ?
		ORDER BY bm25(f) ASC
		LIMIT ? OFFSET ?`
	rs, err := s.db.QueryContext(ctx, q, match, account, limit, offset)
	if err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}
	defer rs.Close()

	type scored struct {
		sr    Series
		score int
	}
	var out []scored
	for rs.Next() {
		var sr Series
		var createdAt, updatedAt int64
		if err := rs.Scan(&sr.Account, &sr.SeriesID, &sr.Name, &sr.Title, &sr.Year, &sr.CoverURL,
			&sr.Plot, &sr.Cast, &sr.Director, &sr.Genre, &sr.Rating, &sr.Rating5Based,
			&sr.CategoryID, &sr.TMDBID, &sr.LastModifiedWire, &createdAt, &updatedAt); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		sr.CreatedAt = time.Unix(createdAt, 0).UTC()
		sr.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		score := relevanceBucket(sr.Name, rawTerm, 100) +
			relevanceBucket(sr.Title, rawTerm, 80) +
			relevanceBucket(sr.Plot, rawTerm, 40)
		out = append(out, scored{sr: sr, score: score})
	}
	if err := rs.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	sortByScoreDesc(out, func(i int) int { return out[i].score })
	res := make([]Series, len(out))
	for i, o := range out {
		res[i] = o.sr
	}
	return res, nil
}

// sortByScoreDesc stable-sorts s in place by descending score. Applied to
// the bm25()-ordered rows returned by the query, this makes the bucketed
// relevance score the primary ordering key; the bm25() order survives only
// among rows with equal scores.
func sortByScoreDesc[T any](s []T, score func(i int) int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && score(j) > score(j-1); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// RebuildIndex fully rebuilds the FTS5 index for one of "channels",
// "movies" or "series" from its base table, used for recovery after a
// detected inconsistency (spec.md §6.3's rebuild_index maintenance
// operation).
func (s *Store) RebuildIndex(ctx context.Context, entity string) error {
	const op = "RebuildIndex"
	table := entity + "_fts"
	switch entity {
	case "channels", "movies", "series":
	default:
		return newErr(op, KindValidation, "", fmt.Errorf("unknown entity %q", entity))
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+table+`(`+table+`) VALUES ('rebuild')`)
	if err != nil {
		return newErr(op, KindDatabase, "", err)
	}
	return nil
}
