// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// ChannelFilter composes the predicates spec.md §4.2 allows for channels.
// Zero-valued fields are ignored (unused fields are ignored per spec).
type ChannelFilter struct {
	Category     string
	NameContains string
	Pagination   Pagination
}

func (f ChannelFilter) where() (string, []any) {
	b := NewWhereBuilder()
	if f.Category != "" {
		b.Add("category_id", OpEquals, f.Category)
	}
	if f.NameContains != "" {
		b.Add("name", OpLike, f.NameContains)
	}
	return b.Build()
}

// SaveChannels upserts a batch of channels for account in a single
// transaction (invariant 4: all-or-nothing). Existing rows keep their
// created_at; new rows get created_at = now. Returns the number of rows
// written.
func (s *Store) SaveChannels(ctx context.Context, account string, items []Channel) (int, error) {
	const op = "SaveChannels"
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
			INSERT INTO channels (account, stream_id, name, number, icon_url, epg_channel_id, category_id, archive_duration, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(account, stream_id) DO UPDATE SET
				name=excluded.name, number=excluded.number, icon_url=excluded.icon_url,
				epg_channel_id=excluded.epg_channel_id, category_id=excluded.category_id,
				archive_duration=excluded.archive_duration, updated_at=excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.Exec(account, it.StreamID, it.Name, it.Number, it.IconURL,
				it.EPGChannelID, it.CategoryID, it.ArchiveDuration, now, now); err != nil {
				return fmt.Errorf("upsert channel %d: %w", it.StreamID, err)
			}
			n++
		}
		return s.refreshContentCountLocked(tx, account, "channels_synced", len(items))
	})
	if err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	saveTotal.WithLabelValues("channel").Add(float64(n))
	return n, nil
}

// DeleteChannels removes the given stream ids for account, or all channels
// when ids is empty and all=true.
func (s *Store) DeleteChannels(ctx context.Context, account string, ids []int64, all bool) (int, error) {
	const op = "DeleteChannels"
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
			res, err = tx.Exec(`DELETE FROM channels WHERE account = ?`, account)
		} else {
			if len(ids) == 0 {
				return nil
			}
			b := NewWhereBuilder()
			b.Add("account", OpEquals, account)
			args := make([]any, len(ids))
			for i, id := range ids {
				args[i] = id
			}
			b.Add("stream_id", OpIn, args)
			where, params := b.Build()
			res, err = tx.Exec(`DELETE FROM channels WHERE `+where, params...)
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
	deleteTotal.WithLabelValues("channel").Add(float64(n))
	return int(n), nil
}

// ListChannels returns channels for account matching filter, sorted by
// name case-insensitively.
func (s *Store) ListChannels(ctx context.Context, account string, filter ChannelFilter) ([]Channel, error) {
	const op = "list_channels"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	extra, extraArgs := filter.where()
	query := `SELECT account, stream_id, name, number, icon_url, epg_channel_id, category_id, archive_duration, created_at, updated_at
		FROM channels WHERE account = ?`
	args := []any{account}
	if extra != "" {
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

	var out []Channel
	for rows.Next() {
		var c Channel
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.Account, &c.StreamID, &c.Name, &c.Number, &c.IconURL,
			&c.EPGChannelID, &c.CategoryID, &c.ArchiveDuration, &createdAt, &updatedAt); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), len(out))
	return out, nil
}

// CountChannels returns the number of channels for account matching filter.
func (s *Store) CountChannels(ctx context.Context, account string, filter ChannelFilter) (int, error) {
	const op = "count_channels"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM channels WHERE account = ?`
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
