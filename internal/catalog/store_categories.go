// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CategoryFilter composes the predicates spec.md §4.2 allows for
// categories, scoped to a single CategoryKind taxonomy.
type CategoryFilter struct {
	ParentID     string
	NameContains string
	Pagination   Pagination
}

func (f CategoryFilter) where() (string, []any) {
	b := NewWhereBuilder()
	if f.ParentID != "" {
		b.Add("parent_id", OpEquals, f.ParentID)
	}
	if f.NameContains != "" {
		b.Add("name", OpLike, f.NameContains)
	}
	return b.Build()
}

// SaveCategories upserts a batch of categories for account within a single
// taxonomy (kind) in one transaction.
func (s *Store) SaveCategories(ctx context.Context, account string, kind CategoryKind, items []Category) (int, error) {
	const op = "SaveCategories"
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.CategoryID == "" {
			return 0, newErr(op, KindValidation, account, fmt.Errorf("category id must not be empty"))
		}
	}

	ctx, span := startSpan(ctx, op, account)
	defer span.End()

	var n int
	err := s.withWriteTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO categories (account, kind, category_id, name, parent_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(account, kind, category_id) DO UPDATE SET
				name=excluded.name, parent_id=excluded.parent_id
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.Exec(account, string(kind), it.CategoryID, it.Name, it.ParentID); err != nil {
				return fmt.Errorf("upsert category %s: %w", it.CategoryID, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, newErr(op, KindDatabase, account, err)
	}
	saveTotal.WithLabelValues("category_" + string(kind)).Add(float64(n))
	return n, nil
}

// DeleteCategories removes the given category ids within kind for account,
// or all categories of that kind when ids is empty and all=true.
func (s *Store) DeleteCategories(ctx context.Context, account string, kind CategoryKind, ids []string, all bool) (int, error) {
	const op = "DeleteCategories"
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
			res, err = tx.Exec(`DELETE FROM categories WHERE account = ? AND kind = ?`, account, string(kind))
		} else {
			if len(ids) == 0 {
				return nil
			}
			b := NewWhereBuilder().
				Add("account", OpEquals, account).
				Add("kind", OpEquals, string(kind))
			args := make([]any, len(ids))
			for i, id := range ids {
				args[i] = id
			}
			b.Add("category_id", OpIn, args)
			where, params := b.Build()
			res, err = tx.Exec(`DELETE FROM categories WHERE `+where, params...)
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
	deleteTotal.WithLabelValues("category_" + string(kind)).Add(float64(n))
	return int(n), nil
}

// ListCategories returns categories of kind for account matching filter.
func (s *Store) ListCategories(ctx context.Context, account string, kind CategoryKind, filter CategoryFilter) ([]Category, error) {
	const op = "list_categories"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return nil, err
	}

	query := `SELECT account, kind, category_id, name, parent_id FROM categories WHERE account = ? AND kind = ?`
	args := []any{account, string(kind)}
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

	var out []Category
	for rows.Next() {
		var c Category
		var kindStr string
		if err := rows.Scan(&c.Account, &kindStr, &c.CategoryID, &c.Name, &c.ParentID); err != nil {
			return nil, newErr(op, KindDatabase, account, err)
		}
		c.Kind = CategoryKind(kindStr)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(op, KindDatabase, account, err)
	}

	s.slow.record(op, time.Since(start), len(out))
	return out, nil
}

// CountCategories returns the number of categories of kind for account
// matching filter.
func (s *Store) CountCategories(ctx context.Context, account string, kind CategoryKind, filter CategoryFilter) (int, error) {
	const op = "count_categories"
	start := time.Now()
	if err := validateAccount(op, account); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM categories WHERE account = ? AND kind = ?`
	args := []any{account, string(kind)}
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
