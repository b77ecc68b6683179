// SPDX-License-Identifier: MIT

package catalog

import "strings"

// Op is a composable predicate operator for the WHERE-clause builder
// (component C3). The set matches spec.md §4.3 exactly.
type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
	OpIn
	OpIsNull
	OpIsNotNull
	OpBetween
)

// clause is one predicate in a WhereBuilder.
type clause struct {
	column string
	op     Op
	args   []any
}

// WhereBuilder composes predicates with AND and emits a parameterized SQL
// fragment plus a flat parameter slice, ready to append to a query's WHERE
// clause. Predicates whose value is the Go zero value are expected to be
// skipped by the caller before calling Add — WhereBuilder itself does not
// second-guess "unused field" detection, that policy lives in each
// per-entity filter-to-clause translation (store_*.go).
type WhereBuilder struct {
	clauses []clause
}

// NewWhereBuilder returns an empty builder.
func NewWhereBuilder() *WhereBuilder { return &WhereBuilder{} }

// Add appends a predicate. For OpLike, value should be the raw
// (unescaped) search term; Add escapes it and wraps it in '%...%'. For
// OpIn, pass a single []any as args[0]. For OpBetween, pass exactly two
// args (lo, hi). For OpIsNull/OpIsNotNull, args are ignored.
func (b *WhereBuilder) Add(column string, op Op, args ...any) *WhereBuilder {
	b.clauses = append(b.clauses, clause{column: column, op: op, args: args})
	return b
}

// Build renders the accumulated clauses into a SQL fragment (without the
// leading "WHERE") and its positional parameters, in insertion order.
func (b *WhereBuilder) Build() (string, []any) {
	if len(b.clauses) == 0 {
		return "", nil
	}
	var parts []string
	var params []any
	for _, c := range b.clauses {
		switch c.op {
		case OpEquals:
			parts = append(parts, c.column+" = ?")
			params = append(params, c.args[0])
		case OpNotEquals:
			parts = append(parts, c.column+" <> ?")
			params = append(params, c.args[0])
		case OpLt:
			parts = append(parts, c.column+" < ?")
			params = append(params, c.args[0])
		case OpLe:
			parts = append(parts, c.column+" <= ?")
			params = append(params, c.args[0])
		case OpGt:
			parts = append(parts, c.column+" > ?")
			params = append(params, c.args[0])
		case OpGe:
			parts = append(parts, c.column+" >= ?")
			params = append(params, c.args[0])
		case OpLike:
			term, _ := c.args[0].(string)
			parts = append(parts, c.column+" LIKE ? ESCAPE '\\'")
			params = append(params, "%"+escapeLike(term)+"%")
		case OpIn:
			vals, _ := c.args[0].([]any)
			if len(vals) == 0 {
				// An empty IN-list matches nothing; render a predicate
				// that is always false instead of emitting invalid SQL.
				parts = append(parts, "1 = 0")
				continue
			}
			placeholders := make([]string, len(vals))
			for i := range vals {
				placeholders[i] = "?"
				params = append(params, vals[i])
			}
			parts = append(parts, c.column+" IN ("+strings.Join(placeholders, ", ")+")")
		case OpIsNull:
			parts = append(parts, c.column+" IS NULL")
		case OpIsNotNull:
			parts = append(parts, c.column+" IS NOT NULL")
		case OpBetween:
			parts = append(parts, c.column+" BETWEEN ? AND ?")
			params = append(params, c.args[0], c.args[1])
		}
	}
	return strings.Join(parts, " AND "), params
}

// escapeLike escapes %, _ and the escape character itself so caller-
// supplied substrings can never widen a LIKE pattern (spec.md §4.3: "All
// Like operands are pattern-sanitized").
func escapeLike(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return r.Replace(s)
}
