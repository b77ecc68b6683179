// SPDX-License-Identifier: MIT

package catalog

// Pagination is the (offset, limit) a caller wants applied to a list query.
// PageIndex is 0-based; PageSize <= 0 means "no limit."
type Pagination struct {
	PageIndex int
	PageSize  int
}

// OffsetLimit returns the (offset, limit) SQL parameters for this page,
// component C3's pagination helper. A non-positive PageSize is rendered as
// "no limit" (limit = -1, which SQLite treats as unbounded).
func (p Pagination) OffsetLimit() (offset, limit int) {
	if p.PageSize <= 0 {
		return 0, -1
	}
	idx := p.PageIndex
	if idx < 0 {
		idx = 0
	}
	return idx * p.PageSize, p.PageSize
}

// Page wraps a slice of results with the grand total, for callers that
// need both the page and the total count (spec.md §4.3's "total-count
// companion query").
type Page[T any] struct {
	Items []T
	Total int
}
