// SPDX-License-Identifier: MIT

package catalog

import (
	"sync"
	"time"

	"github.com/xtreamcache/xtreamcache/internal/log"
)

// QueryRecord is one entry in the slow-query ring buffer (component C3).
type QueryRecord struct {
	Kind      string // e.g. "list_movies", "search_series"
	ElapsedMS int64
	Rows      int
	At        time.Time
	Slow      bool
}

// slowLog is a bounded, mutex-guarded ring of the most recently executed
// queries: a fixed-size slice with the oldest entry dropped on overflow,
// applied to query telemetry instead of log lines.
type slowLog struct {
	mu        sync.Mutex
	entries   []QueryRecord
	capacity  int
	threshold time.Duration
}

func newSlowLog(capacity int, threshold time.Duration) *slowLog {
	if capacity <= 0 {
		capacity = 1000
	}
	if threshold <= 0 {
		threshold = 100 * time.Millisecond
	}
	return &slowLog{capacity: capacity, threshold: threshold}
}

// record appends a query observation, emitting a warn-level log line when
// it exceeds the configured threshold.
func (s *slowLog) record(kind string, elapsed time.Duration, rows int) {
	rec := QueryRecord{
		Kind:      kind,
		ElapsedMS: elapsed.Milliseconds(),
		Rows:      rows,
		At:        time.Now(),
		Slow:      elapsed > s.threshold,
	}
	queryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	s.mu.Lock()
	s.entries = append(s.entries, rec)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	s.mu.Unlock()

	if rec.Slow {
		log.WithComponent("catalog.query").Warn().
			Str("kind", kind).
			Int64("elapsed_ms", rec.ElapsedMS).
			Int("rows", rows).
			Msg("slow catalog query")
	}
}

// Recent returns the n most recent query records, most recent last.
func (s *slowLog) Recent(n int) []QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]QueryRecord, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// Slow returns only the entries that exceeded the threshold, most recent
// last.
func (s *slowLog) Slow() []QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []QueryRecord
	for _, e := range s.entries {
		if e.Slow {
			out = append(out, e)
		}
	}
	return out
}

// RecentQueries exposes the store's slow-query ring to callers.
func (s *Store) RecentQueries(n int) []QueryRecord { return s.slow.Recent(n) }

// SlowQueries exposes only threshold-exceeding entries.
func (s *Store) SlowQueries() []QueryRecord { return s.slow.Slow() }
