// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"time"

	xgcache "github.com/xtreamcache/xtreamcache/internal/cache"
)

// countsCacheTTL bounds how stale a Cache.GetContentCounts/GetSyncStatus
// answer may be for a host polling on a tight loop (e.g. a progress bar);
// writes always go straight to the store, so this only affects read
// latency, never correctness of a write that just happened in-process.
const countsCacheTTL = 2 * time.Second

// Cache is the facade a host embeds: init once against an open database,
// then call its methods instead of reaching into Store directly. It adds a
// short-TTL read-through cache in front of the two calls a host is most
// likely to poll (content counts, sync status) so a tight status-polling
// loop doesn't hammer SQLite once per tick.
type Cache struct {
	*Store
	hot xgcache.Cache
}

// Init runs schema bootstrap against path and returns a ready Cache (spec's
// init(db_handle) operation). cfg.DisableHotCache swaps in a no-op hot
// cache so every read goes straight through to the store.
func Init(path string, cfg Config) (*Cache, error) {
	store, err := Open(path, cfg)
	if err != nil {
		return nil, err
	}
	hot := xgcache.NewMemoryCache(countsCacheTTL)
	if cfg.DisableHotCache {
		hot = xgcache.NewNoOpCache()
	}
	return &Cache{
		Store: store,
		hot:   hot,
	}, nil
}

// GetContentCounts overrides Store's method with a short-TTL read-through
// cache; the Save/Clear/PutSyncStatus overrides below invalidate the
// relevant key. Deletes, category and series-detail writes, and writes made
// directly on the embedded Store do not invalidate it.
func (c *Cache) GetContentCounts(ctx context.Context, account string) (ContentCounts, error) {
	key := "counts:" + account
	if v, ok := c.hot.Get(key); ok {
		return v.(ContentCounts), nil
	}
	counts, err := c.Store.GetContentCounts(ctx, account)
	if err != nil {
		return ContentCounts{}, err
	}
	c.hot.Set(key, counts, countsCacheTTL)
	return counts, nil
}

// GetSyncStatus overrides Store's method with the same read-through cache.
func (c *Cache) GetSyncStatus(ctx context.Context, account string) (SyncStatus, error) {
	key := "status:" + account
	if v, ok := c.hot.Get(key); ok {
		return v.(SyncStatus), nil
	}
	st, err := c.Store.GetSyncStatus(ctx, account)
	if err != nil {
		return SyncStatus{}, err
	}
	c.hot.Set(key, st, countsCacheTTL)
	return st, nil
}

// PutSyncStatus writes through to the store and invalidates the cached
// status/counts for account so the next read reflects it immediately.
func (c *Cache) PutSyncStatus(ctx context.Context, st SyncStatus) error {
	if err := c.Store.PutSyncStatus(ctx, st); err != nil {
		return err
	}
	c.invalidate(st.Account)
	return nil
}

// ClearAccountContent writes through to the store and invalidates account's
// cached entries.
func (c *Cache) ClearAccountContent(ctx context.Context, account string) error {
	if err := c.Store.ClearAccountContent(ctx, account); err != nil {
		return err
	}
	c.invalidate(account)
	return nil
}

// SaveChannels writes through and invalidates account's cached counts.
func (c *Cache) SaveChannels(ctx context.Context, account string, items []Channel) (int, error) {
	n, err := c.Store.SaveChannels(ctx, account, items)
	if err == nil {
		c.hot.Delete("counts:" + account)
	}
	return n, err
}

// SaveMovies writes through and invalidates account's cached counts.
func (c *Cache) SaveMovies(ctx context.Context, account string, items []Movie) (int, error) {
	n, err := c.Store.SaveMovies(ctx, account, items)
	if err == nil {
		c.hot.Delete("counts:" + account)
	}
	return n, err
}

// SaveSeries writes through and invalidates account's cached counts.
func (c *Cache) SaveSeries(ctx context.Context, account string, items []Series) (int, error) {
	n, err := c.Store.SaveSeries(ctx, account, items)
	if err == nil {
		c.hot.Delete("counts:" + account)
	}
	return n, err
}

func (c *Cache) invalidate(account string) {
	c.hot.Delete("counts:" + account)
	c.hot.Delete("status:" + account)
}

// Close stops the hot-read cache's janitor (if running) in addition to
// closing the underlying store.
func (c *Cache) Close() error {
	if stopper, ok := c.hot.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	return c.Store.Close()
}
