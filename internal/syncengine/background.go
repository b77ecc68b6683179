// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/log"
)

// Clock abstracts time.NewTimer so the tick loop can be driven
// deterministically in tests, the same seam dvr.Scheduler uses for its own
// periodic run loop.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer abstracts time.Timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time          { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer { return &realTimer{t: time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// BackgroundSync is component C6: a tick loop that, on a configurable
// cadence, checks every account's SyncSettings and starts an incremental
// sync for any account whose interval has elapsed and whose NetworkPolicy
// currently allows it.
type BackgroundSync struct {
	Store     *catalog.Store
	Scheduler *Scheduler
	Network   NetworkPolicy
	Accounts  func() []xtreamAccountRef

	TickInterval time.Duration
	clock        Clock
	logger       zerolog.Logger

	mu      sync.Mutex
	running bool
}

// xtreamAccountRef is the minimal account identity BackgroundSync needs to
// decide whether to start a sync; resolving it to full xtream.Account
// credentials is the caller-supplied Accounts func's job, since that
// mapping belongs to whatever layer manages stored credentials.
type xtreamAccountRef struct {
	ID string
}

// NewBackgroundSync builds a BackgroundSync whose TickInterval defaults to
// 30 minutes, independent of any one account's own sync_interval_hours —
// the loop wakes on that cadence and compares against each account's own
// due time.
func NewBackgroundSync(store *catalog.Store, scheduler *Scheduler, accounts func() []xtreamAccountRef) *BackgroundSync {
	return &BackgroundSync{
		Store:        store,
		Scheduler:    scheduler,
		Network:      AlwaysWiFi,
		Accounts:     accounts,
		TickInterval: 30 * time.Minute,
		clock:        RealClock{},
		logger:       log.WithComponent("syncengine.background"),
	}
}

// Start begins the tick loop in a background goroutine; it returns
// immediately and stops when ctx is cancelled.
func (b *BackgroundSync) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go b.loop(ctx)
}

func (b *BackgroundSync) loop(ctx context.Context) {
	b.logger.Info().Dur("interval", b.TickInterval).Msg("background sync loop started")
	timer := b.clock.NewTimer(b.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("background sync loop stopping")
			return
		case <-timer.C():
			b.tick(ctx)
			timer.Reset(b.TickInterval)
		}
	}
}

func (b *BackgroundSync) tick(ctx context.Context) {
	for _, acct := range b.Accounts() {
		if ctx.Err() != nil {
			return
		}
		if b.Scheduler.IsActive(acct.ID) {
			continue
		}

		settings, err := b.Store.GetSyncSettings(ctx, acct.ID)
		if err != nil {
			b.logger.Warn().Str("account", acct.ID).Err(err).Msg("read sync settings failed")
			continue
		}
		if !settings.AutoSyncEnabled {
			continue
		}
		if !b.Network.Allowed(settings.WiFiOnly) {
			continue
		}

		status, err := b.Store.GetSyncStatus(ctx, acct.ID)
		if err != nil {
			b.logger.Warn().Str("account", acct.ID).Err(err).Msg("read sync status failed")
			continue
		}
		due := status.UpdatedAt.Add(time.Duration(settings.SyncIntervalHours) * time.Hour)
		if b.clock.Now().Before(due) {
			continue
		}

		if err := b.Scheduler.StartSync(ctx, acct.ID, catalog.SyncIncremental); err != nil {
			b.logger.Debug().Str("account", acct.ID).Err(err).Msg("background sync skipped")
		}
	}
}
