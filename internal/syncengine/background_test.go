package syncengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/xtream"
)

// fakeClock lets tick()'s due-time comparison be driven deterministically
// without a real timer loop.
type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time                  { return c.now }
func (c fakeClock) NewTimer(d time.Duration) Timer   { return &fakeTimer{} }

type fakeTimer struct{}

func (f *fakeTimer) C() <-chan time.Time        { return make(chan time.Time) }
func (f *fakeTimer) Stop() bool                 { return true }
func (f *fakeTimer) Reset(d time.Duration) bool { return true }

func newTestBackgroundSync(t *testing.T, accounts []xtreamAccountRef) (*catalog.Store, *BackgroundSync) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "background.db")
	store, err := catalog.Open(dbPath, catalog.DefaultConfig())
	require.NoError(t, err, "open store")
	t.Cleanup(func() { store.Close() })

	f := &fakeFetcher{movieInfo: map[int64]*xtream.WireMovieInfo{}, seriesInfo: map[int64]*xtream.WireSeriesInfo{}}
	p := NewPipeline(store, f)
	sched := NewScheduler(store, p, func(account string) (xtream.Account, error) {
		return xtream.Account{ID: account}, nil
	})

	b := NewBackgroundSync(store, sched, func() []xtreamAccountRef { return accounts })
	return store, b
}

func TestBackgroundSync_Tick_SkipsWhenAutoSyncDisabled(t *testing.T) {
	store, b := newTestBackgroundSync(t, []xtreamAccountRef{{ID: "acc-1"}})
	ctx := context.Background()

	settings := catalog.DefaultSyncSettings("acc-1")
	settings.AutoSyncEnabled = false
	if err := store.UpdateSyncSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	b.clock = fakeClock{now: time.Now().Add(48 * time.Hour)}

	b.tick(ctx)
	if b.Scheduler.IsActive("acc-1") {
		t.Fatal("should not start a sync when auto sync is disabled")
	}
}

func TestBackgroundSync_Tick_SkipsWhenNotDue(t *testing.T) {
	store, b := newTestBackgroundSync(t, []xtreamAccountRef{{ID: "acc-1"}})
	ctx := context.Background()

	settings := catalog.DefaultSyncSettings("acc-1")
	settings.SyncIntervalHours = 24
	if err := store.UpdateSyncSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	// GetSyncStatus creates a fresh row whose UpdatedAt is "now"; a clock
	// still at "now" is well before the 24h interval has elapsed.
	b.clock = fakeClock{now: time.Now()}

	b.tick(ctx)
	if b.Scheduler.IsActive("acc-1") {
		t.Fatal("should not start a sync before the interval has elapsed")
	}
}

func TestBackgroundSync_Tick_StartsSyncWhenDue(t *testing.T) {
	store, b := newTestBackgroundSync(t, []xtreamAccountRef{{ID: "acc-1"}})
	ctx := context.Background()

	settings := catalog.DefaultSyncSettings("acc-1")
	settings.SyncIntervalHours = 6
	if err := store.UpdateSyncSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := store.GetSyncStatus(ctx, "acc-1"); err != nil {
		t.Fatalf("prime sync status: %v", err)
	}
	b.clock = fakeClock{now: time.Now().Add(8 * time.Hour)}

	b.tick(ctx)
	b.Scheduler.Wait("acc-1")

	status, err := store.GetSyncStatus(ctx, "acc-1")
	require.NoError(t, err, "get sync status")
	if status.CurrentStep != string(StageFinalize) {
		t.Fatalf("CurrentStep = %q, want %q once the started sync has finished", status.CurrentStep, StageFinalize)
	}
}

func TestBackgroundSync_Tick_SkipsAlreadyActiveAccount(t *testing.T) {
	store, b := newTestBackgroundSync(t, []xtreamAccountRef{{ID: "acc-1"}})
	ctx := context.Background()

	settings := catalog.DefaultSyncSettings("acc-1")
	settings.SyncIntervalHours = 6
	if err := store.UpdateSyncSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	b.clock = fakeClock{now: time.Now().Add(8 * time.Hour)}

	if err := b.Scheduler.StartSync(ctx, "acc-1", catalog.SyncFull); err != nil {
		t.Fatalf("start sync: %v", err)
	}
	calls := 0
	b.Accounts = func() []xtreamAccountRef {
		calls++
		return []xtreamAccountRef{{ID: "acc-1"}}
	}

	b.tick(ctx)
	if calls != 1 {
		t.Fatalf("Accounts called %d times, want 1", calls)
	}
	b.Scheduler.Wait("acc-1")
}
