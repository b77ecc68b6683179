// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"sync"

	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/log"
	"github.com/xtreamcache/xtreamcache/internal/xtream"
)

// AccountResolver looks up the Xtream credentials for a given account id.
// Owning that mapping is outside this package's scope; the scheduler only
// needs to resolve an id into something it can hand to a Pipeline.
type AccountResolver func(account string) (xtream.Account, error)

// inflight tracks one account's currently-running sync: its cancel func, a
// single buffered progress channel, and a done channel closed when the run
// ends. Modeled directly on
// manager.Orchestrator's active map{string]context.CancelFunc}, extended
// with a progress channel since this domain's callers poll progress rather
// than subscribing to a session bus.
type inflight struct {
	cancel   context.CancelFunc
	progress chan Progress
	done     chan struct{}
}

// Scheduler enforces "at most one sync per account" (invariant I6) and lets
// callers start, cancel, and observe syncs without blocking on their
// completion.
type Scheduler struct {
	mu     sync.Mutex
	active map[string]*inflight

	store    *catalog.Store
	pipeline *Pipeline
	resolve  AccountResolver
}

// NewScheduler builds a Scheduler backed by store and pipeline, resolving
// account ids to Xtream credentials via resolve.
func NewScheduler(store *catalog.Store, pipeline *Pipeline, resolve AccountResolver) *Scheduler {
	return &Scheduler{
		active:   make(map[string]*inflight),
		store:    store,
		pipeline: pipeline,
		resolve:  resolve,
	}
}

// StartSync registers account as in-flight and launches the appropriate
// runner in a new goroutine. Returns catalog.ErrSyncInProgress if a sync
// for account is already running (invariant I6: single-flight per
// account).
func (s *Scheduler) StartSync(ctx context.Context, account string, mode catalog.SyncMode) error {
	s.mu.Lock()
	if _, exists := s.active[account]; exists {
		s.mu.Unlock()
		return catalog.ErrSyncInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	fl := &inflight{
		cancel:   cancel,
		progress: make(chan Progress, 16),
		done:     make(chan struct{}),
	}
	s.active[account] = fl
	s.mu.Unlock()

	logger := log.WithComponent("syncengine.scheduler")

	acct, err := s.resolve(account)
	if err != nil {
		s.mu.Lock()
		delete(s.active, account)
		s.mu.Unlock()
		close(fl.progress)
		cancel()
		return err
	}

	logger.Info().Str(log.FieldAccount, account).Str("mode", string(mode)).Msg("sync started")

	go func() {
		defer close(fl.done)
		defer cancel()

		var result Result
		if mode == catalog.SyncIncremental {
			result = s.pipeline.RunIncremental(runCtx, account, acct, fl.progress)
		} else {
			result = s.pipeline.RunFull(runCtx, account, acct, fl.progress)
		}
		close(fl.progress)

		s.mu.Lock()
		delete(s.active, account)
		s.mu.Unlock()

		logger.Info().Str(log.FieldAccount, account).
			Int("channels", result.Channels).Int("movies", result.Movies).
			Int("series", result.Series).Bool("cancelled", result.Cancelled).
			Msg("sync finished")
	}()
	return nil
}

// CancelSync requests cancellation of account's in-flight sync, if any. It
// returns immediately; the run will observe ctx.Done() at its next
// cancellation checkpoint and unwind to a Cancelled/Partial result rather
// than stopping mid-write.
func (s *Scheduler) CancelSync(account string) error {
	s.mu.Lock()
	fl, exists := s.active[account]
	s.mu.Unlock()
	if !exists {
		return catalog.ErrNotFound
	}
	fl.cancel()
	return nil
}

// IsActive reports whether account currently has a sync in flight.
func (s *Scheduler) IsActive(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.active[account]
	return exists
}

// Progress returns the channel of progress events for account's in-flight
// sync, or nil if none is running. The channel is closed when the sync
// finishes.
func (s *Scheduler) Progress(account string) <-chan Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	fl, exists := s.active[account]
	if !exists {
		return nil
	}
	return fl.progress
}

// Wait blocks until account's in-flight sync (if any) finishes.
func (s *Scheduler) Wait(account string) {
	s.mu.Lock()
	fl, exists := s.active[account]
	s.mu.Unlock()
	if !exists {
		return
	}
	<-fl.done
}

// Shutdown cancels every in-flight sync and waits for them all to unwind,
// for a host's graceful shutdown. Neither BackgroundSync nor
// cmd/catalogctl calls it.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	var dones []chan struct{}
	for _, fl := range s.active {
		fl.cancel()
		dones = append(dones, fl.done)
	}
	s.mu.Unlock()

	for _, d := range dones {
		<-d
	}
}
