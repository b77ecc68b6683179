// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/log"
	"github.com/xtreamcache/xtreamcache/internal/xtream"
)

// Pipeline runs full and incremental syncs against a catalog.Store using a
// xtream.Fetcher, emitting Progress as it walks four sync stages
// (categories of all three content types together, channels, movies,
// series) and then writing the terminal status under StageFinalize. Series
// details are fetched inside the series stage; StageSeriesDetails is not
// emitted.
type Pipeline struct {
	Store        *catalog.Store
	Fetcher      xtream.Fetcher
	DetailWorkers int // bounded concurrency for per-series detail fetches
}

// NewPipeline builds a Pipeline with a sane default detail-fetch
// concurrency.
func NewPipeline(store *catalog.Store, fetcher xtream.Fetcher) *Pipeline {
	return &Pipeline{Store: store, Fetcher: fetcher, DetailWorkers: 4}
}

func (p *Pipeline) emit(progress chan<- Progress, account string, stage Stage, done, total int, msg string) {
	if progress == nil {
		return
	}
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	select {
	case progress <- Progress{
		Account: account, Stage: stage, Percent: pct,
		ItemsDone: done, ItemsTotal: total, Message: msg, At: time.Now(),
	}:
	default:
		// Drop progress events rather than block the sync if the caller
		// isn't draining the channel fast enough.
	}
}

// RunFull performs a complete sync for account in four stages, each worth
// a quarter of the progress: categories (channel, movie and series
// categories in one stage), channels, movies, and series with their
// details; finalize then writes the terminal status. It checks ctx at
// every stage boundary (the C5 cancellation checkpoints) and writes the
// final status as Completed, Partial (some stages failed or it was
// cancelled after doing partial work) or Failed.
func (p *Pipeline) RunFull(ctx context.Context, account string, acct xtream.Account, progress chan<- Progress) Result {
	logger := log.WithComponent("syncengine.pipeline")
	result := Result{Account: account, Mode: "full", Started: time.Now()}

	stages := []stageSpec{
		{StageCategories, func(ctx context.Context) error { return p.syncCategories(ctx, account, acct) }, nil},
		{StageChannels, func(ctx context.Context) error { return p.syncChannels(ctx, account, acct, &result) }, stampChannels},
		{StageMovies, func(ctx context.Context) error { return p.syncMovies(ctx, account, acct, nil, &result) }, stampMovies},
		{StageSeries, func(ctx context.Context) error { return p.syncSeries(ctx, account, acct, nil, &result) }, stampSeries},
	}

	p.runStages(ctx, logger, account, progress, stages, &result)

	result.Finished = time.Now()
	p.finalize(ctx, account, &result)
	return result
}

// RunIncremental walks the same stages as RunFull but skips unchanged
// movies/series (the timestamp comparison in syncMovies/syncSeries) so only
// new or updated movie and series rows touch the database, and
// fetch_series_details is only called for series that are new or whose
// last_modified changed (invariant I9). Channels are still upserted in full.
func (p *Pipeline) RunIncremental(ctx context.Context, account string, acct xtream.Account, progress chan<- Progress) Result {
	logger := log.WithComponent("syncengine.pipeline")
	result := Result{Account: account, Mode: "incremental", Started: time.Now()}

	existingMovies, err := p.existingMovieTimestamps(ctx, account)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	existingSeries, err := p.existingSeriesTimestamps(ctx, account)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	stages := []stageSpec{
		{StageCategories, func(ctx context.Context) error { return p.syncCategories(ctx, account, acct) }, nil},
		{StageChannels, func(ctx context.Context) error { return p.syncChannels(ctx, account, acct, &result) }, stampChannels},
		{StageMovies, func(ctx context.Context) error { return p.syncMovies(ctx, account, acct, existingMovies, &result) }, stampMovies},
		{StageSeries, func(ctx context.Context) error { return p.syncSeries(ctx, account, acct, existingSeries, &result) }, stampSeries},
	}

	p.runStages(ctx, logger, account, progress, stages, &result)

	result.Finished = time.Now()
	p.finalize(ctx, account, &result)
	return result
}

// stageSpec pairs a sync stage with the optional per-stage last_sync_*
// stamp it should apply to the status row once it succeeds (spec.md
// §4.5.1 steps 2/6): syncCategories has none, since it touches no
// last_sync_* column.
type stageSpec struct {
	name  Stage
	run   func(context.Context) error
	stamp func(*catalog.SyncStatus, time.Time)
}

func stampChannels(st *catalog.SyncStatus, now time.Time) { st.LastSyncChannels = now }
func stampMovies(st *catalog.SyncStatus, now time.Time)   { st.LastSyncMovies = now }
func stampSeries(st *catalog.SyncStatus, now time.Time)   { st.LastSyncSeries = now }

// runStages walks stages in order, checking ctx at every boundary (the C5
// cancellation checkpoints), emitting progress, publishing a mid-pipeline
// Syncing status snapshot before each stage runs so a host polling
// get_sync_status observes at least one Syncing row, and stamping the
// stage's own last_sync_* column independently the moment it succeeds
// rather than all at once in finalize.
func (p *Pipeline) runStages(ctx context.Context, logger zerolog.Logger, account string, progress chan<- Progress, stages []stageSpec, result *Result) {
	for i, stage := range stages {
		if ctx.Err() != nil {
			result.Cancelled = true
			return
		}
		p.emit(progress, account, stage.name, i, len(stages), "running")
		p.markSyncing(ctx, account, stage.name, i, len(stages), result)
		if err := stage.run(ctx); err != nil {
			logger.Warn().Str(log.FieldAccount, account).Str(log.FieldStage, string(stage.name)).Err(err).Msg("sync stage failed")
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if stage.stamp != nil {
			p.stampStage(ctx, account, stage.stamp, result)
		}
	}
}

// markSyncing persists an interpolated-progress Syncing snapshot so a host
// polling get_sync_status mid-run observes State == Syncing (spec.md
// §4.4/§4.5.4), not just the single terminal write finalize makes.
func (p *Pipeline) markSyncing(ctx context.Context, account string, stage Stage, done, total int, result *Result) {
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	st := catalog.SyncStatus{
		Account:        account,
		State:          catalog.SyncSyncing,
		Progress:       pct,
		CurrentStep:    string(stage),
		ChannelsSynced: result.Channels,
		MoviesSynced:   result.Movies,
		SeriesSynced:   result.Series,
		Errors:         result.Errors,
	}
	_ = p.Store.PutSyncStatus(ctx, st)
}

// stampStage writes a Syncing snapshot carrying only the one last_sync_*
// column set picks, relying on stampTouchedColumns to leave the other two
// untouched (spec.md §8.3's boundary test: a cancellation mid-pipeline
// must leave earlier stages' timestamps updated without advancing later
// ones).
func (p *Pipeline) stampStage(ctx context.Context, account string, set func(*catalog.SyncStatus, time.Time), result *Result) {
	st := catalog.SyncStatus{
		Account:        account,
		State:          catalog.SyncSyncing,
		ChannelsSynced: result.Channels,
		MoviesSynced:   result.Movies,
		SeriesSynced:   result.Series,
		Errors:         result.Errors,
	}
	set(&st, time.Now())
	_ = p.Store.PutSyncStatus(ctx, st)
}

func (p *Pipeline) syncCategories(ctx context.Context, account string, acct xtream.Account) error {
	for kind, catKind := range map[string]catalog.CategoryKind{
		"channel": catalog.CategoryChannel,
		"movie":   catalog.CategoryMovie,
		"series":  catalog.CategorySeries,
	} {
		wire, err := p.Fetcher.FetchCategories(ctx, acct, kind)
		if err != nil {
			return err
		}
		items := make([]catalog.Category, 0, len(wire))
		for _, w := range wire {
			items = append(items, mapCategory(account, catKind, w))
		}
		if _, err := p.Store.SaveCategories(ctx, account, catKind, items); err != nil {
			return err
		}
	}
	return nil
}

// syncChannels fetches the full channel list and saves it, then deletes
// any cached channel whose id is absent from the freshly-fetched set (the
// "delete" leg of spec.md §4.5.2's diff: existing \ server).
func (p *Pipeline) syncChannels(ctx context.Context, account string, acct xtream.Account, result *Result) error {
	wire, err := p.Fetcher.FetchChannels(ctx, acct)
	if err != nil {
		return err
	}
	items := make([]catalog.Channel, 0, len(wire))
	keep := make(map[int64]bool, len(wire))
	for _, w := range wire {
		c := mapChannel(account, w)
		items = append(items, c)
		keep[c.StreamID] = true
	}
	n, err := p.Store.SaveChannels(ctx, account, items)
	if err != nil {
		return err
	}
	result.Channels = n

	cached, err := p.Store.ListChannels(ctx, account, catalog.ChannelFilter{})
	if err != nil {
		return err
	}
	var drop []int64
	for _, c := range cached {
		if !keep[c.StreamID] {
			drop = append(drop, c.StreamID)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	_, err = p.Store.DeleteChannels(ctx, account, drop, false)
	return err
}

// syncMovies fetches the movie list and, for any movie that's new or whose
// upstream added timestamp advanced relative to existing (nil means "treat
// everything as new", the full-sync case), fetches get_vod_info to fill in
// the fields the list endpoint omits.
func (p *Pipeline) syncMovies(ctx context.Context, account string, acct xtream.Account, existing map[int64]string, result *Result) error {
	wire, err := p.Fetcher.FetchMovies(ctx, acct)
	if err != nil {
		return err
	}

	var toDetail []xtream.WireMovie
	base := make(map[int64]catalog.Movie, len(wire))
	for _, w := range wire {
		m := mapMovie(account, w)
		base[m.StreamID] = m
		if existing == nil {
			toDetail = append(toDetail, w)
			continue
		}
		if last, ok := existing[m.StreamID]; !ok || last != m.LastModifiedWire {
			toDetail = append(toDetail, w)
		}
	}

	detailed, err := p.fetchMovieDetails(ctx, acct, toDetail)
	if err != nil {
		return err
	}
	for id, info := range detailed {
		if m, ok := base[id]; ok {
			base[id] = mergeMovieInfo(m, info)
		}
	}

	items := make([]catalog.Movie, 0, len(base))
	keep := make(map[int64]bool, len(base))
	for _, m := range base {
		keep[m.StreamID] = true
		if last, ok := existing[m.StreamID]; ok && last == m.LastModifiedWire {
			continue // unchanged since the last sync: the cached row stays as it is
		}
		items = append(items, m)
	}
	n, err := p.Store.SaveMovies(ctx, account, items)
	if err != nil {
		return err
	}
	result.Movies = n

	cached, err := p.Store.ListMovies(ctx, account, catalog.MovieFilter{})
	if err != nil {
		return err
	}
	var drop []int64
	for _, m := range cached {
		if !keep[m.StreamID] {
			drop = append(drop, m.StreamID)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	_, err = p.Store.DeleteMovies(ctx, account, drop, false)
	return err
}

func (p *Pipeline) fetchMovieDetails(ctx context.Context, acct xtream.Account, wire []xtream.WireMovie) (map[int64]*xtream.WireMovieInfo, error) {
	out := make(map[int64]*xtream.WireMovieInfo, len(wire))
	if len(wire) == 0 {
		return out, nil
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(p.DetailWorkers))
	for _, w := range wire {
		w := w
		g.Go(func() error {
			id := w.StreamID.Int64()
			info, err := p.Fetcher.FetchMovieInfo(gctx, acct, id)
			if err != nil {
				return nil // best-effort: a failed detail fetch keeps the list-level row
			}
			mu.Lock()
			out[id] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// syncSeries fetches the series list, saves the base rows, and then fetches
// full details (seasons/episodes) only for series that are new or whose
// last_modified advanced (invariant I9), bounded to DetailWorkers
// concurrent fetches.
func (p *Pipeline) syncSeries(ctx context.Context, account string, acct xtream.Account, existing map[int64]string, result *Result) error {
	wire, err := p.Fetcher.FetchSeries(ctx, acct)
	if err != nil {
		return err
	}

	items := make([]catalog.Series, 0, len(wire))
	keep := make(map[int64]bool, len(wire))
	var needsDetail []catalog.Series
	for _, w := range wire {
		sr := mapSeries(account, w)
		keep[sr.SeriesID] = true
		if last, ok := existing[sr.SeriesID]; ok && last == sr.LastModifiedWire {
			continue // unchanged since the last sync: the cached rows stay as they are
		}
		items = append(items, sr)
		needsDetail = append(needsDetail, sr)
	}
	n, err := p.Store.SaveSeries(ctx, account, items)
	if err != nil {
		return err
	}
	result.Series = n

	cached, err := p.Store.ListSeries(ctx, account, catalog.SeriesFilter{})
	if err != nil {
		return err
	}
	var drop []int64
	for _, sr := range cached {
		if !keep[sr.SeriesID] {
			drop = append(drop, sr.SeriesID)
		}
	}
	if len(drop) > 0 {
		if _, err := p.Store.DeleteSeries(ctx, account, drop, false); err != nil {
			return err
		}
	}

	if len(needsDetail) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(p.DetailWorkers))
	for _, sr := range needsDetail {
		sr := sr
		g.Go(func() error {
			info, err := p.Fetcher.FetchSeriesInfo(gctx, acct, sr.SeriesID)
			if err != nil {
				return nil // best-effort, same as movie details
			}
			details := mapSeriesDetails(account, sr.SeriesID, sr, info)
			return p.Store.SaveSeriesDetails(gctx, account, details)
		})
	}
	return g.Wait()
}

func (p *Pipeline) existingMovieTimestamps(ctx context.Context, account string) (map[int64]string, error) {
	rows, err := p.Store.ListMovies(ctx, account, catalog.MovieFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for _, m := range rows {
		out[m.StreamID] = m.LastModifiedWire
	}
	return out, nil
}

func (p *Pipeline) existingSeriesTimestamps(ctx context.Context, account string) (map[int64]string, error) {
	rows, err := p.Store.ListSeries(ctx, account, catalog.SeriesFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for _, sr := range rows {
		out[sr.SeriesID] = sr.LastModifiedWire
	}
	return out, nil
}

// finalize writes the terminal SyncStatus: Completed when no errors and not
// cancelled; Failed when nothing was ever written, whether that's because
// every stage errored or because cancellation struck before any stage
// completed (spec.md §5's cancelled→Failed transition); Partial when some
// content was already written before an error or a cancellation cut the
// run short. It never touches last_sync_channels/movies/series itself —
// runStages already stamped each one independently as its own stage
// succeeded.
func (p *Pipeline) finalize(ctx context.Context, account string, result *Result) {
	wroteSomething := result.Channels+result.Movies+result.Series > 0
	state := catalog.SyncCompleted
	switch {
	case result.Cancelled && !wroteSomething:
		state = catalog.SyncFailed
	case result.Cancelled:
		state = catalog.SyncPartial
	case len(result.Errors) > 0 && !wroteSomething:
		state = catalog.SyncFailed
	case len(result.Errors) > 0:
		state = catalog.SyncPartial
	}

	st := catalog.SyncStatus{
		Account:        account,
		State:          state,
		Progress:       100,
		CurrentStep:    string(StageFinalize),
		ChannelsSynced: result.Channels,
		MoviesSynced:   result.Movies,
		SeriesSynced:   result.Series,
		Errors:         result.Errors,
	}
	if len(result.Errors) > 0 {
		st.LastErrorMessage = result.Errors[len(result.Errors)-1]
	}
	_ = p.Store.PutSyncStatus(ctx, st)
}

func workers(n int) int {
	if n <= 0 {
		return 4
	}
	return n
}
