// SPDX-License-Identifier: MIT

package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/xtreamcache/xtreamcache/internal/log"
)

// Account is the minimal set of Xtream panel credentials a Fetcher needs.
type Account struct {
	ID       string
	BaseURL  string
	Username string
	Password string
}

// Fetcher retrieves content from an Xtream panel. It is the seam the sync
// pipeline (component C5) depends on, letting tests substitute a fake
// implementation without a live panel.
type Fetcher interface {
	FetchCategories(ctx context.Context, acct Account, kind string) ([]WireCategory, error)
	FetchChannels(ctx context.Context, acct Account) ([]WireChannel, error)
	FetchMovies(ctx context.Context, acct Account) ([]WireMovie, error)
	FetchMovieInfo(ctx context.Context, acct Account, streamID int64) (*WireMovieInfo, error)
	FetchSeries(ctx context.Context, acct Account) ([]WireSeries, error)
	FetchSeriesInfo(ctx context.Context, acct Account, seriesID int64) (*WireSeriesInfo, error)
}

// HTTPFetcher is the production Fetcher, talking to a real Xtream panel
// over HTTP with per-account pacing and retry.
type HTTPFetcher struct {
	client *http.Client
	policy RetryPolicy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	limiterRate  rate.Limit
	limiterBurst int
}

// NewHTTPFetcher builds an HTTPFetcher. perAccountRate/perAccountBurst size
// the per-account token bucket used to pace outbound panel requests,
// mirroring internal/ratelimit.Limiter's per-key limiter map but keyed by
// account instead of client IP.
func NewHTTPFetcher(perAccountRate rate.Limit, perAccountBurst int) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		policy:       DefaultRetryPolicy(),
		limiters:     make(map[string]*rate.Limiter),
		limiterRate:  perAccountRate,
		limiterBurst: perAccountBurst,
	}
}

func (f *HTTPFetcher) limiterFor(account string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[account]
	if !ok {
		l = rate.NewLimiter(f.limiterRate, f.limiterBurst)
		f.limiters[account] = l
	}
	return l
}

func (f *HTTPFetcher) get(ctx context.Context, acct Account, action string, extra url.Values, out any) error {
	if err := f.limiterFor(acct.ID).Wait(ctx); err != nil {
		return err
	}

	q := url.Values{
		"username": {acct.Username},
		"password": {acct.Password},
		"action":   {action},
	}
	for k, v := range extra {
		q[k] = v
	}
	endpoint := acct.BaseURL + "/player_api.php?" + q.Encode()

	logger := log.WithComponent("xtream.fetcher")

	return withRetry(ctx, f.policy, func(attempt int) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return 0, err
		}
		start := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			logger.Warn().Str("action", action).Int("attempt", attempt).Err(err).Msg("xtream fetch failed")
			return 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, err
		}
		if resp.StatusCode >= 400 {
			return resp.StatusCode, fmt.Errorf("panel returned status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", action, err)
		}
		logger.Debug().Str("action", action).Int("attempt", attempt).
			Dur("elapsed", time.Since(start)).Msg("xtream fetch ok")
		return resp.StatusCode, nil
	})
}

func (f *HTTPFetcher) FetchCategories(ctx context.Context, acct Account, kind string) ([]WireCategory, error) {
	action := map[string]string{
		"channel": "get_live_categories",
		"movie":   "get_vod_categories",
		"series":  "get_series_categories",
	}[kind]
	var out []WireCategory
	if err := f.get(ctx, acct, action, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *HTTPFetcher) FetchChannels(ctx context.Context, acct Account) ([]WireChannel, error) {
	var out []WireChannel
	if err := f.get(ctx, acct, "get_live_streams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *HTTPFetcher) FetchMovies(ctx context.Context, acct Account) ([]WireMovie, error) {
	var out []WireMovie
	if err := f.get(ctx, acct, "get_vod_streams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *HTTPFetcher) FetchMovieInfo(ctx context.Context, acct Account, streamID int64) (*WireMovieInfo, error) {
	var out WireMovieInfo
	extra := url.Values{"vod_id": {fmt.Sprint(streamID)}}
	if err := f.get(ctx, acct, "get_vod_info", extra, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFetcher) FetchSeries(ctx context.Context, acct Account) ([]WireSeries, error) {
	var out []WireSeries
	if err := f.get(ctx, acct, "get_series", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *HTTPFetcher) FetchSeriesInfo(ctx context.Context, acct Account, seriesID int64) (*WireSeriesInfo, error) {
	var out WireSeriesInfo
	extra := url.Values{"series_id": {fmt.Sprint(seriesID)}}
	if err := f.get(ctx, acct, "get_series_info", extra, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
