package xtream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testAccount(baseURL string) Account {
	return Account{
		ID:       "acc-1",
		BaseURL:  baseURL,
		Username: "user",
		Password: "pass",
	}
}

func TestHTTPFetcher_FetchCategories_BuildsExpectedRequest(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]WireCategory{{CategoryID: "1", CategoryName: "News"}})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(rate.Inf, 1)
	cats, err := f.FetchCategories(context.Background(), testAccount(srv.URL), "channel")
	require.NoError(t, err, "fetch categories")
	if len(cats) != 1 || cats[0].CategoryName != "News" {
		t.Fatalf("got %+v", cats)
	}
	if gotQuery.Get("username") != "user" || gotQuery.Get("password") != "pass" {
		t.Errorf("query missing credentials: %v", gotQuery)
	}
	if gotQuery.Get("action") != "get_live_categories" {
		t.Errorf("action = %q, want get_live_categories", gotQuery.Get("action"))
	}
}

func TestHTTPFetcher_FetchMovieInfo_IncludesVodID(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(WireMovieInfo{})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(rate.Inf, 1)
	if _, err := f.FetchMovieInfo(context.Background(), testAccount(srv.URL), 42); err != nil {
		t.Fatalf("fetch movie info: %v", err)
	}
	if gotQuery.Get("vod_id") != "42" {
		t.Errorf("vod_id = %q, want 42", gotQuery.Get("vod_id"))
	}
}

func TestHTTPFetcher_FetchSeriesInfo_IncludesSeriesID(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(WireSeriesInfo{})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(rate.Inf, 1)
	if _, err := f.FetchSeriesInfo(context.Background(), testAccount(srv.URL), 7); err != nil {
		t.Fatalf("fetch series info: %v", err)
	}
	if gotQuery.Get("series_id") != "7" {
		t.Errorf("series_id = %q, want 7", gotQuery.Get("series_id"))
	}
}

func TestHTTPFetcher_RetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]WireChannel{{StreamID: "1", Name: "A"}})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(rate.Inf, 1)
	f.policy.InitialDelay = 0
	f.policy.MaxDelay = 0

	got, err := f.FetchChannels(context.Background(), testAccount(srv.URL))
	require.NoError(t, err, "fetch channels")
	if len(got) != 1 {
		t.Fatalf("got %d channels, want 1", len(got))
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestHTTPFetcher_NonRetryableStatusFailsFast(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(rate.Inf, 1)
	f.policy.InitialDelay = 0

	_, err := f.FetchChannels(context.Background(), testAccount(srv.URL))
	require.Error(t, err, "expected error for unauthorized response")
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (401 is not retryable)", attempts)
	}
}

func TestHTTPFetcher_LimiterForIsPerAccount(t *testing.T) {
	f := NewHTTPFetcher(rate.Limit(1), 1)

	l1 := f.limiterFor("acc-1")
	l2 := f.limiterFor("acc-1")
	l3 := f.limiterFor("acc-2")

	if l1 != l2 {
		t.Error("limiterFor should return the same limiter for the same account")
	}
	if l1 == l3 {
		t.Error("limiterFor should return distinct limiters for distinct accounts")
	}
}
