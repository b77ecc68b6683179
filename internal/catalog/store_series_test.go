package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveSeriesDetails_FullReplace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := Series{SeriesID: 10, Name: "Show", Genre: "Drama"}
	if _, err := store.SaveSeries(ctx, "acc-1", []Series{base}); err != nil {
		t.Fatalf("save series: %v", err)
	}

	details := SeriesDetails{
		Series: base,
		Seasons: []Season{
			{SeriesID: 10, SeasonNumber: 1, Name: "Season 1", EpisodeCount: 2},
		},
		Episodes: []Episode{
			{SeriesID: 10, EpisodeID: "e1", SeasonNumber: 1, EpisodeNum: "1", Title: "Pilot"},
			{SeriesID: 10, EpisodeID: "e2", SeasonNumber: 1, EpisodeNum: "2", Title: "Second"},
		},
	}
	if err := store.SaveSeriesDetails(ctx, "acc-1", details); err != nil {
		t.Fatalf("save series details: %v", err)
	}

	got, err := store.GetSeriesDetails(ctx, "acc-1", 10)
	require.NoError(t, err, "get series details")
	if len(got.Seasons) != 1 || len(got.Episodes) != 2 {
		t.Fatalf("got seasons=%d episodes=%d, want 1/2", len(got.Seasons), len(got.Episodes))
	}

	// Full replace: re-saving with a different episode set must not leave
	// the prior episodes behind (invariant I9).
	details.Episodes = []Episode{
		{SeriesID: 10, EpisodeID: "e3", SeasonNumber: 1, EpisodeNum: "1", Title: "Replacement"},
	}
	if err := store.SaveSeriesDetails(ctx, "acc-1", details); err != nil {
		t.Fatalf("re-save series details: %v", err)
	}
	got, err = store.GetSeriesDetails(ctx, "acc-1", 10)
	require.NoError(t, err, "get series details after replace")
	if len(got.Episodes) != 1 || got.Episodes[0].EpisodeID != "e3" {
		t.Fatalf("got episodes %+v, want only e3", got.Episodes)
	}
}

func TestGetSeriesDetails_NotFound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetSeriesDetails(ctx, "acc-1", 999)
	require.Error(t, err, "expected error for missing series")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListEpisodes_NumericOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := Series{SeriesID: 1, Name: "Show"}
	details := SeriesDetails{
		Series: base,
		Episodes: []Episode{
			{SeriesID: 1, EpisodeID: "e10", SeasonNumber: 1, EpisodeNum: "10"},
			{SeriesID: 1, EpisodeID: "e2", SeasonNumber: 1, EpisodeNum: "2"},
			{SeriesID: 1, EpisodeID: "e1", SeasonNumber: 1, EpisodeNum: "1"},
		},
	}
	if _, err := store.SaveSeries(ctx, "acc-1", []Series{base}); err != nil {
		t.Fatalf("save series: %v", err)
	}
	if err := store.SaveSeriesDetails(ctx, "acc-1", details); err != nil {
		t.Fatalf("save series details: %v", err)
	}

	eps, err := store.ListEpisodes(ctx, "acc-1", 1, 1)
	require.NoError(t, err, "list episodes")
	if len(eps) != 3 {
		t.Fatalf("len = %d, want 3", len(eps))
	}
	want := []string{"1", "2", "10"}
	for i, w := range want {
		if eps[i].EpisodeNum != w {
			t.Errorf("eps[%d].EpisodeNum = %q, want %q (numeric, not lexical, ordering)", i, eps[i].EpisodeNum, w)
		}
	}
}
