package syncengine

import (
	"encoding/json"
	"testing"

	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/xtream"
)

func TestMapCategory(t *testing.T) {
	w := xtream.WireCategory{CategoryID: "5", CategoryName: "News", ParentID: "0"}
	got := mapCategory("acc-1", catalog.CategoryMovie, w)

	if got.Account != "acc-1" || got.Kind != catalog.CategoryMovie || got.CategoryID != "5" || got.Name != "News" {
		t.Fatalf("got %+v", got)
	}
}

func TestMapChannel_NumericFieldsFromFlexString(t *testing.T) {
	var w xtream.WireChannel
	raw := `{"stream_id":"100","name":"BBC","num":"1","category_id":"3","tv_archive":"1","tv_archive_duration":"48"}`
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := mapChannel("acc-1", w)
	if got.StreamID != 100 {
		t.Errorf("StreamID = %d, want 100", got.StreamID)
	}
	if got.Number != 1 {
		t.Errorf("Number = %d, want 1", got.Number)
	}
	if got.ArchiveDuration != 48 {
		t.Errorf("ArchiveDuration = %d, want 48", got.ArchiveDuration)
	}
}

func TestMapMovie_RatingFields(t *testing.T) {
	w := xtream.WireMovie{StreamID: "9", Name: "Movie", Rating: "7.5", Rating5Based: "3.75"}
	got := mapMovie("acc-1", w)
	if got.Rating != 7.5 {
		t.Errorf("Rating = %v, want 7.5", got.Rating)
	}
	if got.Rating5Based != 3.75 {
		t.Errorf("Rating5Based = %v, want 3.75", got.Rating5Based)
	}
}

func TestMergeMovieInfo_FillsDetailFields(t *testing.T) {
	base := catalog.Movie{StreamID: 9, Name: "Movie"}
	info := &xtream.WireMovieInfo{}
	info.Info.Name = "Full Title"
	info.Info.Plot = "A plot."
	info.Info.Genre = "Action"

	got := mergeMovieInfo(base, info)
	if got.Title != "Full Title" || got.Plot != "A plot." || got.Genre != "Action" {
		t.Fatalf("got %+v", got)
	}
	if got.StreamID != 9 {
		t.Errorf("StreamID should be preserved from base, got %d", got.StreamID)
	}
}

func TestMapSeriesDetails_SplitsSeasonsAndEpisodesByKey(t *testing.T) {
	base := catalog.Series{SeriesID: 42, Account: "acc-1"}
	info := &xtream.WireSeriesInfo{}
	info.Seasons = []struct {
		SeasonNumber int             `json:"season_number"`
		Name         string          `json:"name"`
		EpisodeCount int             `json:"episode_count"`
		Overview     string          `json:"overview"`
		AirDate      string          `json:"air_date"`
		Cover        string          `json:"cover"`
		VoteAverage  xtream.FlexString `json:"vote_average"`
	}{
		{SeasonNumber: 1, Name: "Season 1", EpisodeCount: 2},
	}
	info.Episodes = map[string][]struct {
		ID           xtream.FlexString `json:"id"`
		EpisodeNum   xtream.FlexString `json:"episode_num"`
		Title        string            `json:"title"`
		ContainerExt string            `json:"container_extension"`
		Added        string            `json:"added"`
		Info         json.RawMessage   `json:"info"`
	}{
		"1": {
			{ID: "101", EpisodeNum: "1", Title: "Pilot"},
			{ID: "102", EpisodeNum: "2", Title: "Second"},
		},
	}

	details := mapSeriesDetails("acc-1", 42, base, info)
	if len(details.Seasons) != 1 {
		t.Fatalf("got %d seasons, want 1", len(details.Seasons))
	}
	if len(details.Episodes) != 2 {
		t.Fatalf("got %d episodes, want 2", len(details.Episodes))
	}
	for _, ep := range details.Episodes {
		if ep.SeasonNumber != 1 {
			t.Errorf("episode %s has SeasonNumber %d, want 1", ep.EpisodeID, ep.SeasonNumber)
		}
	}
}

func TestParseSeasonKey(t *testing.T) {
	cases := map[string]int{
		"1":    1,
		"12":   12,
		"0":    0,
		"":     0,
		"abc":  0,
		"3abc": 3,
	}
	for in, want := range cases {
		if got := parseSeasonKey(in); got != want {
			t.Errorf("parseSeasonKey(%q) = %d, want %d", in, got, want)
		}
	}
}
