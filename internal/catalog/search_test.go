package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchMovies_RankingAndFallback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	movies := []Movie{
		{StreamID: 1, Name: "Matrix", Genre: "Sci-Fi", Plot: "A hacker discovers reality is simulated."},
		{StreamID: 2, Name: "Matrix Revolutions", Genre: "Sci-Fi", Plot: "Sequel to the hacker story."},
		{StreamID: 3, Name: "Unrelated Comedy", Genre: "Comedy", Plot: "Nothing to do with the other two."},
	}
	if _, err := store.SaveMovies(ctx, "acc-1", movies); err != nil {
		t.Fatalf("save movies: %v", err)
	}

	got, err := store.SearchMovies(ctx, "acc-1", "matrix", Pagination{})
	require.NoError(t, err, "search movies")
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Name != "Matrix" {
		t.Errorf("got[0].Name = %q, want exact-match %q ranked first", got[0].Name, "Matrix")
	}

	// Empty term falls back to an unranked listing of everything.
	all, err := store.SearchMovies(ctx, "acc-1", "", Pagination{})
	require.NoError(t, err, "search movies empty term")
	if len(all) != 3 {
		t.Fatalf("got %d results for empty term, want 3 (fallback to full listing)", len(all))
	}
}

func TestSearchChannels_CaseInsensitive(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.SaveChannels(ctx, "acc-1", []Channel{{StreamID: 1, Name: "BBC One"}, {StreamID: 2, Name: "CNN"}}); err != nil {
		t.Fatalf("save channels: %v", err)
	}

	got, err := store.SearchChannels(ctx, "acc-1", "bbc", Pagination{})
	require.NoError(t, err, "search channels")
	if len(got) != 1 || got[0].Name != "BBC One" {
		t.Fatalf("got %+v, want one result BBC One", got)
	}
}

func TestRebuildIndex_RejectsUnknownEntity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RebuildIndex(ctx, "bogus"); err == nil {
		t.Fatal("expected error for unknown entity")
	}
	if err := store.RebuildIndex(ctx, "channels"); err != nil {
		t.Fatalf("rebuild index: %v", err)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"matrix", "matrix*"},
		{"the matrix", "the* OR matrix*"},
		{`"*():`, ""},
	}
	for _, c := range cases {
		got := prepareFTSQuery(c.in)
		if got != c.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
