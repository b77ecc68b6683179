package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveCategories_ScopedByKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	movieCats := []Category{{CategoryID: "1", Name: "Action"}, {CategoryID: "2", Name: "Comedy"}}
	seriesCats := []Category{{CategoryID: "1", Name: "Drama Series"}}

	if _, err := store.SaveCategories(ctx, "acc-1", CategoryMovie, movieCats); err != nil {
		t.Fatalf("save movie categories: %v", err)
	}
	if _, err := store.SaveCategories(ctx, "acc-1", CategorySeries, seriesCats); err != nil {
		t.Fatalf("save series categories: %v", err)
	}

	got, err := store.ListCategories(ctx, "acc-1", CategoryMovie, CategoryFilter{})
	require.NoError(t, err, "list movie categories")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (same category_id=1 in a different kind must not collide)", len(got))
	}

	gotSeries, err := store.ListCategories(ctx, "acc-1", CategorySeries, CategoryFilter{})
	require.NoError(t, err, "list series categories")
	if len(gotSeries) != 1 || gotSeries[0].Name != "Drama Series" {
		t.Fatalf("got %+v, want one Drama Series category", gotSeries)
	}
}

func TestDeleteCategories_AllFlag(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cats := []Category{{CategoryID: "1", Name: "A"}, {CategoryID: "2", Name: "B"}}
	if _, err := store.SaveCategories(ctx, "acc-1", CategoryChannel, cats); err != nil {
		t.Fatalf("save categories: %v", err)
	}

	n, err := store.DeleteCategories(ctx, "acc-1", CategoryChannel, nil, true)
	require.NoError(t, err, "delete all categories")
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}

	count, err := store.CountCategories(ctx, "acc-1", CategoryChannel, CategoryFilter{})
	require.NoError(t, err, "count categories")
	if count != 0 {
		t.Fatalf("count after delete-all = %d, want 0", count)
	}
}

func TestSaveCategories_RejectsEmptyID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveCategories(ctx, "acc-1", CategoryMovie, []Category{{CategoryID: "", Name: "x"}})
	require.Error(t, err, "expected error for empty category id")
}
