package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckIntegrity_HealthyDatabase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.SaveChannels(ctx, "acc-1", []Channel{{StreamID: 1, Name: "A"}}); err != nil {
		t.Fatalf("save channels: %v", err)
	}
	if err := store.CheckIntegrity(ctx); err != nil {
		t.Fatalf("check integrity: %v", err)
	}
}

func TestAnalyzeTables(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AnalyzeTables(ctx); err != nil {
		t.Fatalf("analyze tables: %v", err)
	}
}

func TestShouldVacuum_EmptyDatabase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	should, err := store.ShouldVacuum(ctx)
	require.NoError(t, err, "should vacuum")
	if should {
		t.Fatal("fresh database should not need a vacuum")
	}
}

func TestVacuum_Runs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.SaveChannels(ctx, "acc-1", []Channel{{StreamID: 1, Name: "A"}}); err != nil {
		t.Fatalf("save channels: %v", err)
	}
	if err := store.Vacuum(ctx); err != nil {
		t.Fatalf("vacuum: %v", err)
	}
}

func TestExportSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.SaveChannels(ctx, "acc-1", []Channel{{StreamID: 1, Name: "A"}}); err != nil {
		t.Fatalf("save channels: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	if err := store.ExportSnapshot(ctx, dest); err != nil {
		t.Fatalf("export snapshot: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	snap, err := Open(dest, DefaultConfig())
	require.NoError(t, err, "open snapshot")
	defer snap.Close()

	got, err := snap.ListChannels(ctx, "acc-1", ChannelFilter{})
	require.NoError(t, err, "list channels from snapshot")
	if len(got) != 1 {
		t.Fatalf("snapshot has %d channels, want 1", len(got))
	}
}
