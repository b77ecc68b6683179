package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSyncSettings_DefaultsForUnknownAccount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	got, err := store.GetSyncSettings(ctx, "unknown")
	require.NoError(t, err, "get sync settings")
	want := DefaultSyncSettings("unknown")
	if got != want {
		t.Fatalf("got %+v, want defaults %+v", got, want)
	}
}

func TestUpdateSyncSettings_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	settings := SyncSettings{
		Account:           "acc-1",
		AutoSyncEnabled:   false,
		SyncIntervalHours: 12,
		WiFiOnly:          false,
		NotifyOnComplete:  true,
	}
	if err := store.UpdateSyncSettings(ctx, settings); err != nil {
		t.Fatalf("update sync settings: %v", err)
	}

	got, err := store.GetSyncSettings(ctx, "acc-1")
	require.NoError(t, err, "get sync settings")
	if got != settings {
		t.Fatalf("got %+v, want %+v", got, settings)
	}
}

func TestUpdateSyncSettings_RejectsBelowFloor(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	persisted := SyncSettings{Account: "acc-1", SyncIntervalHours: 24, AutoSyncEnabled: true}
	if err := store.UpdateSyncSettings(ctx, persisted); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	bad := SyncSettings{Account: "acc-1", SyncIntervalHours: MinSyncIntervalHours - 1}
	err := store.UpdateSyncSettings(ctx, bad)
	require.Error(t, err, "expected error for interval below floor")
	if !errors.Is(err, ErrSyncIntervalTooLow) {
		t.Fatalf("expected ErrSyncIntervalTooLow, got %v", err)
	}

	got, err := store.GetSyncSettings(ctx, "acc-1")
	require.NoError(t, err, "get sync settings")
	if got.SyncIntervalHours != 24 {
		t.Fatalf("got interval %d, want prior settings untouched (24)", got.SyncIntervalHours)
	}
}
