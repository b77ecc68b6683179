package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog_test.db")
	store, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err, "open store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_Pragmas(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var mode string
	if err := store.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := store.DB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpen_CrashSafeReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err, "open")
	if _, err := s1.SaveChannels(ctx, "acc-1", []Channel{{StreamID: 1, Name: "One"}}); err != nil {
		t.Fatalf("save channels: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err, "reopen")
	defer s2.Close()

	got, err := s2.ListChannels(ctx, "acc-1", ChannelFilter{})
	require.NoError(t, err, "list channels")
	if len(got) != 1 || got[0].Name != "One" {
		t.Fatalf("got %+v, want one channel named One", got)
	}
}

func TestValidateAccount_Empty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveChannels(ctx, "", []Channel{{StreamID: 1}})
	require.Error(t, err, "expected error for empty account")
	var catErr *Error
	if !errors.As(err, &catErr) || catErr.Kind != KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}
