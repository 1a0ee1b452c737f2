package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/lecture-platform/services/transcript/internal/store"
	"github.com/example/lecture-platform/services/transcript/internal/store/storetest"
)

func openSQLite(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), path, store.DefaultSQLiteConfig())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openSQLite(t, filepath.Join(t.TempDir(), "transcripts.db"))
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")

	s := openSQLite(t, path)
	rec, err := store.CreateRecord(context.Background(), s, 123, "persisted", 0, 10, 10)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openSQLite(t, path)
	defer s.Close()
	got := storetest.Collect(t, s, 123, 0)
	if len(got) != 1 || got[0] != rec {
		t.Fatalf("after reopen got %+v, want [%+v]", got, rec)
	}
}
