package sqlite

import (
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/store"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "relays.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := models.RelayRecord{
		ID:           uuid.New(),
		PageURL:      "https://example.com",
		ScrapeStatus: models.ScrapeFailed,
		FinalState:   "errored",
		Chunks:       3,
		Bytes:        42,
		Error:        "stream reset",
		Duration:     1500 * time.Millisecond,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.RecordRelay(ctx, rec); err != nil {
		t.Fatalf("RecordRelay: %v", err)
	}

	got, err := s.GetRelay(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRelay: %v", err)
	}
	if *got != rec {
		t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", *got, rec)
	}

	if _, err := s.GetRelay(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListRecentRelaysNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		err := s.RecordRelay(ctx, models.RelayRecord{
			ID:           id,
			ScrapeStatus: models.ScrapeSkipped,
			FinalState:   "closed",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordRelay: %v", err)
		}
	}

	got, err := s.ListRecentRelays(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentRelays: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Fatalf("unexpected order: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestSQLiteStore_EmptyList(t *testing.T) {
	s := openTestStore(t)
	got, err := s.ListRecentRelays(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecentRelays: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
