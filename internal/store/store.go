package store

import (
	"anywebsupport-backend/internal/models"
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// MaxListLimit caps ListRecentRelays.
const MaxListLimit = 100

// Store defines the interface for relay audit log operations.
// This allows for fakes in tests and switching between database backends.
type Store interface {
	RecordRelay(ctx context.Context, rec models.RelayRecord) error
	GetRelay(ctx context.Context, id uuid.UUID) (*models.RelayRecord, error)
	ListRecentRelays(ctx context.Context, limit int) ([]models.RelayRecord, error)
	Close() error
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// NoopStore is used when no database is configured. It only logs.
type NoopStore struct{}

var _ Store = NoopStore{}

func (NoopStore) RecordRelay(_ context.Context, rec models.RelayRecord) error {
	log.Printf("[NoopStore] Relay %s finished: state=%s scrape=%s chunks=%d bytes=%d duration=%s",
		rec.ID, rec.FinalState, rec.ScrapeStatus, rec.Chunks, rec.Bytes, rec.Duration)
	return nil
}

func (NoopStore) GetRelay(_ context.Context, _ uuid.UUID) (*models.RelayRecord, error) {
	return nil, ErrNotFound
}

func (NoopStore) ListRecentRelays(_ context.Context, _ int) ([]models.RelayRecord, error) {
	return []models.RelayRecord{}, nil
}

func (NoopStore) Close() error { return nil }
