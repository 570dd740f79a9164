package handlers

import (
	"anywebsupport-backend/internal/i18n"
	"anywebsupport-backend/internal/llm"
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/store"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakeExtractor struct{ text string }

func (e fakeExtractor) Extract(context.Context, string) (string, error) { return e.text, nil }

type fakeStream struct {
	deltas []string
	err    error
	pos    int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos < len(s.deltas) {
		s.pos++
		return s.deltas[s.pos-1], nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeProvider struct {
	deltas  []string
	err     error
	openErr error
}

func (p fakeProvider) StreamChat(context.Context, []llm.ChatMessage) (llm.ChatStream, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &fakeStream{deltas: p.deltas, err: p.err}, nil
}

func (fakeProvider) Name() string { return "fake" }

type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.RelayRecord
	listErr error
}

func newFakeStore(recs ...models.RelayRecord) *fakeStore {
	s := &fakeStore{records: make(map[uuid.UUID]models.RelayRecord)}
	for _, r := range recs {
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeStore) RecordRelay(_ context.Context, rec models.RelayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeStore) GetRelay(_ context.Context, id uuid.UUID) (*models.RelayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *fakeStore) ListRecentRelays(_ context.Context, limit int) ([]models.RelayRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RelayRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

var errBoom = errors.New("boom")

func testCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	c, err := i18n.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}
