package sqlite

import (
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/store"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var _ store.Store = (*SQLiteStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS relay_requests (
		id            TEXT PRIMARY KEY,
		page_url      TEXT NOT NULL DEFAULT '',
		scrape_status TEXT NOT NULL,
		final_state   TEXT NOT NULL,
		chunks        INTEGER NOT NULL DEFAULT 0,
		bytes         INTEGER NOT NULL DEFAULT 0,
		error_text    TEXT NOT NULL DEFAULT '',
		duration_ms   INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_relay_requests_created_at ON relay_requests(created_at);`

// SQLiteStore keeps the relay audit log in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, ensuring that the parent
// directory and the schema exist.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema at %s: %w", path, err)
	}

	log.Printf("[SQLiteStore] Opened relay log at %s", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordRelay(ctx context.Context, rec models.RelayRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_requests (id, page_url, scrape_status, final_state, chunks, bytes, error_text, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(),
		rec.PageURL,
		string(rec.ScrapeStatus),
		rec.FinalState,
		rec.Chunks,
		rec.Bytes,
		rec.Error,
		rec.Duration.Milliseconds(),
		createdAt.UnixMilli(),
	)
	if err != nil {
		log.Printf("ERROR [SQLiteStore.RecordRelay] id=%s err=%v", rec.ID, err)
		return fmt.Errorf("database error recording relay: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRelay(ctx context.Context, id uuid.UUID) (*models.RelayRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_url, scrape_status, final_state, chunks, bytes, error_text, duration_ms, created_at
		FROM relay_requests WHERE id = ?`, id.String())

	rec, err := scanRelay(row)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.ErrNotFound
	default:
		log.Printf("ERROR [SQLiteStore.GetRelay] id=%s err=%v", id, err)
		return nil, fmt.Errorf("database error fetching relay: %w", err)
	}
}

func (s *SQLiteStore) ListRecentRelays(ctx context.Context, limit int) ([]models.RelayRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_url, scrape_status, final_state, chunks, bytes, error_text, duration_ms, created_at
		FROM relay_requests
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("database error listing relays: %w", err)
	}
	defer rows.Close()

	records := []models.RelayRecord{}
	for rows.Next() {
		rec, err := scanRelay(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning relay: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Println("[SQLiteStore.Close] closing db connection")
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRelay(row scanner) (*models.RelayRecord, error) {
	var (
		rec        models.RelayRecord
		id, status string
		durationMS int64
		createdMS  int64
	)
	if err := row.Scan(&id, &rec.PageURL, &status, &rec.FinalState, &rec.Chunks, &rec.Bytes, &rec.Error, &durationMS, &createdMS); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid relay id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.ScrapeStatus = models.ScrapeStatus(status)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = time.UnixMilli(createdMS).UTC()
	return &rec, nil
}
