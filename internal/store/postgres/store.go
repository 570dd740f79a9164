package postgres

import (
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/store"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS relay_requests (
		id            UUID PRIMARY KEY,
		page_url      TEXT NOT NULL DEFAULT '',
		scrape_status TEXT NOT NULL,
		final_state   TEXT NOT NULL,
		chunks        INTEGER NOT NULL DEFAULT 0,
		bytes         BIGINT NOT NULL DEFAULT 0,
		error_text    TEXT NOT NULL DEFAULT '',
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_relay_requests_created_at ON relay_requests (created_at DESC);`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect creates a pool for databaseURL, pings it and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	dbpool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create database connection pool: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := NewPostgresStore(dbpool)
	if err := s.EnsureSchema(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	log.Println("[PostgresStore] Database connection pool established and schema ensured.")
	return s, nil
}

// EnsureSchema creates the relay_requests table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		log.Printf("ERROR [PostgresStore] EnsureSchema: %v", err)
		return fmt.Errorf("database error creating schema: %w", err)
	}
	return nil
}

// RecordRelay inserts one relay record.
func (s *PostgresStore) RecordRelay(ctx context.Context, rec models.RelayRecord) error {
	query := `
		INSERT INTO relay_requests (id, page_url, scrape_status, final_state, chunks, bytes, error_text, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, query,
		rec.ID,
		rec.PageURL,
		string(rec.ScrapeStatus),
		rec.FinalState,
		rec.Chunks,
		rec.Bytes,
		rec.Error,
		rec.Duration.Milliseconds(),
		createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Printf("ERROR [PostgresStore] RecordRelay: PostgreSQL error inserting relay %s: Code=%s, Message=%s, Detail=%s", rec.ID, pgErr.Code, pgErr.Message, pgErr.Detail)
		} else {
			log.Printf("ERROR [PostgresStore] RecordRelay: Failed to insert relay %s: %v", rec.ID, err)
		}
		return fmt.Errorf("database error recording relay: %w", err)
	}

	return nil
}

// GetRelay retrieves one relay record by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *PostgresStore) GetRelay(ctx context.Context, id uuid.UUID) (*models.RelayRecord, error) {
	query := `
		SELECT id, page_url, scrape_status, final_state, chunks, bytes, error_text, duration_ms, created_at
		FROM relay_requests
		WHERE id = $1`

	rec, err := scanRelay(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetRelay: Failed to query relay %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching relay: %w", err)
	}
	return rec, nil
}

// ListRecentRelays returns the newest records first.
func (s *PostgresStore) ListRecentRelays(ctx context.Context, limit int) ([]models.RelayRecord, error) {
	query := `
		SELECT id, page_url, scrape_status, final_state, chunks, bytes, error_text, duration_ms, created_at
		FROM relay_requests
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, store.ClampLimit(limit))
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListRecentRelays: Failed to query relays: %v", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating relays: %w", err)
	}

	return records, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func scanRelay(row pgx.Row) (*models.RelayRecord, error) {
	var (
		rec        models.RelayRecord
		status     string
		durationMS int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.PageURL,
		&status,
		&rec.FinalState,
		&rec.Chunks,
		&rec.Bytes,
		&rec.Error,
		&durationMS,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ScrapeStatus = models.ScrapeStatus(status)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
