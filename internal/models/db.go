package models

import (
	"time"

	"github.com/google/uuid"
)

// ScrapeStatus records what happened to page extraction for one request.
type ScrapeStatus string

const (
	ScrapeSkipped ScrapeStatus = "skipped" // no URL supplied
	ScrapeOK      ScrapeStatus = "ok"
	ScrapeFailed  ScrapeStatus = "failed" // sentinel substituted
)

// RelayRecord is one row of the relay audit log (table relay_requests).
// It holds request metadata only, never message content. Stores scan columns
// positionally in the field order below.
type RelayRecord struct {
	ID           uuid.UUID
	PageURL      string
	ScrapeStatus ScrapeStatus
	FinalState   string
	Chunks       int
	Bytes        int64
	Error        string
	Duration     time.Duration
	CreatedAt    time.Time
}

// ToResponse converts a stored record to its API DTO.
func (r RelayRecord) ToResponse() RelayRecordResponse {
	return RelayRecordResponse{
		ID:           r.ID,
		PageURL:      r.PageURL,
		ScrapeStatus: string(r.ScrapeStatus),
		FinalState:   r.FinalState,
		Chunks:       r.Chunks,
		Bytes:        r.Bytes,
		Error:        r.Error,
		DurationMS:   r.Duration.Milliseconds(),
		CreatedAt:    r.CreatedAt,
	}
}
