// Package scrape turns a webpage URL into the visible text of its body.
package scrape

import (
	"anywebsupport-backend/internal/models"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
)

// FailureSentinel replaces page content whenever extraction fails.
const FailureSentinel = "Failed to scrape content from the provided URL."

var (
	ErrUnsupportedURL   = errors.New("unsupported page URL")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Extractor fetches one page and returns its visible text.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Result is the outcome of Fetch. Text is always safe to forward.
type Result struct {
	Text   string
	Status models.ScrapeStatus
	Err    error // set only when Status is ScrapeFailed
}

// Fetch applies the extraction policy on top of ex: an empty URL yields empty
// text without touching the network, and any failure is logged and replaced
// by FailureSentinel. It never returns an error to the caller.
func Fetch(ctx context.Context, ex Extractor, pageURL string) Result {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return Result{Status: models.ScrapeSkipped}
	}

	if err := validateURL(pageURL); err != nil {
		log.Printf("ERROR [Scraper] Error scraping webpage %q: %v", pageURL, err)
		return Result{Text: FailureSentinel, Status: models.ScrapeFailed, Err: err}
	}

	text, err := ex.Extract(ctx, pageURL)
	if err != nil {
		log.Printf("ERROR [Scraper] Error scraping webpage %q: %v", pageURL, err)
		return Result{Text: FailureSentinel, Status: models.ScrapeFailed, Err: err}
	}

	log.Printf("[Scraper] Extracted %d bytes of text from %s", len(text), pageURL)
	return Result{Text: text, Status: models.ScrapeOK}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	return nil
}
