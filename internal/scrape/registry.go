package scrape

import (
	"fmt"
	"log"
)

// Registry maps a scraper mode name to its Extractor.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
	}
}

// Register adds an extractor under mode, replacing any previous one.
func (r *Registry) Register(mode string, extractor Extractor) {
	if _, exists := r.extractors[mode]; exists {
		log.Printf("WARN [ScraperRegistry] Mode '%s' is already registered. Overwriting.", mode)
	}
	r.extractors[mode] = extractor
	log.Printf("[ScraperRegistry] Registered extractor for mode: %s", mode)
}

// Get retrieves the extractor registered for mode.
func (r *Registry) Get(mode string) (Extractor, error) {
	extractor, exists := r.extractors[mode]
	if !exists {
		return nil, fmt.Errorf("no extractor registered for mode: %s", mode)
	}
	return extractor, nil
}

// MustGet is Get that panics when mode is unknown. Meant for start-up wiring.
func (r *Registry) MustGet(mode string) Extractor {
	extractor, err := r.Get(mode)
	if err != nil {
		panic(fmt.Sprintf("FATAL [ScraperRegistry] %v", err))
	}
	return extractor
}
