package main

import (
	"anywebsupport-backend/internal/api"
	"anywebsupport-backend/internal/config"
	"anywebsupport-backend/internal/handlers"
	"anywebsupport-backend/internal/i18n"
	"anywebsupport-backend/internal/llm"
	"anywebsupport-backend/internal/scrape"
	"anywebsupport-backend/internal/services"
	"anywebsupport-backend/internal/store"
	"anywebsupport-backend/internal/store/postgres"
	"anywebsupport-backend/internal/store/sqlite"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	log.Println("Starting AnyWebSupport Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Open the relay audit log
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second) // Timeout for initial connection
	defer dbCancel()

	relayStore, err := openStore(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to open relay store: %v\n", err)
	}
	defer relayStore.Close()

	// 3. Initialize Dependencies (Catalog, Extractors, Provider, Services, Handlers)
	catalog, err := i18n.NewCatalog()
	if err != nil {
		log.Fatalf("FATAL: Failed to load translations: %v", err)
	}
	log.Printf("Translation catalog initialized: %v", catalog.Languages())

	// --- Initialize Extractor Registry ---
	extractors := scrape.NewRegistry()
	extractors.Register(config.ScraperHTML, scrape.NewHTMLExtractor(&http.Client{}, cfg.ScraperUserAgent))
	extractors.Register(config.ScraperBrowser, scrape.NewBrowserExtractor(cfg.ScraperUserAgent))
	extractor := extractors.MustGet(cfg.ScraperMode)
	log.Printf("Page extractor selected: %s", cfg.ScraperMode)

	provider, err := newProvider(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create completion provider: %v", err)
	}
	log.Printf("Completion provider initialized: %s (model=%s)", provider.Name(), cfg.LLMModel)

	// Extraction gets at most half of the request deadline so the completion always runs.
	scrapeTimeout := min(cfg.RequestTimeout/2, services.DefaultScrapeTimeout)
	relayService := services.NewRelayService(extractor, provider, relayStore, services.WithScrapeTimeout(scrapeTimeout))
	log.Printf("RelayService initialized (scrape timeout %s).", scrapeTimeout)

	chatHandler := handlers.NewChatHandlers(relayService, catalog)
	i18nHandler := handlers.NewI18nHandler(catalog)
	relaysHandler := handlers.NewRelaysHandler(relayStore, catalog)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler:   chatHandler,
		I18nHandler:   i18nHandler,
		RelaysHandler: relaysHandler,
		Catalog:       catalog,
		Config:        cfg,
	})
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Completions stream for a long time; the router's request timeout bounds them instead.
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}

// openStore picks the audit log backend from the database URL.
func openStore(ctx context.Context, databaseURL string) (store.Store, error) {
	switch {
	case databaseURL == "":
		log.Println("DATABASE_URL not set, relay audit log disabled.")
		return store.NoopStore{}, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := postgres.Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("Postgres relay store initialized.")
		return s, nil
	case strings.HasPrefix(databaseURL, "sqlite:"), strings.HasSuffix(databaseURL, ".db"):
		s, err := sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
		if err != nil {
			return nil, err
		}
		log.Println("SQLite relay store initialized.")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
	}
}

func newProvider(cfg *config.Config) (llm.StreamingProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			BaseURL:   cfg.AnthropicBaseURL,
			Model:     cfg.LLMModel,
			MaxTokens: cfg.LLMMaxTokens,
		})
	default:
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.LLMModel,
		})
	}
}
