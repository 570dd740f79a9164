package api

import (
	"anywebsupport-backend/internal/config"
	"anywebsupport-backend/internal/handlers"
	"anywebsupport-backend/internal/i18n"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ChatHandler   *handlers.ChatHandlers
	I18nHandler   *handlers.I18nHandler
	RelaysHandler *handlers.RelaysHandler
	Catalog       *i18n.Catalog
	Config        *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.Catalog == nil {
		panic("Catalog dependency is nil in router setup")
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer) // lets http.ErrAbortHandler through so streams can be aborted
	r.Use(middleware.Timeout(deps.Config.RequestTimeout))

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Language"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(LocaleMiddleware(deps.Catalog))

		if deps.ChatHandler != nil {
			r.Post("/chat", deps.ChatHandler.HandleChat)
		} else {
			log.Println("WARN: ChatHandler dependency is nil, skipping /api/chat route.")
		}

		if deps.I18nHandler != nil {
			r.Get("/i18n/{lang}", deps.I18nHandler.HandleGetTranslations)
		} else {
			log.Println("WARN: I18nHandler dependency is nil, skipping /api/i18n routes.")
		}

		if deps.RelaysHandler != nil {
			r.Route("/relays", func(r chi.Router) {
				r.Get("/", deps.RelaysHandler.HandleListRelays)
				r.Get("/{relayID}", deps.RelaysHandler.HandleGetRelay)
			})
		} else {
			log.Println("WARN: RelaysHandler dependency is nil, skipping /api/relays routes.")
		}
	})

	return r
}
