package handlers

import (
	"anywebsupport-backend/internal/i18n"
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/store"
	"anywebsupport-backend/pkg/httputil"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RelaysHandler exposes the relay audit log.
type RelaysHandler struct {
	store   store.Store
	catalog *i18n.Catalog
}

// NewRelaysHandler creates a new RelaysHandler.
func NewRelaysHandler(s store.Store, catalog *i18n.Catalog) *RelaysHandler {
	return &RelaysHandler{store: s, catalog: catalog}
}

// HandleListRelays handles GET /api/relays?limit=N.
func (h *RelaysHandler) HandleListRelays(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondLocalizedError(w, r, h.catalog, http.StatusBadRequest, "error.invalid_limit")
			return
		}
		limit = n
	}

	records, err := h.store.ListRecentRelays(r.Context(), store.ClampLimit(limit))
	if err != nil {
		log.Printf("ERROR [RelaysHandler] Failed to list relays: %v", err)
		respondLocalizedError(w, r, h.catalog, http.StatusServiceUnavailable, "error.store_unavailable")
		return
	}

	resp := models.ListRelaysResponse{Relays: make([]models.RelayRecordResponse, 0, len(records))}
	for _, rec := range records {
		resp.Relays = append(resp.Relays, rec.ToResponse())
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetRelay handles GET /api/relays/{relayID}.
func (h *RelaysHandler) HandleGetRelay(w http.ResponseWriter, r *http.Request) {
	relayID, err := uuid.Parse(chi.URLParam(r, "relayID"))
	if err != nil {
		respondLocalizedError(w, r, h.catalog, http.StatusBadRequest, "error.invalid_relay_id")
		return
	}

	rec, err := h.store.GetRelay(r.Context(), relayID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondLocalizedError(w, r, h.catalog, http.StatusNotFound, "error.relay_not_found")
			return
		}
		log.Printf("ERROR [RelaysHandler] Failed to get relay %s: %v", relayID, err)
		respondLocalizedError(w, r, h.catalog, http.StatusServiceUnavailable, "error.store_unavailable")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rec.ToResponse())
}
