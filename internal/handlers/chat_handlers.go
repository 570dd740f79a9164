package handlers

import (
	"anywebsupport-backend/internal/i18n"
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/services"
	"anywebsupport-backend/pkg/httputil"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxChatBodyBytes bounds the decoded conversation.
const maxChatBodyBytes = 1 << 20

// ChatHandlers handles the streaming chat endpoint.
type ChatHandlers struct {
	relayService *services.RelayService
	catalog      *i18n.Catalog
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(relayService *services.RelayService, catalog *i18n.Catalog) *ChatHandlers {
	return &ChatHandlers{
		relayService: relayService,
		catalog:      catalog,
	}
}

// HandleChat decodes the conversation, relays it to the completion provider
// and streams the reply back as plain text.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		log.Printf("[ChatHandlers] Failed to read request body: %v", err)
		respondLocalizedError(w, r, h.catalog, http.StatusBadRequest, "error.invalid_body")
		return
	}

	req, err := models.DecodeChatRequest(body)
	if err != nil {
		log.Printf("[ChatHandlers] Rejected chat request: %v", err)
		key := "error.invalid_body"
		if errors.Is(err, models.ErrInvalidRole) {
			key = "error.invalid_role"
		}
		respondLocalizedError(w, r, h.catalog, http.StatusBadRequest, key)
		return
	}

	relayID := uuid.New()
	w.Header().Set("X-Request-Id", relayID.String())
	log.Printf("[ChatHandlers] Relay %s started (request_id=%s, messages=%d)",
		relayID, middleware.GetReqID(r.Context()), len(req.Messages))

	sw := httputil.NewStreamWriter(w)
	_, err = h.relayService.Relay(r.Context(), relayID, req, sw)
	switch {
	case err == nil:
		return
	case errors.Is(err, services.ErrClientWrite):
		// The client is gone; there is nobody left to tell.
		return
	case sw.Written() == 0:
		respondLocalizedError(w, r, h.catalog, http.StatusBadGateway, "error.provider_unavailable")
	default:
		// Part of the reply is already on the wire. Abort the connection so the
		// client sees a truncated response instead of a clean end of stream.
		panic(http.ErrAbortHandler)
	}
}
