package handlers

import (
	"anywebsupport-backend/internal/i18n"
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/pkg/httputil"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// I18nHandler serves translation tables to the web client.
type I18nHandler struct {
	catalog *i18n.Catalog
}

func NewI18nHandler(catalog *i18n.Catalog) *I18nHandler {
	return &I18nHandler{catalog: catalog}
}

// HandleGetTranslations handles GET /api/i18n/{lang}.
func (h *I18nHandler) HandleGetTranslations(w http.ResponseWriter, r *http.Request) {
	tag, table, err := h.catalog.Resources(chi.URLParam(r, "lang"))
	if err != nil {
		if errors.Is(err, i18n.ErrUnknownLanguage) {
			respondLocalizedError(w, r, h.catalog, http.StatusNotFound, "error.unknown_language")
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.TranslationsResponse{
		Language:     tag.String(),
		Translations: table,
	})
}
