package handlers

import (
	"anywebsupport-backend/internal/i18n"
	"anywebsupport-backend/pkg/httputil"
	"net/http"
)

// respondLocalizedError writes a JSON error whose message is translated into
// the language negotiated for the request.
func respondLocalizedError(w http.ResponseWriter, r *http.Request, catalog *i18n.Catalog, statusCode int, key string) {
	lang := i18n.LanguageFromContext(r.Context())
	httputil.RespondError(w, statusCode, catalog.Localize(lang, key))
}
