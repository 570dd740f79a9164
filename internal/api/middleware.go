package api

import (
	"anywebsupport-backend/internal/i18n"
	"net/http"
)

// --- Locale Middleware ---

// LocaleMiddleware negotiates the response language from the Accept-Language
// header and injects it into the request context.
func LocaleMiddleware(catalog *i18n.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := catalog.Match(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", lang.String())

			ctx := i18n.WithLanguage(r.Context(), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
