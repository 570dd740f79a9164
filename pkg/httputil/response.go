package httputil

import (
	api_models "anywebsupport-backend/internal/models"
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes payload as an uncached JSON response.
// Encoding errors are only logged because the status line is already out.
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("ERROR [httputil] Failed to encode %T response: %v", payload, err)
	}
}

// RespondError writes {"error": message} with the given status code.
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, api_models.ErrorResponse{Error: message})
}
