package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response. Bare strings are encoded as JSON strings,
// which is what name reservation replies with.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent answers preflight requests
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
