package response

import (
	"encoding/json"
	"net/http"
)

// NoCache marks the response as never cacheable; player data changes constantly
func NoCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RawJSON writes body, which must already be JSON text, unchanged
func RawJSON(w http.ResponseWriter, status int, body []byte) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
