package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteErrorDetails(w, status, msg, nil)
}

// WriteErrorDetails writes the standard error body plus extra top-level
// keys. "error" and "message" cannot be overridden.
func WriteErrorDetails(w http.ResponseWriter, status int, msg string, details map[string]any) {
	body := make(map[string]any, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["error"] = http.StatusText(status)
	body["message"] = msg
	WriteJSON(w, status, body)
}
