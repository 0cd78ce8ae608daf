package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]int{"count": 3})

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusCreated, map[string]string{"message": "stored: pH=7.2, NTU=3.5, TDS=150"})

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["message"] != "stored: pH=7.2, NTU=3.5, TDS=150" {
			t.Errorf("body[message] = %q", got["message"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	status := http.StatusServiceUnavailable
	msg := "storage unavailable"
	WriteError(w, status, msg)

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
	}
	if w.Code != status {
		t.Errorf("Code = %d; want %d", w.Code, status)
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != http.StatusText(status) {
		t.Errorf("error = %q; want %q", got["error"], http.StatusText(status))
	}
	if got["message"] != msg {
		t.Errorf("message = %q; want %q", got["message"], msg)
	}
}

func TestWriteErrorDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorDetails(w, http.StatusBadRequest, "missing fields: ph", map[string]any{
		"fields":  []string{"ph"},
		"message": "overridden?",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusBadRequest)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["message"] != "missing fields: ph" {
		t.Errorf("message = %v; want the explicit message", got["message"])
	}
	fields, ok := got["fields"].([]any)
	if !ok || len(fields) != 1 || fields[0] != "ph" {
		t.Errorf("fields = %v; want [ph]", got["fields"])
	}
}
