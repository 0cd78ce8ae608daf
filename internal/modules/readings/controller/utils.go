package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"waterwatch-server/internal/modules/readings/service"
	"waterwatch-server/internal/modules/readings/types"
	"waterwatch-server/internal/utils"
)

const maxBodyBytes = 1 << 20

// parsePayload reads a submission from a JSON body or, for any other content
// type, from form fields.
func parsePayload(w http.ResponseWriter, r *http.Request) (types.Payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return service.DecodeJSONPayload(body)
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	return service.PayloadFromForm(r.PostForm)
}

// parseLimit returns 0 when the limit parameter is absent, meaning the
// configured default.
func parseLimit(r *http.Request, maxLimit int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxLimit {
		return 0, fmt.Errorf("'limit' must be <= %d", maxLimit)
	}
	return n, nil
}

// writeServiceError maps the readings error taxonomy to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		missing     *types.MissingFieldsError
		invalid     *types.ValidationError
		writeErr    *types.WriteError
		unavailable *types.StorageUnavailableError
	)
	switch {
	case errors.As(err, &missing):
		utils.WriteErrorDetails(w, http.StatusBadRequest, err.Error(), map[string]any{"fields": missing.Fields})
	case errors.As(err, &invalid):
		utils.WriteErrorDetails(w, http.StatusBadRequest, err.Error(), map[string]any{"field": invalid.Field})
	case errors.Is(err, types.ErrNoReadings):
		utils.WriteError(w, http.StatusNotFound, types.ErrNoReadings.Error())
	case errors.As(err, &writeErr):
		slog.Error("reading write failed", "error", err)
		utils.WriteError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &unavailable):
		slog.Error("storage unavailable", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("unexpected readings error", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
