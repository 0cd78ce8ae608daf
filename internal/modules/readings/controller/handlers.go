package controller

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"waterwatch-server/internal/modules/readings/export"
	"waterwatch-server/internal/modules/readings/quality"
	"waterwatch-server/internal/modules/readings/service"
	"waterwatch-server/internal/modules/readings/types"
	"waterwatch-server/internal/utils"
)

type createResponse struct {
	Message string        `json:"message"`
	Reading types.Reading `json:"reading"`
}

type qualityResponse struct {
	Reading    types.Reading      `json:"reading"`
	Assessment quality.Assessment `json:"assessment"`
}

func (c *readingsControllerImpl) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, err := parsePayload(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	reading, err := c.service.Submit(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, createResponse{
		Message: service.StoredMessage(reading),
		Reading: reading,
	})
}

func (c *readingsControllerImpl) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, c.service.MaxLimit())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.service.RecentReadings(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *readingsControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, err := c.service.Latest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reading)
}

func (c *readingsControllerImpl) handleLatestQuality(w http.ResponseWriter, r *http.Request) {
	reading, assessment, err := c.service.LatestQuality(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, qualityResponse{Reading: reading, Assessment: assessment})
}

func (c *readingsControllerImpl) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := c.service.Count(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (c *readingsControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, c.service.MaxLimit())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.service.RecentReadings(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// render fully before writing headers so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := export.Write(&buf, format, readings, c.service.Labeler()); err != nil {
		slog.Error("export: render failed", "format", format, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}
