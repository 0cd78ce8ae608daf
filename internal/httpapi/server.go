package httpapi

import (
	"net/http"
	"time"

	"waterwatch-server/internal/config"
	"waterwatch-server/internal/metrics"
)

func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.Manager) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestID(requestLogger(m, mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
