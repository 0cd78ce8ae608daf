package httpapi

import (
	"database/sql"
	"net/http"

	"waterwatch-server/internal/metrics"
)

func NewMux(db *sql.DB, m *metrics.Manager) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", m.Handler())
	return mux
}
