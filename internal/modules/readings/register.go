package readings

import (
	"database/sql"
	"log/slog"
	"net/http"

	"waterwatch-server/internal/config"
	"waterwatch-server/internal/metrics"
	"waterwatch-server/internal/modules/readings/controller"
	"waterwatch-server/internal/modules/readings/quality"
	"waterwatch-server/internal/modules/readings/repository"
	"waterwatch-server/internal/modules/readings/service"
	"waterwatch-server/internal/mqtt"
)

// MQTTSubscriber is the part of the MQTT subscriber the feature needs.
type MQTTSubscriber interface {
	SetMessageHandler(handler mqtt.MessageHandler)
}

// RegisterFeature wires storage, ingestion and query for readings onto mux.
// When subscriber is non-nil, MQTT messages go through the same ingestion
// path as HTTP submissions.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config, m *metrics.Manager, subscriber MQTTSubscriber) *service.Service {
	readingsRepository := repository.NewRepository(db,
		repository.WithDriver(cfg.Driver),
		repository.WithTimeout(cfg.QueryTimeout),
		repository.WithMetrics(m),
	)
	readingsService := service.NewService(readingsRepository, service.Options{
		LenientParse: cfg.LenientParse,
		DefaultLimit: cfg.QueryDefaultLimit,
		MaxLimit:     cfg.QueryMaxLimit,
		Labeler:      quality.NewLabeler(cfg.QualityAllowBorderline),
		Metrics:      m,
		Logger:       slog.Default().With("module", "readings"),
	})
	controller.NewReadingsController(readingsService).RegisterRoutes(mux)

	if subscriber != nil {
		subscriber.SetMessageHandler(readingsService.HandleMessage)
	}
	return readingsService
}
