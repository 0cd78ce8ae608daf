package controller

import (
	"net/http"

	"waterwatch-server/internal/modules/readings/service"
)

type ReadingsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type readingsControllerImpl struct {
	service *service.Service
}

func NewReadingsController(service *service.Service) ReadingsController {
	return &readingsControllerImpl{service: service}
}

func (c *readingsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/readings", c.handleCreate)
	mux.HandleFunc("POST /insert", c.handleCreate)
	mux.HandleFunc("GET /api/v1/readings", c.handleList)
	mux.HandleFunc("GET /api/v1/readings/latest", c.handleLatest)
	mux.HandleFunc("GET /api/v1/readings/latest/quality", c.handleLatestQuality)
	mux.HandleFunc("GET /api/v1/readings/count", c.handleCount)
	mux.HandleFunc("GET /api/v1/readings/export", c.handleExport)
}
