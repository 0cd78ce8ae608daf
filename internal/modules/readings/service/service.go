package service

import (
	"log/slog"

	"waterwatch-server/internal/metrics"
	"waterwatch-server/internal/modules/readings/quality"
	"waterwatch-server/internal/modules/readings/repository"
)

const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

type Options struct {
	// LenientParse coerces unparseable numbers to 0 instead of rejecting them.
	LenientParse bool
	DefaultLimit int
	MaxLimit     int
	Labeler      *quality.Labeler
	Metrics      *metrics.Manager
	Logger       *slog.Logger
}

type Service struct {
	repository   repository.ReadingsRepository
	lenient      bool
	defaultLimit int
	maxLimit     int
	labeler      *quality.Labeler
	metrics      *metrics.Manager
	logger       *slog.Logger
}

func NewService(repository repository.ReadingsRepository, opts Options) *Service {
	s := &Service{
		repository:   repository,
		lenient:      opts.LenientParse,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		labeler:      opts.Labeler,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = 50
	}
	if s.maxLimit < s.defaultLimit {
		s.maxLimit = max(1000, s.defaultLimit)
	}
	if s.labeler == nil {
		s.labeler = quality.NewLabeler(false)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) DefaultLimit() int { return s.defaultLimit }
func (s *Service) MaxLimit() int     { return s.maxLimit }
func (s *Service) Labeler() *quality.Labeler {
	return s.labeler
}
