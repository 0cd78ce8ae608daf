package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"waterwatch-server/internal/modules/readings/quality"
	"waterwatch-server/internal/modules/readings/types"
)

// RecentReadings returns up to limit of the newest readings, oldest first.
// A limit of 0 means the configured default.
func (s *Service) RecentReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 0 || limit > s.maxLimit {
		return nil, &types.ValidationError{
			Field:  "limit",
			Value:  fmt.Sprint(limit),
			Reason: fmt.Sprintf("must be within [1, %d]", s.maxLimit),
		}
	}

	readings, err := s.repository.QueryRecent(ctx, limit)
	if err != nil {
		return nil, &types.StorageUnavailableError{Err: err}
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	// storage returns newest first; charts want chronological order
	slices.Reverse(readings)
	return readings, nil
}

// Latest returns the newest reading or types.ErrNoReadings.
func (s *Service) Latest(ctx context.Context) (types.Reading, error) {
	r, err := s.repository.Latest(ctx)
	if errors.Is(err, types.ErrNoReadings) {
		return types.Reading{}, err
	}
	if err != nil {
		return types.Reading{}, &types.StorageUnavailableError{Err: err}
	}
	return r, nil
}

// LatestQuality assesses the newest reading.
func (s *Service) LatestQuality(ctx context.Context) (types.Reading, quality.Assessment, error) {
	r, err := s.Latest(ctx)
	if err != nil {
		return types.Reading{}, quality.Assessment{}, err
	}
	return r, s.labeler.Assess(r.PH, r.NTU, r.TDS), nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repository.Count(ctx)
	if err != nil {
		return 0, &types.StorageUnavailableError{Err: err}
	}
	return n, nil
}
