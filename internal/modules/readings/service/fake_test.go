package service

import (
	"context"
	"sync"
	"time"

	"waterwatch-server/internal/modules/readings/types"
)

// fakeRepo is an in-memory ReadingsRepository.
type fakeRepo struct {
	mu       sync.Mutex
	rows     []types.Reading
	clock    time.Time
	writeErr error
	readErr  error
	appends  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clock: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeRepo) Append(_ context.Context, ph, ntu, tds float64) (types.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.writeErr != nil {
		return types.Reading{}, &types.WriteError{Err: f.writeErr}
	}
	f.clock = f.clock.Add(time.Second)
	r := types.Reading{ID: int64(len(f.rows) + 1), PH: ph, NTU: ntu, TDS: tds, CreatedAt: f.clock}
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeRepo) QueryRecent(_ context.Context, limit int) ([]types.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, &types.ReadError{Op: "query recent", Err: f.readErr}
	}
	out := make([]types.Reading, 0, limit)
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

func (f *fakeRepo) Latest(_ context.Context) (types.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return types.Reading{}, &types.ReadError{Op: "latest reading", Err: f.readErr}
	}
	if len(f.rows) == 0 {
		return types.Reading{}, types.ErrNoReadings
	}
	return f.rows[len(f.rows)-1], nil
}

func (f *fakeRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, &types.ReadError{Op: "count readings", Err: f.readErr}
	}
	return int64(len(f.rows)), nil
}
