package storage

import (
	"context"
	"math"
	"slices"
	"sync"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

type memoryRunRepo struct {
	storage Storage
}

func newMemoryRunRepository(s Storage) RunRepository {
	return &memoryRunRepo{storage: s}
}

func (r *memoryRunRepo) Create(ctx context.Context, rn run.Run) error {
	return r.storage.Create(ctx, rn.ID, rn)
}

func (r *memoryRunRepo) Get(ctx context.Context, id string) (run.Run, error) {
	data, err := r.storage.Get(ctx, id)
	if err != nil {
		return run.Run{}, err
	}
	rn, ok := data.(run.Run)
	if !ok {
		return run.Run{}, pkgerrors.ErrInvalidData
	}

	return rn, nil
}

func (r *memoryRunRepo) Update(ctx context.Context, rn run.Run) error {
	return r.storage.Update(ctx, rn.ID, rn)
}

func (r *memoryRunRepo) List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error) {
	data, total, err := r.storage.List(ctx, 0, math.MaxUint64)
	if err != nil {
		return nil, 0, err
	}
	runs := make([]run.Run, 0, len(data))
	for i := len(data) - 1; i >= 0; i-- {
		rn, ok := data[i].(run.Run)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		runs = append(runs, rn)
	}
	if offset >= total {
		return []run.Run{}, total, nil
	}
	end := offset + limit
	if end > total || end < offset {
		end = total
	}

	return runs[offset:end], total, nil
}

// memoryLog keeps per-run append-only slices.
type memoryLog[T any] struct {
	mu   sync.Mutex
	data map[string][]T
}

func newMemoryLog[T any]() *memoryLog[T] {
	return &memoryLog[T]{data: make(map[string][]T)}
}

func (l *memoryLog[T]) Create(_ context.Context, runID string, rec T) error {
	if runID == "" {
		return pkgerrors.ErrEmptyKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[runID] = append(l.data[runID], rec)

	return nil
}

func (l *memoryLog[T]) List(_ context.Context, runID string) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.data[runID]), nil
}

var (
	_ RoundRepository = (*memoryLog[recorder.RoundRecord])(nil)
	_ EpochRepository = (*memoryLog[recorder.EpochRecord])(nil)
)
