// Package storage persists runs together with their round and epoch logs.
package storage

import (
	"context"

	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

// Storage is a generic ordered key-value store.
type Storage interface {
	Create(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (any, error)
	Update(ctx context.Context, key string, value any) error
	List(ctx context.Context, offset, limit uint64) ([]any, uint64, error)
	Delete(ctx context.Context, key string) error
}

type RunRepository interface {
	Create(ctx context.Context, r run.Run) error
	Get(ctx context.Context, id string) (run.Run, error)
	Update(ctx context.Context, r run.Run) error
	// List returns runs newest first.
	List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error)
}

type RoundRepository interface {
	Create(ctx context.Context, runID string, r recorder.RoundRecord) error
	// List returns the rounds of a run in round order.
	List(ctx context.Context, runID string) ([]recorder.RoundRecord, error)
}

type EpochRepository interface {
	Create(ctx context.Context, runID string, e recorder.EpochRecord) error
	// List returns the epochs of a run in round then epoch order.
	List(ctx context.Context, runID string) ([]recorder.EpochRecord, error)
}
