package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/absmach/rounds/executor"
	"github.com/fxamacker/cbor/v2"
)

var ErrNotSnapshotter = errors.New("model does not support snapshots")

var _ executor.Saver = (*ModelSaver)(nil)

// ModelSaver encodes model snapshots as CBOR into a Store.
type ModelSaver struct {
	store Store
}

func NewModelSaver(store Store) *ModelSaver {
	return &ModelSaver{store: store}
}

func (s *ModelSaver) Save(ctx context.Context, model executor.Model, path string) error {
	snap, ok := model.(executor.Snapshotter)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotSnapshotter, model)
	}
	v, err := snap.Snapshot()
	if err != nil {
		return err
	}
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	return s.store.Put(ctx, path, data)
}

// Load decodes a saved snapshot into v.
func (s *ModelSaver) Load(ctx context.Context, path string, v any) error {
	data, err := s.store.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}

	return nil
}
