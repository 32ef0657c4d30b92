package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

var errExists = errors.New("key already exists")

// Run keys sort by start time so listings come back chronologically.
const (
	runPrefix     = "run:"
	runIndex      = "runidx:"
	roundPrefix   = "round:"
	epochPrefix   = "epoch:"
	sequenceWidth = 8
)

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

func roundKey(runID string, round int) []byte {
	return fmt.Appendf(nil, "%s%s:%0*d", roundPrefix, runID, sequenceWidth, round)
}

func epochKey(runID string, round, epoch int) []byte {
	return fmt.Appendf(nil, "%s%s:%0*d:%0*d", epochPrefix, runID, sequenceWidth, round, sequenceWidth, epoch)
}

type RunRepository struct {
	db *Database
}

func NewRunRepository(db *Database) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, rn run.Run) error {
	if rn.ID == "" {
		return pkgerrors.ErrEmptyKey
	}
	val, err := json.Marshal(rn)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.create(runKey(rn.ID), val); err != nil {
		if errors.Is(err, errExists) {
			return pkgerrors.ErrEntityExists
		}

		return err
	}
	idx := fmt.Appendf(nil, "%s%020d:%s", runIndex, rn.StartedAt.UnixNano(), rn.ID)

	return r.db.set(idx, []byte(rn.ID))
}

func (r *RunRepository) Get(ctx context.Context, id string) (run.Run, error) {
	val, err := r.db.get(runKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return run.Run{}, fmt.Errorf("%w: run %s", pkgerrors.ErrNotFound, id)
		}

		return run.Run{}, err
	}
	var rn run.Run
	if err := json.Unmarshal(val, &rn); err != nil {
		return run.Run{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return rn, nil
}

func (r *RunRepository) Update(ctx context.Context, rn run.Run) error {
	val, err := json.Marshal(rn)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.update(runKey(rn.ID), val); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: run %s", pkgerrors.ErrNotFound, rn.ID)
		}

		return err
	}

	return nil
}

func (r *RunRepository) List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error) {
	prefix := []byte(runIndex)
	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}
	ids, err := r.db.listWithPrefix(prefix, offset, limit, true)
	if err != nil {
		return nil, 0, err
	}
	runs := make([]run.Run, 0, len(ids))
	for _, id := range ids {
		rn, err := r.Get(ctx, string(id))
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, rn)
	}

	return runs, total, nil
}

type RoundRepository struct {
	db *Database
}

func NewRoundRepository(db *Database) *RoundRepository {
	return &RoundRepository{db: db}
}

func (r *RoundRepository) Create(ctx context.Context, runID string, rec recorder.RoundRecord) error {
	if runID == "" {
		return pkgerrors.ErrEmptyKey
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.set(roundKey(runID, rec.Round), val)
}

func (r *RoundRepository) List(ctx context.Context, runID string) ([]recorder.RoundRecord, error) {
	values, err := r.db.listWithPrefix([]byte(roundPrefix+runID+":"), 0, math.MaxUint64, false)
	if err != nil {
		return nil, err
	}
	out := make([]recorder.RoundRecord, len(values))
	for i, val := range values {
		if err := json.Unmarshal(val, &out[i]); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
	}

	return out, nil
}

type EpochRepository struct {
	db *Database
}

func NewEpochRepository(db *Database) *EpochRepository {
	return &EpochRepository{db: db}
}

func (r *EpochRepository) Create(ctx context.Context, runID string, rec recorder.EpochRecord) error {
	if runID == "" {
		return pkgerrors.ErrEmptyKey
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.set(epochKey(runID, rec.Round, rec.Epoch), val)
}

func (r *EpochRepository) List(ctx context.Context, runID string) ([]recorder.EpochRecord, error) {
	values, err := r.db.listWithPrefix([]byte(epochPrefix+runID+":"), 0, math.MaxUint64, false)
	if err != nil {
		return nil, err
	}
	out := make([]recorder.EpochRecord, len(values))
	for i, val := range values {
		if err := json.Unmarshal(val, &out[i]); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
	}

	return out, nil
}
