package testutil

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runRepository interface {
	Create(ctx context.Context, r run.Run) error
	Get(ctx context.Context, id string) (run.Run, error)
	Update(ctx context.Context, r run.Run) error
	List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error)
}

type roundRepository interface {
	Create(ctx context.Context, runID string, r recorder.RoundRecord) error
	List(ctx context.Context, runID string) ([]recorder.RoundRecord, error)
}

type epochRepository interface {
	Create(ctx context.Context, runID string, e recorder.EpochRecord) error
	List(ctx context.Context, runID string) ([]recorder.EpochRecord, error)
}

// RunRepositoryContract exercises a run repository that starts empty.
func RunRepositoryContract(t *testing.T, repo runRepository) {
	t.Helper()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	runs := make([]run.Run, 3)
	for i := range runs {
		runs[i] = TestRun("run")
		runs[i].StartedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, runs[i]))
	}

	t.Run("get existing run", func(t *testing.T) {
		got, err := repo.Get(ctx, runs[1].ID)
		require.NoError(t, err)
		assertRun(t, runs[1], got)
	})

	t.Run("get missing run", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	})

	t.Run("create without id", func(t *testing.T) {
		err := repo.Create(ctx, run.Run{})
		assert.ErrorIs(t, err, pkgerrors.ErrEmptyKey)
	})

	t.Run("update finishes run", func(t *testing.T) {
		rn := runs[0]
		rn.Finish(assert.AnError)
		finished := rn.FinishedAt.UTC().Truncate(time.Microsecond)
		rn.FinishedAt = &finished
		require.NoError(t, repo.Update(ctx, rn))

		got, err := repo.Get(ctx, rn.ID)
		require.NoError(t, err)
		assertRun(t, rn, got)
	})

	t.Run("update missing run", func(t *testing.T) {
		err := repo.Update(ctx, TestRun("missing"))
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		got, total, err := repo.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total)
		require.Len(t, got, 3)
		assert.Equal(t, runs[2].ID, got[0].ID)
		assert.Equal(t, runs[0].ID, got[2].ID)

		page, total, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total)
		require.Len(t, page, 1)
		assert.Equal(t, runs[1].ID, page[0].ID)

		empty, _, err := repo.List(ctx, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

// RecordRepositoryContract exercises the round and epoch logs of a run that
// already exists in the backing store.
func RecordRepositoryContract(t *testing.T, runID string, rounds roundRepository, epochs epochRepository) {
	t.Helper()
	ctx := context.Background()

	sizes := []int{200, 467, 467, 1000}
	for i, size := range sizes {
		for e := 1; e <= 2; e++ {
			require.NoError(t, epochs.Create(ctx, runID, TestEpoch(i+1, e, size)))
		}
		require.NoError(t, rounds.Create(ctx, runID, TestRound(i+1, size)))
	}
	noResources := TestEpoch(5, 1, 1000)
	noResources.Resources = nil
	require.NoError(t, epochs.Create(ctx, runID, noResources))

	t.Run("rounds in order with duplicates kept", func(t *testing.T) {
		got, err := rounds.List(ctx, runID)
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i, r := range got {
			want := TestRound(i+1, sizes[i])
			assert.Equal(t, want.Round, r.Round)
			assert.Equal(t, sizes[i], r.InUse)
			assert.InDelta(t, want.Accuracy, r.Accuracy, 1e-12)
			assert.Equal(t, want.ClassCorrect, r.ClassCorrect)
			assert.Equal(t, want.ClassTotal, r.ClassTotal)
		}
	})

	t.Run("epochs in order", func(t *testing.T) {
		got, err := epochs.List(ctx, runID)
		require.NoError(t, err)
		require.Len(t, got, 9)
		for i, e := range got[:8] {
			assert.Equal(t, i/2+1, e.Round)
			assert.Equal(t, i%2+1, e.Epoch)
			assert.Equal(t, 2*time.Second, e.Metrics.TrainTime)
			require.NotNil(t, e.Resources)
			assert.Equal(t, uint64(1<<20), e.Resources.RSSBytes)
		}
		assert.Nil(t, got[8].Resources)
	})

	t.Run("unknown run", func(t *testing.T) {
		r, err := rounds.List(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, r)

		e, err := epochs.List(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, e)
	})

	t.Run("empty run id", func(t *testing.T) {
		assert.ErrorIs(t, rounds.Create(ctx, "", TestRound(1, 1)), pkgerrors.ErrEmptyKey)
		assert.ErrorIs(t, epochs.Create(ctx, "", TestEpoch(1, 1, 1)), pkgerrors.ErrEmptyKey)
	})
}

func assertRun(t *testing.T, want, got run.Run) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.Strategy, got.Strategy)
	assert.Equal(t, want.StartN, got.StartN)
	assert.Equal(t, want.IncrN, got.IncrN)
	assert.Equal(t, want.Rounds, got.Rounds)
	assert.Equal(t, want.Error, got.Error)
	assert.True(t, want.StartedAt.Equal(got.StartedAt), "started %v != %v", want.StartedAt, got.StartedAt)
	if want.FinishedAt == nil {
		assert.Nil(t, got.FinishedAt)

		return
	}
	require.NotNil(t, got.FinishedAt)
	assert.True(t, want.FinishedAt.Equal(*got.FinishedAt))
}
