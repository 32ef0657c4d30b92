package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
	"github.com/absmach/rounds/pkg/storage"
	"github.com/absmach/rounds/pkg/storage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	cases := []struct {
		desc string
		key  string
		err  error
	}{
		{desc: "create first", key: "a"},
		{desc: "create second", key: "b"},
		{desc: "create third", key: "c"},
		{desc: "duplicate key", key: "a", err: errors.ErrEntityExists},
		{desc: "empty key", key: "", err: errors.ErrEmptyKey},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := s.Create(ctx, tc.key, tc.key)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	values, total, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []any{"a", "b", "c"}, values)

	values, _, err = s.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, values)

	require.NoError(t, s.Update(ctx, "b", "B"))
	got, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "B", got)

	assert.ErrorIs(t, s.Update(ctx, "z", 1), errors.ErrNotFound)
	_, err = s.Get(ctx, "z")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "a"))
	values, total, err = s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, []any{"B", "c"}, values)
}

func TestMemoryRepositories(t *testing.T) {
	repos := storage.NewMemoryRepositories()
	testutil.RunRepositoryContract(t, repos.Runs)
	testutil.RecordRepositoryContract(t, "run-1", repos.Rounds, repos.Epochs)
	assert.NoError(t, repos.Close())
}

func TestNewRepositories(t *testing.T) {
	cases := []struct {
		desc string
		cfg  storage.Config
		err  error
	}{
		{desc: "memory", cfg: storage.Config{Type: "memory"}},
		{desc: "default is memory", cfg: storage.Config{}},
		{desc: "sqlite", cfg: storage.Config{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "rounds.db")}},
		{desc: "badger", cfg: storage.Config{Type: "badger", BadgerPath: t.TempDir()}},
		{desc: "unknown", cfg: storage.Config{Type: "etcd"}, err: storage.ErrUnsupportedType},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			repos, err := storage.NewRepositories(tc.cfg)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			require.NotNil(t, repos.Runs)
			assert.NoError(t, repos.Close())
		})
	}
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	repos := storage.NewMemoryRepositories()
	n := storage.NewNotifier(repos)

	rn := testutil.TestRun("sink")
	epoch := testutil.TestEpoch(1, 1, 200)
	round := testutil.TestRound(1, 200)

	events := []run.Event{
		{Kind: run.RunStarted, RunID: rn.ID, Run: &rn},
		{Kind: run.EpochCompleted, RunID: rn.ID, Epoch: &epoch},
		{Kind: run.RoundCompleted, RunID: rn.ID, Round: &round},
		{Kind: run.PoolGrown, RunID: rn.ID},
	}
	for _, ev := range events {
		require.NoError(t, n.Notify(ctx, ev))
	}

	finished := rn
	finished.Finish(nil)
	require.NoError(t, n.Notify(ctx, run.Event{Kind: run.RunFinished, RunID: rn.ID, Run: &finished}))

	got, err := repos.Runs.Get(ctx, rn.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Completed, got.State)

	rounds, err := repos.Rounds.List(ctx, rn.ID)
	require.NoError(t, err)
	assert.Equal(t, []recorder.RoundRecord{round}, rounds)

	epochs, err := repos.Epochs.List(ctx, rn.ID)
	require.NoError(t, err)
	assert.Len(t, epochs, 1)

	err = n.Notify(ctx, run.Event{Kind: run.RoundCompleted, RunID: rn.ID})
	assert.ErrorIs(t, err, storage.ErrMissingPayload)
}
