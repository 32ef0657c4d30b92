package badger_test

import (
	"context"
	"testing"

	"github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/storage/badger"
	"github.com/absmach/rounds/pkg/storage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.Database {
	t.Helper()
	db, err := badger.NewDatabase(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestRunRepository(t *testing.T) {
	repos := badger.NewRepositories(setupTestDB(t))
	testutil.RunRepositoryContract(t, repos.Runs)
}

func TestRunRepositoryDuplicate(t *testing.T) {
	repos := badger.NewRepositories(setupTestDB(t))
	rn := testutil.TestRun("dup")
	require.NoError(t, repos.Runs.Create(context.Background(), rn))
	assert.ErrorIs(t, repos.Runs.Create(context.Background(), rn), errors.ErrEntityExists)
}

func TestRecordRepositories(t *testing.T) {
	repos := badger.NewRepositories(setupTestDB(t))
	rn := testutil.TestRun("records")
	require.NoError(t, repos.Runs.Create(context.Background(), rn))

	testutil.RecordRepositoryContract(t, rn.ID, repos.Rounds, repos.Epochs)
}
