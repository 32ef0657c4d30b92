package sdk_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/absmach/rounds/api"
	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/controller/mocks"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/sdk"
	"github.com/absmach/rounds/pkg/storage"
	"github.com/absmach/rounds/pkg/storage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSDK(t *testing.T) {
	ctx := context.Background()
	repos := storage.NewMemoryRepositories()
	r := testutil.TestRun("curious-hopper")
	require.NoError(t, repos.Runs.Create(ctx, r))
	require.NoError(t, repos.Rounds.Create(ctx, r.ID, testutil.TestRound(1, 200)))
	require.NoError(t, repos.Epochs.Create(ctx, r.ID, testutil.TestEpoch(1, 1, 200)))
	require.NoError(t, repos.Epochs.Create(ctx, r.ID, testutil.TestEpoch(1, 2, 200)))

	svc := new(mocks.MockService)
	svc.On("Status", mock.Anything).Return(controller.Status{
		Run:    r,
		Phase:  controller.PhaseGrow,
		Round:  1,
		InUse:  200,
		Sizing: controller.RoundConfig{TotalN: 1000, StartN: 200, IncrN: 267, MaxN: 1000, Rounds: 4},
	}, nil)
	svc.On("Report", mock.Anything).Return(controller.Report{
		Run:    r,
		Report: recorder.Report{Accuracy: []recorder.SizeAccuracy{{InUse: 200, Accuracy: 0.51}}},
	}, nil)

	ts := httptest.NewServer(api.MakeHandler(svc, repos, slog.New(slog.DiscardHandler), "instance"))
	defer ts.Close()

	client := sdk.NewSDK(sdk.Config{URL: ts.URL, Timeout: 5 * time.Second})

	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, controller.PhaseGrow, st.Phase)
	assert.Equal(t, 267, st.Sizing.IncrN)
	assert.Equal(t, r.ID, st.Run.ID)

	rep, err := client.Report(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Accuracy, 1)
	assert.Equal(t, 0.51, rep.Accuracy[0].Accuracy)

	page, err := client.ListRuns(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
	require.Len(t, page.Runs, 1)
	assert.Equal(t, r.Name, page.Runs[0].Name)

	got, err := client.Run(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.TotalN, got.TotalN)

	rounds, err := client.Rounds(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, []int{25, 26}, rounds[0].ClassCorrect)

	epochs, err := client.Epochs(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, epochs, 2)

	cases := []struct {
		desc string
		call func() error
	}{
		{desc: "unknown run", call: func() error { _, err := client.Run(ctx, "missing"); return err }},
		{desc: "rounds of unknown run", call: func() error { _, err := client.Rounds(ctx, "missing"); return err }},
		{desc: "limit too large", call: func() error { _, err := client.ListRuns(ctx, 0, 1000); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), sdk.ErrUnexpectedCode)
		})
	}
}
