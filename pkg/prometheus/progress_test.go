package prometheus_test

import (
	"context"
	"testing"

	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/pkg/pool"
	rprom "github.com/absmach/rounds/pkg/prometheus"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, reg *stdprometheus.Registry, name, runID string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() != "run" || l.GetValue() != runID {
					continue
				}
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue()
				}

				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s for run %s not found", name, runID)

	return 0
}

func TestProgress(t *testing.T) {
	reg := stdprometheus.NewRegistry()
	n, err := rprom.NewProgress(reg, "rounds")
	require.NoError(t, err)

	ctx := context.Background()
	r := run.Run{ID: "r1", TotalN: 1000, StartN: 200}
	events := []run.Event{
		{Kind: run.RunStarted, RunID: "r1", Run: &r},
		{Kind: run.EpochCompleted, RunID: "r1", Epoch: &recorder.EpochRecord{
			Round: 1, Epoch: 3, InUse: 200,
			Metrics: executor.EpochMetrics{TrainLoss: 0.5, ValidAcc: 0.75},
		}},
		{Kind: run.RoundCompleted, RunID: "r1", Round: &recorder.RoundRecord{Round: 1, InUse: 200, Accuracy: 0.8}},
		{Kind: run.PoolGrown, RunID: "r1", Growth: &pool.Growth{Requested: 267, Moved: 267, InUse: 467, Available: 533}},
		{Kind: run.PoolGrown, RunID: "r1", Growth: &pool.Growth{Requested: 267, Moved: 267, InUse: 734, Available: 266}},
	}
	for _, ev := range events {
		require.NoError(t, n.Notify(ctx, ev))
	}

	cases := []struct {
		desc   string
		metric string
		want   float64
	}{
		{desc: "round", metric: "rounds_run_round", want: 1},
		{desc: "epoch", metric: "rounds_run_epoch", want: 3},
		{desc: "in use after growth", metric: "rounds_run_pool_in_use", want: 734},
		{desc: "available after growth", metric: "rounds_run_pool_available", want: 266},
		{desc: "train loss", metric: "rounds_run_train_loss", want: 0.5},
		{desc: "epoch accuracy", metric: "rounds_run_epoch_validation_accuracy", want: 0.75},
		{desc: "round accuracy", metric: "rounds_run_round_validation_accuracy", want: 0.8},
		{desc: "growth total", metric: "rounds_run_pool_growth_samples_total", want: 534},
		{desc: "running", metric: "rounds_run_running", want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.InDelta(t, tc.want, value(t, reg, tc.metric, "r1"), 1e-12)
		})
	}

	require.NoError(t, n.Notify(ctx, run.Event{Kind: run.RunFinished, RunID: "r1", Run: &r}))
	assert.Equal(t, 0.0, value(t, reg, "rounds_run_running", "r1"))
}

func TestProgressDuplicateRegistration(t *testing.T) {
	reg := stdprometheus.NewRegistry()
	_, err := rprom.NewProgress(reg, "rounds")
	require.NoError(t, err)

	_, err = rprom.NewProgress(reg, "rounds")
	assert.Error(t, err)
}

func TestMakeMetrics(t *testing.T) {
	counter, latency := rprom.MakeMetrics("rounds_test", "api")
	require.NotNil(t, counter)
	require.NotNil(t, latency)

	counter.With("method", "run").Add(1)
	latency.With("method", "run").Observe(0.25)
}
