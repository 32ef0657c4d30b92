package controller_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/absmach/rounds/backend/softmax"
	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/executor/mocks"
	"github.com/absmach/rounds/pkg/dataset"
	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type events struct {
	mu   sync.Mutex
	list []run.Event
}

func (e *events) Notify(_ context.Context, ev run.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, ev)

	return nil
}

func (e *events) of(kind run.EventKind) []run.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []run.Event
	for _, ev := range e.list {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}

	return out
}

func samples(n int) []dataset.Sample {
	out := make([]dataset.Sample, n)
	for i := range out {
		out[i] = dataset.Sample{Input: []float64{float64(i), 1}, Label: i % 2}
	}

	return out
}

func config(pInitial float64, rounds, maxN, epochs int, strategy controller.Strategy) controller.Config {
	cfg := controller.DefaultConfig()
	cfg.BatchSize = 50
	cfg.Epochs = epochs
	cfg.Rounds = rounds
	cfg.PInitial = pInitial
	cfg.MaxN = maxN
	cfg.Strategy = strategy

	return cfg
}

func newBackend() *mocks.MockBackend {
	b := new(mocks.MockBackend)
	b.On("NewModel", mock.Anything).Return("model", nil)

	return b
}

func onTrain(b *mocks.MockBackend) *mock.Call {
	return b.On("TrainEpoch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func onEvaluate(b *mocks.MockBackend) *mock.Call {
	return b.On("Evaluate", mock.Anything, mock.Anything, mock.Anything)
}

func newService(t *testing.T, cfg controller.Config, b *mocks.MockBackend, saver executor.Saver, ev *events) controller.Service {
	t.Helper()
	c := controller.Collaborators{
		Executor: b,
		Factory:  b,
		Batches:  dataset.NewProvider(1),
		Saver:    saver,
	}
	if ev != nil {
		c.Notifier = ev
	}
	svc, err := controller.NewService(cfg, c, nil)
	require.NoError(t, err)

	return svc
}

func sizes(rep controller.Report) []int {
	out := make([]int, len(rep.Rounds))
	for i, r := range rep.Rounds {
		out[i] = r.InUse
	}

	return out
}

func TestRunGrowsPool(t *testing.T) {
	b := newBackend()
	onTrain(b).Return(executor.EpochMetrics{TrainLoss: 1}, nil)
	onEvaluate(b).Return(executor.Evaluation{Accuracy: 0.5, Correct: 10, Total: 20, ClassCorrect: []int{5, 5}, ClassTotal: []int{10, 10}}, nil)
	ev := &events{}

	svc := newService(t, config(0.2, 4, 1000, 2, controller.CarryForward), b, nil, ev)
	rep, err := svc.Run(context.Background(), samples(1000), samples(20))
	require.NoError(t, err)

	assert.Equal(t, []int{200, 467, 734, 1000}, sizes(rep))
	assert.Len(t, rep.Epochs, 8)
	assert.Len(t, rep.Accuracy, 4)
	assert.Equal(t, controller.RoundConfig{TotalN: 1000, StartN: 200, IncrN: 267, MaxN: 1000, Rounds: 4}, rep.Sizing)
	assert.Equal(t, run.Completed, rep.Run.State)
	assert.Equal(t, 267, rep.Run.IncrN)
	assert.Nil(t, rep.Artifact)

	for i, e := range rep.Epochs {
		assert.Equal(t, i/2+1, e.Round)
		assert.Equal(t, i%2+1, e.Epoch)
		assert.Equal(t, rep.Rounds[i/2].InUse, e.InUse)
	}

	growth := ev.of(run.PoolGrown)
	require.Len(t, growth, 3)
	for _, g := range growth[:2] {
		assert.False(t, g.Growth.Exhausted())
		assert.Equal(t, 267, g.Growth.Moved)
	}
	last := growth[2].Growth
	assert.True(t, last.Exhausted())
	assert.Equal(t, 267, last.Requested)
	assert.Equal(t, 266, last.Moved)
	assert.Equal(t, 1000, last.InUse)
	assert.Equal(t, 0, last.Available)

	assert.Len(t, ev.of(run.RunStarted), 1)
	assert.Len(t, ev.of(run.EpochCompleted), 8)
	assert.Len(t, ev.of(run.RoundCompleted), 4)
	finished := ev.of(run.RunFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, run.Completed, finished[0].Run.State)
	assert.Equal(t, rep.Run.ID, finished[0].RunID)

	b.AssertNumberOfCalls(t, "NewModel", 1)
	b.AssertNumberOfCalls(t, "TrainEpoch", 8)
	b.AssertNumberOfCalls(t, "Evaluate", 4)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, controller.PhaseTerminal, st.Phase)
	assert.Equal(t, 4, st.Round)
	assert.Equal(t, 1000, st.InUse)
	assert.Equal(t, 0, st.Available)
}

func TestRunTerminalPartitionIsLastTrained(t *testing.T) {
	b := newBackend()
	onTrain(b).Return(executor.EpochMetrics{}, nil)
	onEvaluate(b).Return(executor.Evaluation{}, nil)
	ev := &events{}

	svc := newService(t, config(0.2, 3, 600, 1, controller.CarryForward), b, nil, ev)
	rep, err := svc.Run(context.Background(), samples(1000), samples(10))
	require.NoError(t, err)
	assert.Equal(t, []int{200, 400, 600}, sizes(rep))
	assert.Len(t, ev.of(run.PoolGrown), 2)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, controller.PhaseTerminal, st.Phase)
	assert.Equal(t, 600, st.InUse)
	assert.Equal(t, 400, st.Available)
}

func TestRunStrategyFactoryCalls(t *testing.T) {
	cases := []struct {
		desc     string
		strategy controller.Strategy
		rounds   int
		calls    int
	}{
		{desc: "warm start builds once", strategy: controller.CarryForward, rounds: 5, calls: 1},
		{desc: "cold start builds every round", strategy: controller.ResetEachRound, rounds: 5, calls: 5},
		{desc: "cold start single round", strategy: controller.ResetEachRound, rounds: 1, calls: 1},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			b := newBackend()
			onTrain(b).Return(executor.EpochMetrics{}, nil)
			onEvaluate(b).Return(executor.Evaluation{}, nil)

			svc := newService(t, config(0.2, tc.rounds, -1, 1, tc.strategy), b, nil, nil)
			rep, err := svc.Run(context.Background(), samples(500), samples(10))
			require.NoError(t, err)
			assert.Len(t, rep.Rounds, tc.rounds)
			b.AssertNumberOfCalls(t, "NewModel", tc.calls)
		})
	}
}

func TestRunSingleRoundIgnoresMax(t *testing.T) {
	cases := []struct {
		desc string
		maxN int
	}{
		{desc: "max below pool", maxN: 10},
		{desc: "max beyond pool", maxN: 5000},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			b := newBackend()
			onTrain(b).Return(executor.EpochMetrics{}, nil)
			onEvaluate(b).Return(executor.Evaluation{}, nil)
			ev := &events{}

			svc := newService(t, config(1, 1, tc.maxN, 3, controller.CarryForward), b, nil, ev)
			rep, err := svc.Run(context.Background(), samples(300), samples(10))
			require.NoError(t, err)

			assert.Equal(t, []int{300}, sizes(rep))
			assert.Equal(t, 0, rep.Sizing.IncrN)
			assert.Empty(t, ev.of(run.PoolGrown))
			b.AssertNumberOfCalls(t, "TrainEpoch", 3)
		})
	}
}

func TestRunFreshOptimizerEachRound(t *testing.T) {
	b := newBackend()
	var opts []*executor.Optimizer
	onTrain(b).Run(func(args mock.Arguments) {
		opt := args.Get(2).(*executor.Optimizer)
		opt.Step += 3
		opts = append(opts, opt)
	}).Return(executor.EpochMetrics{}, nil)
	onEvaluate(b).Return(executor.Evaluation{}, nil)

	cfg := config(0.5, 2, -1, 2, controller.CarryForward)
	svc := newService(t, cfg, b, nil, nil)
	_, err := svc.Run(context.Background(), samples(200), samples(10))
	require.NoError(t, err)

	require.Len(t, opts, 4)
	assert.Same(t, opts[0], opts[1])
	assert.Same(t, opts[2], opts[3])
	assert.NotSame(t, opts[1], opts[2])
	assert.Equal(t, 6, opts[3].Step)
	assert.InDelta(t, controller.DefaultWeightDecay*50, opts[0].Config.WeightDecay, 1e-12)
	assert.InDelta(t, controller.DefaultMomentum, opts[0].Config.Momentum, 1e-12)
	require.NotNil(t, opts[0].Config.LearningRate)
	assert.InDelta(t, 0, opts[0].Config.LearningRate(0), 1e-12)
}

func TestRunExecutorFailures(t *testing.T) {
	cases := []struct {
		desc    string
		setup   func(b *mocks.MockBackend)
		round   int
		epoch   int
		phase   controller.Phase
		rounds  int
		epochs  int
		records int
	}{
		{
			desc: "train fails in second round",
			setup: func(b *mocks.MockBackend) {
				b.On("NewModel", mock.Anything).Return("model", nil)
				onTrain(b).Return(executor.EpochMetrics{}, nil).Times(2)
				onTrain(b).Return(executor.EpochMetrics{}, errBoom).Once()
				onEvaluate(b).Return(executor.Evaluation{}, nil)
			},
			round:   2,
			epoch:   1,
			phase:   controller.PhaseTrain,
			records: 2,
		},
		{
			desc: "evaluation fails",
			setup: func(b *mocks.MockBackend) {
				b.On("NewModel", mock.Anything).Return("model", nil)
				onTrain(b).Return(executor.EpochMetrics{}, nil)
				onEvaluate(b).Return(executor.Evaluation{}, errBoom)
			},
			round:   1,
			phase:   controller.PhaseEvaluate,
			records: 2,
		},
		{
			desc: "model factory fails",
			setup: func(b *mocks.MockBackend) {
				b.On("NewModel", mock.Anything).Return(nil, errBoom)
			},
			round: 1,
			phase: controller.PhaseColdStart,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			b := new(mocks.MockBackend)
			tc.setup(b)
			saver := new(mocks.MockSaver)
			ev := &events{}

			cfg := config(0.5, 3, -1, 2, controller.CarryForward)
			cfg.ModelPath = "model.cbor"
			svc := newService(t, cfg, b, saver, ev)

			rep, err := svc.Run(context.Background(), samples(300), samples(10))
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)

			var re *controller.RoundError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tc.round, re.Round)
			assert.Equal(t, tc.epoch, re.Epoch)
			assert.Equal(t, tc.phase, re.Phase)

			assert.Len(t, rep.Epochs, tc.records)
			assert.Equal(t, run.Failed, rep.Run.State)
			assert.Contains(t, rep.Run.Error, "boom")
			assert.Nil(t, rep.Artifact)
			saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)

			finished := ev.of(run.RunFinished)
			require.Len(t, finished, 1)
			assert.Equal(t, run.Failed, finished[0].Run.State)

			st, err := svc.Status(context.Background())
			require.NoError(t, err)
			assert.Equal(t, controller.PhaseFailed, st.Phase)
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBackend()
	onTrain(b).Run(func(mock.Arguments) { cancel() }).Return(executor.EpochMetrics{}, nil)
	ev := &events{}

	svc := newService(t, config(0.5, 2, -1, 3, controller.CarryForward), b, nil, ev)
	rep, err := svc.Run(ctx, samples(100), samples(10))
	assert.ErrorIs(t, err, context.Canceled)

	var re *controller.RoundError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Round)
	assert.Equal(t, 2, re.Epoch)
	assert.Len(t, rep.Epochs, 1)
	assert.Empty(t, rep.Rounds)
	assert.Len(t, ev.of(run.RunFinished), 1)
}

func TestRunSavesModel(t *testing.T) {
	cases := []struct {
		desc    string
		saveErr error
		saved   bool
	}{
		{desc: "save succeeds", saved: true},
		{desc: "save failure is not fatal", saveErr: errors.New("disk full")},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			b := newBackend()
			onTrain(b).Return(executor.EpochMetrics{}, nil)
			onEvaluate(b).Return(executor.Evaluation{}, nil)
			saver := new(mocks.MockSaver)
			saver.On("Save", mock.Anything, "model", "out/model.cbor").Return(tc.saveErr)

			cfg := config(1, 1, -1, 1, controller.CarryForward)
			cfg.ModelPath = "out/model.cbor"
			svc := newService(t, cfg, b, saver, nil)

			rep, err := svc.Run(context.Background(), samples(100), samples(10))
			require.NoError(t, err)
			require.NotNil(t, rep.Artifact)
			assert.Equal(t, "out/model.cbor", rep.Artifact.Path)
			assert.Equal(t, tc.saved, rep.Artifact.Saved)
			if tc.saveErr != nil {
				assert.Equal(t, tc.saveErr.Error(), rep.Artifact.Error)
			}
			assert.Equal(t, run.Completed, rep.Run.State)
			saver.AssertNumberOfCalls(t, "Save", 1)
		})
	}
}

func TestRunInvalidConfig(t *testing.T) {
	b := newBackend()
	ev := &events{}
	svc := newService(t, config(0.2, 4, 2000, 1, controller.CarryForward), b, nil, ev)

	rep, err := svc.Run(context.Background(), samples(1000), samples(10))
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
	assert.Equal(t, run.Failed, rep.Run.State)
	b.AssertNotCalled(t, "NewModel", mock.Anything)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, controller.PhaseFailed, st.Phase)

	started := ev.of(run.RunStarted)
	require.Len(t, started, 1)
	assert.Equal(t, run.Running, started[0].Run.State)
	finished := ev.of(run.RunFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, rep.Run.ID, finished[0].RunID)
	assert.Equal(t, run.Failed, finished[0].Run.State)
	assert.NotEmpty(t, finished[0].Run.Error)
	assert.Empty(t, ev.of(run.RoundCompleted))
}

func TestRunOnlyOnce(t *testing.T) {
	b := newBackend()
	onTrain(b).Return(executor.EpochMetrics{}, nil)
	onEvaluate(b).Return(executor.Evaluation{}, nil)

	svc := newService(t, config(1, 1, -1, 1, controller.CarryForward), b, nil, nil)
	_, err := svc.Run(context.Background(), samples(10), samples(10))
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), samples(10), samples(10))
	assert.ErrorIs(t, err, controller.ErrAlreadyRan)
}

func TestRunNotifierFailureIsIgnored(t *testing.T) {
	b := newBackend()
	onTrain(b).Return(executor.EpochMetrics{}, nil)
	onEvaluate(b).Return(executor.Evaluation{}, nil)

	svc, err := controller.NewService(config(0.5, 2, -1, 1, controller.CarryForward), controller.Collaborators{
		Executor: b,
		Factory:  b,
		Batches:  dataset.NewProvider(1),
		Notifier: run.NotifierFunc(func(context.Context, run.Event) error { return errBoom }),
	}, nil)
	require.NoError(t, err)

	rep, err := svc.Run(context.Background(), samples(100), samples(10))
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, sizes(rep))
}

func TestNewServiceMissingCollaborators(t *testing.T) {
	b := newBackend()
	cases := []struct {
		desc string
		c    controller.Collaborators
	}{
		{desc: "no executor", c: controller.Collaborators{Factory: b, Batches: dataset.NewProvider(1)}},
		{desc: "no factory", c: controller.Collaborators{Executor: b, Batches: dataset.NewProvider(1)}},
		{desc: "no batches", c: controller.Collaborators{Executor: b, Factory: b}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := controller.NewService(controller.DefaultConfig(), tc.c, nil)
			assert.ErrorIs(t, err, controller.ErrMissingCollaborator)
		})
	}
}

func TestRunWithSoftmaxBackend(t *testing.T) {
	train, valid, err := dataset.Synthetic(dataset.SyntheticConfig{
		Classes:      3,
		Features:     4,
		TrainSamples: 240,
		ValidSamples: 60,
		Separation:   4,
		Noise:        0.3,
		Seed:         5,
	})
	require.NoError(t, err)

	backend, err := softmax.NewBackend(3, 4, 5)
	require.NoError(t, err)

	cfg := controller.DefaultConfig()
	cfg.BatchSize = 16
	cfg.Epochs = 3
	cfg.Rounds = 3
	cfg.PInitial = 0.25
	cfg.PCorrupt = 0.1
	cfg.Augment = []dataset.Transform{dataset.Jitter(0.05)}

	svc, err := controller.NewService(cfg, controller.Collaborators{
		Executor: backend,
		Factory:  backend,
		Batches:  dataset.NewProvider(2),
	}, nil)
	require.NoError(t, err)

	rep, err := svc.Run(context.Background(), train, valid)
	require.NoError(t, err)
	assert.Equal(t, []int{60, 150, 240}, sizes(rep))
	assert.Equal(t, 24, rep.Run.CorruptN)
	for _, r := range rep.Rounds {
		assert.Equal(t, 60, r.Total)
		assert.Equal(t, []int{20, 20, 20}, r.ClassTotal)
		assert.GreaterOrEqual(t, r.Accuracy, 0.0)
		assert.LessOrEqual(t, r.Accuracy, 1.0)
	}
	assert.Len(t, rep.LastEpochs(), 3)
}
