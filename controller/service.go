package controller

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/pkg/dataset"
	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/pool"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
	"github.com/absmach/rounds/pkg/schedule"
)

var _ Service = (*service)(nil)

// RunState is everything a run mutates. It is owned by the service and only
// read by Status under the service lock.
type RunState struct {
	Run       run.Run
	Sizing    RoundConfig
	Partition *pool.Partition[dataset.Sample]
	Model     executor.Model
	Optimizer *executor.Optimizer
	Phase     Phase
	Round     int
	Epoch     int
	Artifact  *Artifact
}

type service struct {
	cfg      Config
	sched    *schedule.PiecewiseLinear
	exec     executor.Executor
	factory  executor.ModelFactory
	batches  executor.BatchProvider
	saver    executor.Saver
	notifier run.Notifier
	sampler  ResourceSampler
	recorder *recorder.Recorder
	logger   *slog.Logger

	mu      sync.RWMutex
	started bool
	state   RunState
}

func NewService(cfg Config, c Collaborators, logger *slog.Logger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case c.Executor == nil:
		return nil, fmt.Errorf("%w: executor", ErrMissingCollaborator)
	case c.Factory == nil:
		return nil, fmt.Errorf("%w: model factory", ErrMissingCollaborator)
	case c.Batches == nil:
		return nil, fmt.Errorf("%w: batch provider", ErrMissingCollaborator)
	}

	sched := cfg.Schedule
	if sched == nil {
		var err error
		if sched, err = DefaultSchedule(cfg.Epochs); err != nil {
			return nil, err
		}
	}
	rec := c.Recorder
	if rec == nil {
		rec = recorder.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		cfg:      cfg,
		sched:    sched,
		exec:     c.Executor,
		factory:  c.Factory,
		batches:  c.Batches,
		saver:    c.Saver,
		notifier: c.Notifier,
		sampler:  c.Sampler,
		recorder: rec,
		logger:   logger,
		state:    RunState{Phase: PhaseIdle},
	}, nil
}

func (svc *service) Run(ctx context.Context, train, valid []dataset.Sample) (Report, error) {
	svc.mu.Lock()
	if svc.started {
		svc.mu.Unlock()

		return Report{}, ErrAlreadyRan
	}
	svc.started = true
	svc.state.Run = run.New(svc.cfg.RunName)
	svc.state.Phase = PhaseInit
	svc.mu.Unlock()

	// Runs rejected at INIT still reach every notifier.
	if err := svc.init(train); err != nil {
		r := svc.snapshot().Run
		svc.notify(ctx, run.Event{Kind: run.RunStarted, Run: &r})

		return svc.finish(ctx, err)
	}

	st := svc.snapshot()
	svc.logger.Info("Starting rounds",
		slog.String("run_id", st.Run.ID),
		slog.String("name", st.Run.Name),
		slog.Int("total", st.Sizing.TotalN),
		slog.Int("start", st.Sizing.StartN),
		slog.Int("increment", st.Sizing.IncrN),
		slog.Int("rounds", st.Sizing.Rounds),
		slog.String("strategy", svc.cfg.Strategy.String()),
	)
	svc.notify(ctx, run.Event{Kind: run.RunStarted, Run: &st.Run})

	err := svc.loop(ctx, valid)
	if err == nil {
		svc.save(ctx)
	}

	return svc.finish(ctx, err)
}

func (svc *service) Status(_ context.Context) (Status, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	st := Status{
		Run:    svc.state.Run,
		Phase:  svc.state.Phase,
		Round:  svc.state.Round,
		Epoch:  svc.state.Epoch,
		Sizing: svc.state.Sizing,
	}
	if p := svc.state.Partition; p != nil {
		st.InUse = p.InUseLen()
		st.Available = p.AvailableLen()
	}

	return st, nil
}

func (svc *service) Report(_ context.Context) (Report, error) {
	return svc.report(), nil
}

// init derives sizing, applies truncation and label corruption and places the
// partition at the start size.
func (svc *service) init(train []dataset.Sample) error {
	samples := dataset.Take(train, svc.cfg.Take)
	sizing, err := Derive(svc.cfg, len(samples))
	if err != nil {
		return err
	}

	if sizing.CorruptN > 0 {
		classes := svc.cfg.Classes
		if classes == 0 {
			classes = dataset.Classes(samples)
		}
		rng := rand.New(rand.NewPCG(svc.cfg.Seed, svc.cfg.Seed+1))
		if samples, err = dataset.CorruptLabels(samples, sizing.CorruptN, classes, rng); err != nil {
			return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, err)
		}
	}

	partition, err := pool.New(samples, sizing.StartN)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.state.Sizing = sizing
	svc.state.Partition = partition
	svc.state.Run.Strategy = svc.cfg.Strategy.String()
	svc.state.Run.TotalN = sizing.TotalN
	svc.state.Run.StartN = sizing.StartN
	svc.state.Run.IncrN = sizing.IncrN
	svc.state.Run.MaxN = sizing.MaxN
	svc.state.Run.CorruptN = sizing.CorruptN
	svc.state.Run.Rounds = sizing.Rounds
	svc.state.Run.Epochs = svc.cfg.Epochs
	svc.state.Run.BatchSize = svc.cfg.BatchSize

	return nil
}

func (svc *service) loop(ctx context.Context, valid []dataset.Sample) error {
	validBatches := svc.batches.Batches(valid, dataset.LoaderOptions{BatchSize: svc.cfg.BatchSize})
	rounds := svc.snapshot().Sizing.Rounds

	for round := 1; round <= rounds; round++ {
		if err := ctx.Err(); err != nil {
			return &RoundError{Round: round, Phase: PhaseTrain, Err: err}
		}
		if err := svc.round(ctx, round, rounds, validBatches); err != nil {
			return err
		}
	}

	return nil
}

// round trains, evaluates and records one round, then grows the pool for the
// next one. The final round does not grow, so the partition reported at
// PhaseTerminal is the one the last round trained on.
func (svc *service) round(ctx context.Context, round, rounds int, validBatches executor.Batches) error {
	st := svc.begin(round)

	model := st.Model
	if svc.cfg.Strategy == ResetEachRound || model == nil {
		svc.setPhase(PhaseColdStart)
		m, err := svc.factory.NewModel(ctx)
		if err != nil {
			return &RoundError{Round: round, Phase: PhaseColdStart, Err: err}
		}
		model = m
	}

	inUse := st.Partition.InUse()
	size := len(inUse)
	svc.logger.Info("Beginning round",
		slog.Int("round", round),
		slog.Int("in_use", size),
		slog.Int("available", st.Partition.AvailableLen()),
	)

	trainBatches := svc.batches.Batches(inUse, dataset.LoaderOptions{
		BatchSize: svc.cfg.BatchSize,
		Shuffle:   true,
		DropLast:  true,
		Augment:   svc.cfg.Augment,
	})
	opt := executor.NewOptimizer(executor.OptimizerConfig{
		LearningRate: schedule.LearningRate(svc.sched, trainBatches.Len(), svc.cfg.BatchSize),
		Momentum:     svc.cfg.Momentum,
		WeightDecay:  svc.cfg.WeightDecay * float64(svc.cfg.BatchSize),
		Nesterov:     svc.cfg.Nesterov,
	})
	svc.mu.Lock()
	svc.state.Model = model
	svc.state.Optimizer = opt
	svc.state.Phase = PhaseTrain
	svc.mu.Unlock()

	for epoch := 1; epoch <= svc.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return &RoundError{Round: round, Epoch: epoch, Phase: PhaseTrain, Err: err}
		}
		svc.mu.Lock()
		svc.state.Epoch = epoch
		svc.mu.Unlock()

		metrics, err := svc.exec.TrainEpoch(ctx, model, opt, trainBatches, validBatches)
		if err != nil {
			return &RoundError{Round: round, Epoch: epoch, Phase: PhaseTrain, Err: err}
		}
		rec := recorder.EpochRecord{
			Round:     round,
			Epoch:     epoch,
			InUse:     size,
			Metrics:   metrics,
			Resources: svc.resources(ctx),
			Timestamp: time.Now(),
		}
		svc.recorder.RecordEpoch(rec)
		svc.notify(ctx, run.Event{Kind: run.EpochCompleted, Epoch: &rec})
	}

	svc.setPhase(PhaseEvaluate)
	ev, err := svc.exec.Evaluate(ctx, model, validBatches)
	if err != nil {
		return &RoundError{Round: round, Phase: PhaseEvaluate, Err: err}
	}

	svc.setPhase(PhaseRecord)
	rr := recorder.RoundRecord{
		Round:        round,
		InUse:        size,
		Accuracy:     ev.Accuracy,
		Correct:      ev.Correct,
		Total:        ev.Total,
		ClassCorrect: ev.ClassCorrect,
		ClassTotal:   ev.ClassTotal,
		Timestamp:    time.Now(),
	}
	svc.recorder.RecordRound(rr)
	svc.logger.Info("Round completed",
		slog.Int("round", round),
		slog.Int("in_use", size),
		slog.Float64("validation_accuracy", ev.Accuracy),
	)
	svc.notify(ctx, run.Event{Kind: run.RoundCompleted, Round: &rr})

	if round == rounds {
		return nil
	}

	return svc.grow(ctx, round, st.Partition, st.Sizing.IncrN)
}

func (svc *service) grow(ctx context.Context, round int, p *pool.Partition[dataset.Sample], incr int) error {
	svc.mu.Lock()
	svc.state.Phase = PhaseGrow
	before := p.InUseLen()
	g, err := p.Grow(incr)
	after := p.InUseLen()
	svc.mu.Unlock()

	if err != nil {
		return &RoundError{Round: round, Phase: PhaseGrow, Err: err}
	}
	if after != before+g.Moved {
		return &RoundError{
			Round: round,
			Phase: PhaseGrow,
			Err:   fmt.Errorf("%w: %d + %d != %d", ErrPartitionDrift, before, g.Moved, after),
		}
	}
	if g.Exhausted() {
		svc.logger.Warn("Reserve exhausted",
			slog.Int("round", round),
			slog.Int("requested", g.Requested),
			slog.Int("moved", g.Moved),
			slog.Int("in_use", g.InUse),
		)
	}
	svc.notify(ctx, run.Event{Kind: run.PoolGrown, Growth: &g})

	return nil
}

func (svc *service) save(ctx context.Context) {
	if svc.cfg.ModelPath == "" || svc.saver == nil {
		return
	}
	svc.setPhase(PhaseSave)
	st := svc.snapshot()

	art := &Artifact{Path: svc.cfg.ModelPath}
	if err := svc.saver.Save(ctx, st.Model, svc.cfg.ModelPath); err != nil {
		art.Error = err.Error()
		svc.logger.Warn("Failed to save model",
			slog.String("path", svc.cfg.ModelPath),
			slog.Any("error", err),
		)
	} else {
		art.Saved = true
	}

	svc.mu.Lock()
	svc.state.Artifact = art
	svc.mu.Unlock()
}

func (svc *service) finish(ctx context.Context, err error) (Report, error) {
	svc.mu.Lock()
	svc.state.Run.Finish(err)
	if err != nil {
		svc.state.Phase = PhaseFailed
	} else {
		svc.state.Phase = PhaseTerminal
	}
	r := svc.state.Run
	svc.mu.Unlock()

	if err != nil {
		svc.logger.Error("Run failed", slog.String("run_id", r.ID), slog.Any("error", err))
	} else {
		svc.logger.Info("Run completed", slog.String("run_id", r.ID))
	}
	// The run context may already be cancelled; the terminal event still goes out.
	svc.notify(context.WithoutCancel(ctx), run.Event{Kind: run.RunFinished, Run: &r})

	return svc.report(), err
}

func (svc *service) begin(round int) RunState {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.state.Round = round
	svc.state.Epoch = 0

	return svc.state
}

func (svc *service) setPhase(p Phase) {
	svc.mu.Lock()
	svc.state.Phase = p
	svc.mu.Unlock()
}

func (svc *service) snapshot() RunState {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return svc.state
}

func (svc *service) report() Report {
	st := svc.snapshot()

	return Report{
		Run:      st.Run,
		Sizing:   st.Sizing,
		Report:   svc.recorder.Report(),
		Artifact: st.Artifact,
	}
}

func (svc *service) resources(ctx context.Context) *recorder.Resources {
	if svc.sampler == nil {
		return nil
	}
	res, err := svc.sampler.Sample(ctx)
	if err != nil {
		svc.logger.Debug("Failed to sample resources", slog.Any("error", err))

		return nil
	}

	return &res
}

func (svc *service) notify(ctx context.Context, ev run.Event) {
	if svc.notifier == nil {
		return
	}
	svc.mu.RLock()
	ev.RunID = svc.state.Run.ID
	svc.mu.RUnlock()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if err := svc.notifier.Notify(ctx, ev); err != nil {
		svc.logger.Warn("Failed to notify",
			slog.String("kind", string(ev.Kind)),
			slog.Any("error", err),
		)
	}
}
