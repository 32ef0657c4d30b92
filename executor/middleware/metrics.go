package middleware

import (
	"context"
	"time"

	"github.com/absmach/rounds/executor"
	"github.com/go-kit/kit/metrics"
)

var _ executor.Backend = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	backend executor.Backend
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, backend executor.Backend) executor.Backend {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		backend: backend,
	}
}

func (mm *metricsMiddleware) NewModel(ctx context.Context) (executor.Model, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "new-model").Add(1)
		mm.latency.With("method", "new-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.backend.NewModel(ctx)
}

func (mm *metricsMiddleware) TrainEpoch(ctx context.Context, model executor.Model, opt *executor.Optimizer, train, valid executor.Batches) (executor.EpochMetrics, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "train-epoch").Add(1)
		mm.latency.With("method", "train-epoch").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.backend.TrainEpoch(ctx, model, opt, train, valid)
}

func (mm *metricsMiddleware) Evaluate(ctx context.Context, model executor.Model, valid executor.Batches) (executor.Evaluation, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "evaluate").Add(1)
		mm.latency.With("method", "evaluate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.backend.Evaluate(ctx, model, valid)
}
