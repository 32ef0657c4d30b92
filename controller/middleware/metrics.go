package middleware

import (
	"context"
	"time"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/dataset"
	"github.com/go-kit/kit/metrics"
)

var _ controller.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     controller.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc controller.Service) controller.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Run(ctx context.Context, train, valid []dataset.Sample) (controller.Report, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "run").Add(1)
		mm.latency.With("method", "run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Run(ctx, train, valid)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (controller.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) Report(ctx context.Context) (controller.Report, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "report").Add(1)
		mm.latency.With("method", "report").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Report(ctx)
}
