package middleware

import (
	"context"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/dataset"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ controller.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    controller.Service
}

func Tracing(tracer trace.Tracer, svc controller.Service) controller.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Run(ctx context.Context, train, valid []dataset.Sample) (rep controller.Report, err error) {
	ctx, span := tm.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.Int("pool.train", len(train)),
		attribute.Int("pool.valid", len(valid)),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("run.id", rep.Run.ID),
			attribute.Int("run.rounds", len(rep.Rounds)),
		)
		endSpan(span, err)
	}()

	return tm.svc.Run(ctx, train, valid)
}

func (tm *tracing) Status(ctx context.Context) (controller.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) Report(ctx context.Context) (controller.Report, error) {
	ctx, span := tm.tracer.Start(ctx, "report")
	defer span.End()

	return tm.svc.Report(ctx)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
