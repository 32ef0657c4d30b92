package middleware

import (
	"context"

	"github.com/absmach/rounds/executor"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ executor.Backend = (*tracing)(nil)

type tracing struct {
	tracer  trace.Tracer
	backend executor.Backend
}

func Tracing(tracer trace.Tracer, backend executor.Backend) executor.Backend {
	return &tracing{tracer, backend}
}

func (tm *tracing) NewModel(ctx context.Context) (model executor.Model, err error) {
	ctx, span := tm.tracer.Start(ctx, "new-model")
	defer endSpan(span, &err)

	return tm.backend.NewModel(ctx)
}

func (tm *tracing) TrainEpoch(ctx context.Context, model executor.Model, opt *executor.Optimizer, train, valid executor.Batches) (m executor.EpochMetrics, err error) {
	ctx, span := tm.tracer.Start(ctx, "train-epoch", trace.WithAttributes(
		attribute.Int("batches.train", train.Len()),
		attribute.Int("batches.valid", valid.Len()),
		attribute.Int("optimizer.step", opt.Step),
	))
	defer endSpan(span, &err)

	return tm.backend.TrainEpoch(ctx, model, opt, train, valid)
}

func (tm *tracing) Evaluate(ctx context.Context, model executor.Model, valid executor.Batches) (ev executor.Evaluation, err error) {
	ctx, span := tm.tracer.Start(ctx, "evaluate", trace.WithAttributes(
		attribute.Int("batches.valid", valid.Len()),
	))
	defer endSpan(span, &err)

	return tm.backend.Evaluate(ctx, model, valid)
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
