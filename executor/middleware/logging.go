package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/rounds/executor"
)

var _ executor.Backend = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger  *slog.Logger
	backend executor.Backend
}

func Logging(logger *slog.Logger, backend executor.Backend) executor.Backend {
	return &loggingMiddleware{
		logger:  logger,
		backend: backend,
	}
}

func (lm *loggingMiddleware) NewModel(ctx context.Context) (model executor.Model, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("New model failed", args...)

			return
		}
		lm.logger.Debug("New model completed successfully", args...)
	}(time.Now())

	return lm.backend.NewModel(ctx)
}

func (lm *loggingMiddleware) TrainEpoch(ctx context.Context, model executor.Model, opt *executor.Optimizer, train, valid executor.Batches) (m executor.EpochMetrics, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("batches",
				slog.Int("train", train.Len()),
				slog.Int("valid", valid.Len()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Train epoch failed", args...)

			return
		}
		args = append(args,
			slog.Group("metrics",
				slog.Float64("train_loss", m.TrainLoss),
				slog.Float64("train_acc", m.TrainAcc),
				slog.Float64("valid_acc", m.ValidAcc),
				slog.Float64("lr", m.LR),
			),
		)
		lm.logger.Info("Train epoch completed successfully", args...)
	}(time.Now())

	return lm.backend.TrainEpoch(ctx, model, opt, train, valid)
}

func (lm *loggingMiddleware) Evaluate(ctx context.Context, model executor.Model, valid executor.Batches) (ev executor.Evaluation, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Evaluate failed", args...)

			return
		}
		args = append(args,
			slog.Float64("accuracy", ev.Accuracy),
			slog.Int("total", ev.Total),
		)
		lm.logger.Info("Evaluate completed successfully", args...)
	}(time.Now())

	return lm.backend.Evaluate(ctx, model, valid)
}
