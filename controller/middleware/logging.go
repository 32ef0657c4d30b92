package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/dataset"
)

var _ controller.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    controller.Service
}

func Logging(logger *slog.Logger, svc controller.Service) controller.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Run(ctx context.Context, train, valid []dataset.Sample) (rep controller.Report, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", rep.Run.ID),
				slog.String("name", rep.Run.Name),
				slog.Int("rounds", len(rep.Rounds)),
			),
			slog.Group("pool",
				slog.Int("train", len(train)),
				slog.Int("valid", len(valid)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Run failed", args...)

			return
		}
		lm.logger.Info("Run completed successfully", args...)
	}(time.Now())

	return lm.svc.Run(ctx, train, valid)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (st controller.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("phase", st.Phase.String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Debug("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) Report(ctx context.Context) (rep controller.Report, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("rounds", len(rep.Rounds)),
			slog.Int("epochs", len(rep.Epochs)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get report failed", args...)

			return
		}
		lm.logger.Debug("Get report completed successfully", args...)
	}(time.Now())

	return lm.svc.Report(ctx)
}
