package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/absmach/rounds"
	"github.com/absmach/rounds/api"
	"github.com/absmach/rounds/backend/softmax"
	"github.com/absmach/rounds/controller"
	cmiddleware "github.com/absmach/rounds/controller/middleware"
	"github.com/absmach/rounds/executor"
	emiddleware "github.com/absmach/rounds/executor/middleware"
	"github.com/absmach/rounds/pkg/blob"
	"github.com/absmach/rounds/pkg/dataset"
	"github.com/absmach/rounds/pkg/monitor"
	"github.com/absmach/rounds/pkg/mqtt"
	"github.com/absmach/rounds/pkg/prometheus"
	"github.com/absmach/rounds/pkg/run"
	"github.com/absmach/rounds/pkg/server"
	"github.com/absmach/rounds/pkg/storage"
	"github.com/absmach/rounds/pkg/tracing"
	"github.com/go-kit/kit/metrics"
	"github.com/google/uuid"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

type serviceMetrics struct {
	svcCounter metrics.Counter
	svcLatency metrics.Histogram
	exCounter  metrics.Counter
	exLatency  metrics.Histogram
	progress   run.Notifier
	err        error
}

var (
	metricsOnce sync.Once
	svcMetrics  serviceMetrics
)

// instruments registers process-wide collectors on first use.
func instruments() serviceMetrics {
	metricsOnce.Do(func() {
		svcMetrics.svcCounter, svcMetrics.svcLatency = prometheus.MakeMetrics(svcName, "controller")
		svcMetrics.exCounter, svcMetrics.exLatency = prometheus.MakeMetrics(svcName, "executor")
		svcMetrics.progress, svcMetrics.err = prometheus.NewProgress(stdprometheus.DefaultRegisterer, svcName)
	})

	return svcMetrics
}

// Start runs one experiment with every configured collaborator. With serve
// set and an HTTP port configured it keeps the API up after the run until a
// signal arrives.
func Start(ctx context.Context, exp *rounds.Config, st Settings, serve bool, logger *slog.Logger) (controller.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if st.InstanceID == "" {
		st.InstanceID = uuid.NewString()
	}

	tracer, shutdown, err := tracing.Tracer(ctx, svcName, st.OTELURL, st.InstanceID, st.TraceRatio)
	if err != nil {
		return controller.Report{}, fmt.Errorf("failed to initialize opentelemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("error shutting down tracer provider", slog.Any("error", err))
		}
	}()

	repos, err := storage.NewRepositories(st.Storage)
	if err != nil {
		return controller.Report{}, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Error("error closing storage", slog.Any("error", err))
		}
	}()

	store, err := blob.New(ctx, st.Blob)
	if err != nil {
		return controller.Report{}, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	inst := instruments()
	notifiers := run.Notifiers{storage.NewNotifier(repos)}
	if inst.err != nil {
		logger.Warn("progress metrics disabled", slog.Any("error", inst.err))
	} else {
		notifiers = append(notifiers, inst.progress)
	}

	if st.MQTTEnabled {
		if st.MQTT.ClientID == "" {
			st.MQTT.ClientID = svcName + "-" + st.InstanceID
		}
		ps, err := mqtt.NewPubSub(st.MQTT, logger)
		if err != nil {
			return controller.Report{}, fmt.Errorf("failed to initialize mqtt pubsub: %w", err)
		}
		defer func() {
			if err := ps.Disconnect(context.Background()); err != nil {
				logger.Error("error disconnecting from mqtt", slog.Any("error", err))
			}
		}()
		notifiers = append(notifiers, mqtt.NewNotifier(ps))
	}

	var sampler controller.ResourceSampler
	if ps, err := monitor.NewProcessSampler(0); err != nil {
		logger.Warn("resource sampling disabled", slog.Any("error", err))
	} else {
		sampler = ps
	}

	train, valid, err := dataset.Synthetic(exp.Synthetic())
	if err != nil {
		return controller.Report{}, err
	}

	cc, err := exp.Controller()
	if err != nil {
		return controller.Report{}, err
	}

	sm, err := softmax.NewBackend(exp.Dataset.Classes, exp.Dataset.Features, cc.Seed)
	if err != nil {
		return controller.Report{}, err
	}
	var backend executor.Backend = sm
	backend = emiddleware.Logging(logger, backend)
	backend = emiddleware.Tracing(tracer, backend)
	backend = emiddleware.Metrics(inst.exCounter, inst.exLatency, backend)

	svc, err := controller.NewService(cc, controller.Collaborators{
		Executor: backend,
		Factory:  backend,
		Batches:  dataset.NewProvider(cc.Seed),
		Saver:    blob.NewModelSaver(store),
		Notifier: notifiers,
		Sampler:  sampler,
	}, logger)
	if err != nil {
		return controller.Report{}, err
	}
	svc = cmiddleware.Logging(logger, svc)
	svc = cmiddleware.Tracing(tracer, svc)
	svc = cmiddleware.Metrics(inst.svcCounter, inst.svcLatency, svc)

	var servers []server.Server
	if st.HTTP.Port != "" {
		hs := server.NewServer(ctx, cancel, svcName, st.HTTP, api.MakeHandler(svc, repos, logger, st.InstanceID), logger)
		servers = append(servers, hs)
		g.Go(hs.Start)
	}

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, servers...)
	})

	var report controller.Report
	g.Go(func() error {
		var err error
		report, err = svc.Run(ctx, train, valid)
		if err != nil {
			return err
		}
		if !serve || len(servers) == 0 {
			cancel()
		}

		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return report, err
	}

	return report, runError(report)
}

// runError surfaces a failed run even when the group exited cleanly.
func runError(report controller.Report) error {
	if report.Run.State == run.Failed {
		return errors.New(report.Run.Error)
	}

	return nil
}
