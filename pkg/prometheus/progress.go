package prometheus

import (
	"context"

	"github.com/absmach/rounds/pkg/run"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const runLabel = "run"

var _ run.Notifier = (*progress)(nil)

type progress struct {
	round     metrics.Gauge
	epoch     metrics.Gauge
	inUse     metrics.Gauge
	available metrics.Gauge
	trainLoss metrics.Gauge
	validAcc  metrics.Gauge
	accuracy  metrics.Gauge
	running   metrics.Gauge
	growths   metrics.Counter
}

// NewProgress registers run progress gauges on reg and returns a notifier
// that keeps them current.
func NewProgress(reg stdprometheus.Registerer, namespace string) (run.Notifier, error) {
	p := &progress{}
	gauges := []struct {
		dst  *metrics.Gauge
		name string
		help string
	}{
		{&p.round, "round", "Current training round."},
		{&p.epoch, "epoch", "Last completed epoch within the round."},
		{&p.inUse, "pool_in_use", "Samples in the active training subset."},
		{&p.available, "pool_available", "Samples left in the reserve."},
		{&p.trainLoss, "train_loss", "Training loss of the last epoch."},
		{&p.validAcc, "epoch_validation_accuracy", "Validation accuracy of the last epoch."},
		{&p.accuracy, "round_validation_accuracy", "Validation accuracy of the last completed round."},
		{&p.running, "running", "1 while the run is in progress."},
	}
	for _, g := range gauges {
		vec := stdprometheus.NewGaugeVec(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      g.name,
			Help:      g.help,
		}, []string{runLabel})
		if err := reg.Register(vec); err != nil {
			return nil, err
		}
		*g.dst = kitprometheus.NewGauge(vec)
	}

	growths := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "run",
		Name:      "pool_growth_samples_total",
		Help:      "Samples moved from the reserve into the active subset.",
	}, []string{runLabel})
	if err := reg.Register(growths); err != nil {
		return nil, err
	}
	p.growths = kitprometheus.NewCounter(growths)

	return p, nil
}

func (p *progress) Notify(_ context.Context, ev run.Event) error {
	id := ev.RunID
	switch ev.Kind {
	case run.RunStarted:
		p.running.With(runLabel, id).Set(1)
		if ev.Run != nil {
			p.inUse.With(runLabel, id).Set(float64(ev.Run.StartN))
			p.available.With(runLabel, id).Set(float64(ev.Run.TotalN - ev.Run.StartN))
		}
	case run.EpochCompleted:
		if ev.Epoch != nil {
			p.round.With(runLabel, id).Set(float64(ev.Epoch.Round))
			p.epoch.With(runLabel, id).Set(float64(ev.Epoch.Epoch))
			p.trainLoss.With(runLabel, id).Set(ev.Epoch.Metrics.TrainLoss)
			p.validAcc.With(runLabel, id).Set(ev.Epoch.Metrics.ValidAcc)
		}
	case run.RoundCompleted:
		if ev.Round != nil {
			p.accuracy.With(runLabel, id).Set(ev.Round.Accuracy)
		}
	case run.PoolGrown:
		if ev.Growth != nil {
			p.inUse.With(runLabel, id).Set(float64(ev.Growth.InUse))
			p.available.With(runLabel, id).Set(float64(ev.Growth.Available))
			p.growths.With(runLabel, id).Add(float64(ev.Growth.Moved))
		}
	case run.RunFinished:
		p.running.With(runLabel, id).Set(0)
	}

	return nil
}
