package softmax

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/pkg/dataset"
)

var (
	ErrModelType       = errors.New("model is not a softmax model")
	ErrLabelRange      = errors.New("label outside class range")
	ErrFeatureMismatch = errors.New("input width does not match model")
	ErrDiverged        = errors.New("training loss is not finite")
	ErrInvalidShape    = errors.New("classes and features must be positive")
)

var _ executor.Backend = (*Backend)(nil)

type Backend struct {
	classes  int
	features int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewBackend(classes, features int, seed uint64) (*Backend, error) {
	if classes < 1 || features < 1 {
		return nil, fmt.Errorf("%w: %d classes, %d features", ErrInvalidShape, classes, features)
	}

	return &Backend{
		classes:  classes,
		features: features,
		rng:      rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)),
	}, nil
}

func (b *Backend) NewModel(ctx context.Context) (executor.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	return newModel(b.classes, b.features, b.rng), nil
}

// velocity is the momentum buffer kept in executor.Optimizer.State.
type velocity struct {
	w [][]float64
	b []float64
}

func (b *Backend) TrainEpoch(ctx context.Context, model executor.Model, opt *executor.Optimizer, train, valid executor.Batches) (executor.EpochMetrics, error) {
	m, ok := model.(*Model)
	if !ok {
		return executor.EpochMetrics{}, fmt.Errorf("%w: %T", ErrModelType, model)
	}
	v, ok := opt.State.(*velocity)
	if !ok {
		v = &velocity{w: zeros(m.Classes, m.Features), b: make([]float64, m.Classes)}
		opt.State = v
	}

	gw := zeros(m.Classes, m.Features)
	gb := make([]float64, m.Classes)
	probs := make([]float64, m.Classes)

	var (
		lossSum float64
		correct int
		seen    int
		lr      float64
	)
	start := time.Now()
	err := train.Each(ctx, func(batch dataset.Batch) error {
		for c := range gw {
			clear(gw[c])
		}
		clear(gb)

		for i, input := range batch.Inputs {
			label := batch.Labels[i]
			if err := m.check(input, label); err != nil {
				return err
			}
			softmax(m.logits(input, probs))
			lossSum -= math.Log(max(probs[label], math.SmallestNonzeroFloat64))
			if argmax(probs) == label {
				correct++
			}
			for c := range m.Classes {
				d := probs[c]
				if c == label {
					d--
				}
				gb[c] += d
				for f, x := range input {
					gw[c][f] += d * x
				}
			}
		}
		seen += batch.Len()
		if math.IsNaN(lossSum) || math.IsInf(lossSum, 0) {
			return fmt.Errorf("%w: step %d", ErrDiverged, opt.Step)
		}

		lr = opt.LR()
		m.step(v, gw, gb, lr, opt.Config)
		opt.Step++

		return nil
	})
	if err != nil {
		return executor.EpochMetrics{}, err
	}
	trainTime := time.Since(start)

	start = time.Now()
	validLoss, validAcc, err := b.score(ctx, m, valid)
	if err != nil {
		return executor.EpochMetrics{}, err
	}

	return executor.EpochMetrics{
		TrainLoss: ratio(lossSum, seen),
		TrainAcc:  ratio(float64(correct), seen),
		ValidLoss: validLoss,
		ValidAcc:  validAcc,
		LR:        lr,
		Steps:     opt.Step,
		TrainTime: trainTime,
		ValidTime: time.Since(start),
	}, nil
}

func (b *Backend) Evaluate(ctx context.Context, model executor.Model, valid executor.Batches) (executor.Evaluation, error) {
	m, ok := model.(*Model)
	if !ok {
		return executor.Evaluation{}, fmt.Errorf("%w: %T", ErrModelType, model)
	}

	ev := executor.Evaluation{
		ClassCorrect: make([]int, m.Classes),
		ClassTotal:   make([]int, m.Classes),
	}
	probs := make([]float64, m.Classes)
	err := valid.Each(ctx, func(batch dataset.Batch) error {
		for i, input := range batch.Inputs {
			label := batch.Labels[i]
			if err := m.check(input, label); err != nil {
				return err
			}
			ev.ClassTotal[label]++
			ev.Total++
			if argmax(m.logits(input, probs)) == label {
				ev.ClassCorrect[label]++
				ev.Correct++
			}
		}

		return nil
	})
	if err != nil {
		return executor.Evaluation{}, err
	}
	ev.Accuracy = ratio(float64(ev.Correct), ev.Total)

	return ev, nil
}

func (b *Backend) score(ctx context.Context, m *Model, valid executor.Batches) (loss, acc float64, err error) {
	probs := make([]float64, m.Classes)
	var (
		sum     float64
		correct int
		seen    int
	)
	err = valid.Each(ctx, func(batch dataset.Batch) error {
		for i, input := range batch.Inputs {
			label := batch.Labels[i]
			if err := m.check(input, label); err != nil {
				return err
			}
			softmax(m.logits(input, probs))
			sum -= math.Log(max(probs[label], math.SmallestNonzeroFloat64))
			if argmax(probs) == label {
				correct++
			}
		}
		seen += batch.Len()

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return ratio(sum, seen), ratio(float64(correct), seen), nil
}

// step applies SGD with momentum. Gradients are summed over the batch, so the
// learning rate is expected to already carry the 1/batch factor and weight
// decay the batch factor.
func (m *Model) step(v *velocity, gw [][]float64, gb []float64, lr float64, cfg executor.OptimizerConfig) {
	mu := cfg.Momentum
	update := func(param, grad, buf *float64, decay float64) {
		g := *grad + decay*(*param)
		*buf = mu*(*buf) + g
		d := *buf
		if cfg.Nesterov {
			d = g + mu*(*buf)
		}
		*param -= lr * d
	}
	for c := range m.Classes {
		for f := range m.Features {
			update(&m.W[c][f], &gw[c][f], &v.w[c][f], cfg.WeightDecay)
		}
		update(&m.B[c], &gb[c], &v.b[c], 0)
	}
}

func (m *Model) check(input []float64, label int) error {
	if len(input) != m.Features {
		return fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(input), m.Features)
	}
	if label < 0 || label >= m.Classes {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrLabelRange, label, m.Classes)
	}

	return nil
}

func zeros(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}

	return out
}

func ratio(num float64, den int) float64 {
	if den == 0 {
		return 0
	}

	return num / float64(den)
}
