// Package executor defines the contract between the round controller and a
// training backend: model construction, one epoch of optimization, evaluation
// and model persistence.
package executor

import (
	"context"
	"time"

	"github.com/absmach/rounds/pkg/dataset"
	"github.com/absmach/rounds/pkg/schedule"
)

// Model is backend state. The controller only holds and replaces it.
type Model any

type Batches = dataset.Batches

// BatchProvider turns a sample subset into batches.
type BatchProvider interface {
	Batches(samples []dataset.Sample, opts dataset.LoaderOptions) Batches
}

type OptimizerConfig struct {
	LearningRate schedule.LR `json:"-"`
	Momentum     float64     `json:"momentum"`
	WeightDecay  float64     `json:"weight_decay"`
	Nesterov     bool        `json:"nesterov"`
}

// Optimizer carries the configuration and the mutable optimizer state of one
// round. Backends advance Step once per batch and may keep buffers in State.
type Optimizer struct {
	Config OptimizerConfig
	Step   int
	State  any
}

func NewOptimizer(cfg OptimizerConfig) *Optimizer {
	return &Optimizer{Config: cfg}
}

// LR returns the learning rate for the current step.
func (o *Optimizer) LR() float64 {
	if o.Config.LearningRate == nil {
		return 0
	}

	return o.Config.LearningRate(o.Step)
}

type EpochMetrics struct {
	TrainLoss float64       `json:"train_loss"`
	TrainAcc  float64       `json:"train_acc"`
	ValidLoss float64       `json:"valid_loss"`
	ValidAcc  float64       `json:"valid_acc"`
	LR        float64       `json:"lr"`
	Steps     int           `json:"steps"`
	TrainTime time.Duration `json:"train_time"`
	ValidTime time.Duration `json:"valid_time"`
}

// Evaluation is a full validation pass with per-class tallies indexed by label.
type Evaluation struct {
	Accuracy     float64 `json:"accuracy"`
	Correct      int     `json:"correct"`
	Total        int     `json:"total"`
	ClassCorrect []int   `json:"class_correct,omitempty"`
	ClassTotal   []int   `json:"class_total,omitempty"`
}

type Executor interface {
	// TrainEpoch runs one pass over train, updating model and opt in place, and
	// scores the model on valid afterwards.
	TrainEpoch(ctx context.Context, model Model, opt *Optimizer, train, valid Batches) (EpochMetrics, error)

	Evaluate(ctx context.Context, model Model, valid Batches) (Evaluation, error)
}

type ModelFactory interface {
	NewModel(ctx context.Context) (Model, error)
}

// Backend is a training backend that also builds its own models.
type Backend interface {
	Executor
	ModelFactory
}

type Saver interface {
	Save(ctx context.Context, model Model, path string) error
}

// Snapshotter is implemented by models that can be serialized.
type Snapshotter interface {
	Snapshot() (any, error)
}
