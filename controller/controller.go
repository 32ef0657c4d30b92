// Package controller drives the growing-pool round loop: it sizes the run,
// trains and evaluates once per round and grows the in-use subset in between.
package controller

import (
	"context"

	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/pkg/dataset"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

type Service interface {
	// Run executes the whole experiment over the training pool and the fixed
	// validation pool. A service runs once.
	Run(ctx context.Context, train, valid []dataset.Sample) (Report, error)
	Status(ctx context.Context) (Status, error)
	Report(ctx context.Context) (Report, error)
}

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInit      Phase = "init"
	PhaseColdStart Phase = "cold_start"
	PhaseTrain     Phase = "train"
	PhaseEvaluate  Phase = "evaluate"
	PhaseRecord    Phase = "record"
	PhaseGrow      Phase = "grow"
	PhaseSave      Phase = "save"
	PhaseTerminal  Phase = "terminal"
	PhaseFailed    Phase = "failed"
)

func (p Phase) String() string {
	return string(p)
}

// Status is a point-in-time view of a run. Once terminal, InUse is the size
// the final round trained on, since the pool does not grow after it.
type Status struct {
	Run       run.Run     `json:"run"`
	Phase     Phase       `json:"phase"`
	Round     int         `json:"round"`
	Epoch     int         `json:"epoch"`
	InUse     int         `json:"in_use"`
	Available int         `json:"available"`
	Sizing    RoundConfig `json:"sizing"`
}

// Artifact is the outcome of persisting the final model.
type Artifact struct {
	Path  string `json:"path"`
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

type Report struct {
	Run    run.Run     `json:"run"`
	Sizing RoundConfig `json:"sizing"`
	recorder.Report
	Artifact *Artifact `json:"artifact,omitempty"`
}

// ResourceSampler reports process usage at the end of every epoch.
type ResourceSampler interface {
	Sample(ctx context.Context) (recorder.Resources, error)
}

// Collaborators are the external pieces a run is built from. Saver, Notifier,
// Sampler and Recorder are optional.
type Collaborators struct {
	Executor executor.Executor
	Factory  executor.ModelFactory
	Batches  executor.BatchProvider
	Saver    executor.Saver
	Notifier run.Notifier
	Sampler  ResourceSampler
	Recorder *recorder.Recorder
}
