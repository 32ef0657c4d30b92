// Package run describes a single growing-pool experiment run and the events it
// emits while it progresses.
package run

import (
	"context"
	"errors"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/rounds/pkg/pool"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/google/uuid"
)

type State string

const (
	Running   State = "running"
	Completed State = "completed"
	Failed    State = "failed"
)

func (s State) String() string {
	return string(s)
}

// Run is the persisted identity and derived sizing of one experiment.
type Run struct {
	ID         string     `json:"id"                    db:"id"`
	Name       string     `json:"name"                  db:"name"`
	State      State      `json:"state"                 db:"state"`
	Strategy   string     `json:"strategy"              db:"strategy"`
	TotalN     int        `json:"total_n"               db:"total_n"`
	StartN     int        `json:"start_n"               db:"start_n"`
	IncrN      int        `json:"incr_n"                db:"incr_n"`
	MaxN       int        `json:"max_n"                 db:"max_n"`
	CorruptN   int        `json:"corrupt_n"             db:"corrupt_n"`
	Rounds     int        `json:"rounds"                db:"rounds"`
	Epochs     int        `json:"epochs"                db:"epochs"`
	BatchSize  int        `json:"batch_size"            db:"batch_size"`
	Error      string     `json:"error,omitempty"       db:"error"`
	StartedAt  time.Time  `json:"started_at"            db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

// New returns a running Run with a fresh ID. An empty name is replaced by a
// generated one.
func New(name string) Run {
	if name == "" {
		name = namegenerator.NewGenerator().Generate()
	}

	return Run{
		ID:        uuid.NewString(),
		Name:      name,
		State:     Running,
		StartedAt: time.Now(),
	}
}

// Finish moves the run to its terminal state.
func (r *Run) Finish(err error) {
	now := time.Now()
	r.FinishedAt = &now
	if err != nil {
		r.State = Failed
		r.Error = err.Error()

		return
	}
	r.State = Completed
}

type EventKind string

const (
	RunStarted     EventKind = "run.started"
	EpochCompleted EventKind = "epoch.completed"
	RoundCompleted EventKind = "round.completed"
	PoolGrown      EventKind = "pool.grown"
	RunFinished    EventKind = "run.finished"
)

// Event carries exactly one payload matching its kind. Run is set for run
// lifecycle events.
type Event struct {
	Kind      EventKind             `json:"kind"`
	RunID     string                `json:"run_id"`
	Run       *Run                  `json:"run,omitempty"`
	Epoch     *recorder.EpochRecord `json:"epoch,omitempty"`
	Round     *recorder.RoundRecord `json:"round,omitempty"`
	Growth    *pool.Growth          `json:"growth,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Notifiers fans an event out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
