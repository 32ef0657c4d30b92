package storage

import (
	"context"
	"fmt"

	"github.com/absmach/rounds/pkg/run"
)

var _ run.Notifier = (*sink)(nil)

type sink struct {
	repos *Repositories
}

// NewNotifier persists run lifecycle, epoch and round events.
func NewNotifier(repos *Repositories) run.Notifier {
	return &sink{repos: repos}
}

func (s *sink) Notify(ctx context.Context, ev run.Event) error {
	switch ev.Kind {
	case run.RunStarted:
		if ev.Run == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, ev.Kind)
		}

		return s.repos.Runs.Create(ctx, *ev.Run)
	case run.RunFinished:
		if ev.Run == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, ev.Kind)
		}

		return s.repos.Runs.Update(ctx, *ev.Run)
	case run.EpochCompleted:
		if ev.Epoch == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, ev.Kind)
		}

		return s.repos.Epochs.Create(ctx, ev.RunID, *ev.Epoch)
	case run.RoundCompleted:
		if ev.Round == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, ev.Kind)
		}

		return s.repos.Rounds.Create(ctx, ev.RunID, *ev.Round)
	default:
		return nil
	}
}
