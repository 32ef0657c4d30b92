package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/absmach/rounds/pkg/run"
)

const (
	runsLevel   = "runs"
	statusLevel = "status"
	anyLevel    = "+"
	restLevels  = "#"
)

var errEventTopic = errors.New("topic is not a run event topic")

var _ run.Notifier = (*notifier)(nil)

type notifier struct {
	pubsub PubSub
}

// NewNotifier forwards every run event to the broker.
func NewNotifier(pubsub PubSub) run.Notifier {
	return &notifier{pubsub: pubsub}
}

func (n *notifier) Notify(ctx context.Context, ev run.Event) error {
	if err := n.pubsub.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s of run %s: %w", ev.Kind, ev.RunID, err)
	}

	return nil
}

// EventTopic is the topic a single event is published on.
func EventTopic(base, runID string, kind run.EventKind) string {
	return strings.Join([]string{base, runsLevel, runID, string(kind)}, "/")
}

// EventFilter matches every event of runID, or of every run when runID is
// empty.
func EventFilter(base, runID string) string {
	if runID == "" {
		runID = anyLevel
	}

	return strings.Join([]string{base, runsLevel, runID, restLevels}, "/")
}

// StatusTopic carries the retained presence of one client.
func StatusTopic(base, clientID string) string {
	return strings.Join([]string{base, statusLevel, clientID}, "/")
}

// ParseEventTopic splits an event topic under base into its run ID and kind.
func ParseEventTopic(base, topic string) (string, run.EventKind, error) {
	rest, ok := strings.CutPrefix(topic, base+"/"+runsLevel+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", errEventTopic, topic)
	}
	runID, kind, ok := strings.Cut(rest, "/")
	if !ok || runID == "" || kind == "" || strings.Contains(kind, "/") {
		return "", "", fmt.Errorf("%w: %s", errEventTopic, topic)
	}

	return runID, run.EventKind(kind), nil
}
