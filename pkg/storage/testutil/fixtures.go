package testutil

import (
	"time"

	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
	"github.com/google/uuid"
)

func TestRun(name string) run.Run {
	return run.Run{
		ID:        uuid.NewString(),
		Name:      name,
		State:     run.Running,
		Strategy:  "carry_forward",
		TotalN:    1000,
		StartN:    200,
		IncrN:     267,
		MaxN:      1000,
		Rounds:    4,
		Epochs:    2,
		BatchSize: 64,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRound(round, inUse int) recorder.RoundRecord {
	return recorder.RoundRecord{
		Round:        round,
		InUse:        inUse,
		Accuracy:     0.5 + float64(round)/100,
		Correct:      50 + round,
		Total:        100,
		ClassCorrect: []int{25, 25 + round},
		ClassTotal:   []int{50, 50},
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestEpoch(round, epoch, inUse int) recorder.EpochRecord {
	return recorder.EpochRecord{
		Round: round,
		Epoch: epoch,
		InUse: inUse,
		Metrics: executor.EpochMetrics{
			TrainLoss: 1.5,
			TrainAcc:  0.4,
			ValidLoss: 1.7,
			ValidAcc:  0.35,
			LR:        0.001,
			Steps:     epoch * 10,
			TrainTime: 2 * time.Second,
			ValidTime: 500 * time.Millisecond,
		},
		Resources: &recorder.Resources{RSSBytes: 1 << 20, CPUPercent: 12.5},
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
	}
}
