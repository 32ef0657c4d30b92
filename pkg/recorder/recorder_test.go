package recorder_test

import (
	"sync"
	"testing"

	"github.com/absmach/rounds/executor"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderReport(t *testing.T) {
	rec := recorder.New()

	sizes := []int{200, 467, 467, 1000}
	for i, size := range sizes {
		for e := 1; e <= 2; e++ {
			rec.RecordEpoch(recorder.EpochRecord{
				Round:   i + 1,
				Epoch:   e,
				InUse:   size,
				Metrics: executor.EpochMetrics{TrainLoss: float64(e)},
			})
		}
		rec.RecordRound(recorder.RoundRecord{
			Round:    i + 1,
			InUse:    size,
			Accuracy: float64(i) / 10,
		})
	}

	rep := rec.Report()
	require.Len(t, rep.Rounds, 4)
	require.Len(t, rep.Epochs, 8)
	require.Len(t, rep.Accuracy, 4)
	for i, size := range sizes {
		assert.Equal(t, size, rep.Accuracy[i].InUse)
		assert.InDelta(t, float64(i)/10, rep.Accuracy[i].Accuracy, 1e-12)
		assert.False(t, rep.Rounds[i].Timestamp.IsZero())
	}

	last := rep.LastEpochs()
	require.Len(t, last, 4)
	for i, e := range last {
		assert.Equal(t, i+1, e.Round)
		assert.Equal(t, 2, e.Epoch)
	}
}

func TestRecorderSnapshotsAreIsolated(t *testing.T) {
	rec := recorder.New()
	correct := []int{3, 4}
	rec.RecordRound(recorder.RoundRecord{Round: 1, InUse: 10, ClassCorrect: correct, ClassTotal: []int{5, 5}})
	correct[0] = 99

	rounds := rec.Rounds()
	assert.Equal(t, []int{3, 4}, rounds[0].ClassCorrect)

	rounds[0].InUse = 0
	assert.Equal(t, 10, rec.Rounds()[0].InUse)
	assert.Empty(t, rec.Epochs())
}

func TestClassAccuracy(t *testing.T) {
	cases := []struct {
		desc string
		rec  recorder.RoundRecord
		want []float64
	}{
		{
			desc: "balanced classes",
			rec:  recorder.RoundRecord{ClassCorrect: []int{1, 2}, ClassTotal: []int{2, 4}},
			want: []float64{0.5, 0.5},
		},
		{
			desc: "class without samples",
			rec:  recorder.RoundRecord{ClassCorrect: []int{0, 3}, ClassTotal: []int{0, 3}},
			want: []float64{0, 1},
		},
		{
			desc: "no tallies",
			rec:  recorder.RoundRecord{},
			want: []float64{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rec.ClassAccuracy())
		})
	}
}

func TestRecorderConcurrentReaders(t *testing.T) {
	rec := recorder.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 100 {
			rec.RecordEpoch(recorder.EpochRecord{Round: 1, Epoch: i + 1})
		}
	}()
	go func() {
		defer wg.Done()
		for range 100 {
			_ = rec.Report()
		}
	}()
	wg.Wait()

	assert.Len(t, rec.Epochs(), 100)
}
