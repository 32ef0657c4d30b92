// Package recorder keeps the append-only epoch and round logs of a run.
package recorder

import (
	"sync"
	"time"

	"github.com/absmach/rounds/executor"
)

// Resources is the process usage sampled at the end of an epoch.
type Resources struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

type EpochRecord struct {
	Round     int                   `json:"round"`
	Epoch     int                   `json:"epoch"`
	InUse     int                   `json:"in_use"`
	Metrics   executor.EpochMetrics `json:"metrics"`
	Resources *Resources            `json:"resources,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// RoundRecord is keyed by the in-use size the round trained on.
type RoundRecord struct {
	Round        int       `json:"round"`
	InUse        int       `json:"in_use"`
	Accuracy     float64   `json:"validation_accuracy"`
	Correct      int       `json:"correct"`
	Total        int       `json:"total"`
	ClassCorrect []int     `json:"class_correct,omitempty"`
	ClassTotal   []int     `json:"class_total,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClassAccuracy returns per-class accuracy. Classes without validation
// samples report zero.
func (r RoundRecord) ClassAccuracy() []float64 {
	out := make([]float64, len(r.ClassTotal))
	for i, total := range r.ClassTotal {
		if total == 0 || i >= len(r.ClassCorrect) {
			continue
		}
		out[i] = float64(r.ClassCorrect[i]) / float64(total)
	}

	return out
}

type SizeAccuracy struct {
	InUse    int     `json:"in_use"`
	Accuracy float64 `json:"validation_accuracy"`
}

type Report struct {
	Epochs   []EpochRecord  `json:"epochs"`
	Rounds   []RoundRecord  `json:"rounds"`
	Accuracy []SizeAccuracy `json:"accuracy"`
}

// LastEpochs returns the final epoch record of every round in round order.
func (r Report) LastEpochs() []EpochRecord {
	var out []EpochRecord
	for i, e := range r.Epochs {
		if i+1 < len(r.Epochs) && r.Epochs[i+1].Round == e.Round {
			continue
		}
		out = append(out, e)
	}

	return out
}

// Recorder is safe for concurrent readers while a single writer appends.
type Recorder struct {
	mu     sync.RWMutex
	epochs []EpochRecord
	rounds []RoundRecord
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordEpoch(rec EpochRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.epochs = append(r.epochs, rec)
}

func (r *Recorder) RecordRound(rec RoundRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.ClassCorrect = append([]int(nil), rec.ClassCorrect...)
	rec.ClassTotal = append([]int(nil), rec.ClassTotal...)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rounds = append(r.rounds, rec)
}

func (r *Recorder) Epochs() []EpochRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]EpochRecord(nil), r.epochs...)
}

func (r *Recorder) Rounds() []RoundRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]RoundRecord(nil), r.rounds...)
}

// Report returns a snapshot of both logs plus the size to accuracy mapping in
// round order. Duplicate sizes are kept.
func (r *Recorder) Report() Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep := Report{
		Epochs:   append([]EpochRecord(nil), r.epochs...),
		Rounds:   append([]RoundRecord(nil), r.rounds...),
		Accuracy: make([]SizeAccuracy, len(r.rounds)),
	}
	for i, rr := range r.rounds {
		rep.Accuracy[i] = SizeAccuracy{InUse: rr.InUse, Accuracy: rr.Accuracy}
	}

	return rep
}
