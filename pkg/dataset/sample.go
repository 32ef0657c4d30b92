// Package dataset holds labeled samples, synthetic pool generation and the
// batch iteration used to feed training epochs.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrTooFewClasses = errors.New("label corruption needs at least two classes")
	ErrCorruptRange  = errors.New("corruption count outside pool")
)

// Sample is a single labeled input vector.
type Sample struct {
	Input []float64 `json:"input"`
	Label int       `json:"label"`
}

// Batch is a group of aligned inputs and labels.
type Batch struct {
	Inputs [][]float64
	Labels []int
}

func (b Batch) Len() int {
	return len(b.Labels)
}

// Take returns the first n samples, or all of them when n <= 0 or n exceeds
// the pool.
func Take(samples []Sample, n int) []Sample {
	if n <= 0 || n >= len(samples) {
		return samples
	}

	return samples[:n]
}

// Classes returns one more than the largest label seen.
func Classes(samples []Sample) int {
	classes := 0
	for _, s := range samples {
		if s.Label+1 > classes {
			classes = s.Label + 1
		}
	}

	return classes
}

// CorruptLabels returns a copy of samples whose first n labels are replaced by
// a uniformly drawn different class.
func CorruptLabels(samples []Sample, n, classes int, rng *rand.Rand) ([]Sample, error) {
	if n < 0 || n > len(samples) {
		return nil, fmt.Errorf("%w: %d of %d", ErrCorruptRange, n, len(samples))
	}
	out := append([]Sample(nil), samples...)
	if n == 0 {
		return out, nil
	}
	if classes < 2 {
		return nil, ErrTooFewClasses
	}

	for i := range n {
		shift := 1 + rng.IntN(classes-1)
		out[i].Label = (out[i].Label + shift) % classes
	}

	return out, nil
}
