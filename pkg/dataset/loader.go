package dataset

import (
	"context"
	"math/rand/v2"
)

// Transform returns an augmented copy of an input vector.
type Transform func(rng *rand.Rand, input []float64) []float64

// Jitter adds zero-mean gaussian noise with the given standard deviation.
func Jitter(sigma float64) Transform {
	return func(rng *rand.Rand, input []float64) []float64 {
		out := make([]float64, len(input))
		for i, v := range input {
			out[i] = v + rng.NormFloat64()*sigma
		}

		return out
	}
}

// Scale multiplies the whole vector by a gain drawn uniformly from [lo, hi).
func Scale(lo, hi float64) Transform {
	return func(rng *rand.Rand, input []float64) []float64 {
		gain := lo + rng.Float64()*(hi-lo)
		out := make([]float64, len(input))
		for i, v := range input {
			out[i] = v * gain
		}

		return out
	}
}

// Batches is a finite, restartable sequence of mini-batches. Every call to
// Each is a fresh pass.
type Batches interface {
	Len() int
	Each(ctx context.Context, fn func(Batch) error) error
}

type LoaderOptions struct {
	BatchSize int
	Shuffle   bool
	DropLast  bool
	Augment   []Transform
}

var _ Batches = (*Loader)(nil)

// Loader iterates a fixed sample subset in mini-batches. Shuffling and
// augmentation are redrawn on every pass.
type Loader struct {
	samples []Sample
	opts    LoaderOptions
	rng     *rand.Rand
}

func NewLoader(samples []Sample, opts LoaderOptions, rng *rand.Rand) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = max(len(samples), 1)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}

	return &Loader{
		samples: samples,
		opts:    opts,
		rng:     rng,
	}
}

// Len returns the number of batches a pass yields.
func (l *Loader) Len() int {
	n := len(l.samples) / l.opts.BatchSize
	if !l.opts.DropLast && len(l.samples)%l.opts.BatchSize != 0 {
		n++
	}

	return n
}

func (l *Loader) Each(ctx context.Context, fn func(Batch) error) error {
	order := make([]int, len(l.samples))
	for i := range order {
		order[i] = i
	}
	if l.opts.Shuffle {
		l.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	bs := l.opts.BatchSize
	for start := 0; start < len(order); start += bs {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+bs, len(order))
		if l.opts.DropLast && end-start < bs {
			break
		}

		batch := Batch{
			Inputs: make([][]float64, 0, end-start),
			Labels: make([]int, 0, end-start),
		}
		for _, idx := range order[start:end] {
			s := l.samples[idx]
			input := s.Input
			for _, t := range l.opts.Augment {
				input = t(l.rng, input)
			}
			batch.Inputs = append(batch.Inputs, input)
			batch.Labels = append(batch.Labels, s.Label)
		}

		if err := fn(batch); err != nil {
			return err
		}
	}

	return nil
}

// Provider builds loaders that share one random source.
type Provider struct {
	rng *rand.Rand
}

func NewProvider(seed uint64) *Provider {
	return &Provider{rng: rand.New(rand.NewPCG(seed, seed+1))}
}

func (p *Provider) Batches(samples []Sample, opts LoaderOptions) Batches {
	return NewLoader(samples, opts, p.rng)
}
