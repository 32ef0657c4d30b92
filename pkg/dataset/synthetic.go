package dataset

import (
	"errors"
	"math/rand/v2"
)

var ErrInvalidSynthetic = errors.New("invalid synthetic dataset configuration")

// SyntheticConfig describes a Gaussian-cluster classification problem.
type SyntheticConfig struct {
	Classes      int     `toml:"classes"`
	Features     int     `toml:"features"`
	TrainSamples int     `toml:"train_samples"`
	ValidSamples int     `toml:"valid_samples"`
	Separation   float64 `toml:"separation"`
	Noise        float64 `toml:"noise"`
	Seed         uint64  `toml:"seed"`
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Classes:      10,
		Features:     32,
		TrainSamples: 10000,
		ValidSamples: 2000,
		Separation:   2.0,
		Noise:        1.0,
		Seed:         1,
	}
}

// Synthetic draws one center per class and samples both pools around them.
// Labels are balanced and the training pool is shuffled once, so any prefix
// of it mixes all classes.
func Synthetic(cfg SyntheticConfig) (train, valid []Sample, err error) {
	if cfg.Classes < 1 || cfg.Features < 1 || cfg.TrainSamples < 0 || cfg.ValidSamples < 0 || cfg.Noise < 0 {
		return nil, nil, ErrInvalidSynthetic
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	centers := make([][]float64, cfg.Classes)
	for c := range centers {
		centers[c] = make([]float64, cfg.Features)
		for f := range centers[c] {
			centers[c][f] = rng.NormFloat64() * cfg.Separation
		}
	}

	draw := func(n int) []Sample {
		out := make([]Sample, n)
		for i := range out {
			label := i % cfg.Classes
			input := make([]float64, cfg.Features)
			for f := range input {
				input[f] = centers[label][f] + rng.NormFloat64()*cfg.Noise
			}
			out[i] = Sample{Input: input, Label: label}
		}

		return out
	}

	train = draw(cfg.TrainSamples)
	rng.Shuffle(len(train), func(i, j int) {
		train[i], train[j] = train[j], train[i]
	})
	valid = draw(cfg.ValidSamples)

	return train, valid, nil
}
