package controller

import (
	"fmt"
	"math"
	"strings"

	"github.com/absmach/rounds/pkg/dataset"
	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/schedule"
)

// Strategy selects how the model carries across rounds.
type Strategy uint8

const (
	// CarryForward keeps training one model across all rounds.
	CarryForward Strategy = iota
	// ResetEachRound builds a fresh model at the start of every round.
	ResetEachRound
)

func (s Strategy) String() string {
	switch s {
	case CarryForward:
		return "carry_forward"
	case ResetEachRound:
		return "reset_each_round"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "carry_forward", "warm", "warm_start":
		return CarryForward, nil
	case "reset_each_round", "cold", "cold_start":
		return ResetEachRound, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", pkgerrors.ErrInvalidConfig, s)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v

	return nil
}

const (
	DefaultBatchSize   = 512
	DefaultEpochs      = 24
	DefaultRounds      = 1
	DefaultPInitial    = 1.0
	DefaultMomentum    = 0.9
	DefaultWeightDecay = 5e-4
	DefaultPeakLR      = 0.4
	defaultWarmup      = 5.0
)

type Config struct {
	RunName   string
	BatchSize int
	Epochs    int
	Rounds    int
	PInitial  float64
	PCorrupt  float64
	// MaxN is the pool size the last round should reach. Negative means the
	// whole pool.
	MaxN     int
	Strategy Strategy
	// Take truncates the training pool before anything else. Zero keeps it.
	Take      int
	ModelPath string

	// Schedule maps epoch progress to a learning rate before the 1/batch
	// scaling. Nil uses DefaultSchedule.
	Schedule    *schedule.PiecewiseLinear
	Momentum    float64
	WeightDecay float64
	Nesterov    bool
	Augment     []dataset.Transform

	// Classes bounds label corruption. Zero infers it from the pool.
	Classes int
	Seed    uint64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   DefaultBatchSize,
		Epochs:      DefaultEpochs,
		Rounds:      DefaultRounds,
		PInitial:    DefaultPInitial,
		MaxN:        -1,
		Strategy:    CarryForward,
		Momentum:    DefaultMomentum,
		WeightDecay: DefaultWeightDecay,
		Nesterov:    true,
	}
}

func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size %d must be positive", pkgerrors.ErrInvalidConfig, c.BatchSize)
	case c.Epochs < 1:
		return fmt.Errorf("%w: epochs %d must be positive", pkgerrors.ErrInvalidConfig, c.Epochs)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds %d must be positive", pkgerrors.ErrInvalidConfig, c.Rounds)
	case !fraction(c.PInitial):
		return fmt.Errorf("%w: initial fraction %v outside [0, 1]", pkgerrors.ErrInvalidConfig, c.PInitial)
	case !fraction(c.PCorrupt):
		return fmt.Errorf("%w: corruption fraction %v outside [0, 1]", pkgerrors.ErrInvalidConfig, c.PCorrupt)
	case c.Take < 0:
		return fmt.Errorf("%w: take %d must not be negative", pkgerrors.ErrInvalidConfig, c.Take)
	case c.Classes < 0:
		return fmt.Errorf("%w: classes %d must not be negative", pkgerrors.ErrInvalidConfig, c.Classes)
	case c.Momentum < 0 || math.IsNaN(c.Momentum) || math.IsInf(c.Momentum, 0):
		return fmt.Errorf("%w: momentum %v", pkgerrors.ErrInvalidConfig, c.Momentum)
	case c.WeightDecay < 0 || math.IsNaN(c.WeightDecay) || math.IsInf(c.WeightDecay, 0):
		return fmt.Errorf("%w: weight decay %v", pkgerrors.ErrInvalidConfig, c.WeightDecay)
	case c.Strategy != CarryForward && c.Strategy != ResetEachRound:
		return fmt.Errorf("%w: %s", pkgerrors.ErrInvalidConfig, c.Strategy)
	}

	return nil
}

// DefaultSchedule ramps linearly to DefaultPeakLR over the first five epochs
// and back to zero at the last one. Runs of five epochs or fewer peak at the
// midpoint.
func DefaultSchedule(epochs int) (*schedule.PiecewiseLinear, error) {
	warmup := defaultWarmup
	if float64(epochs) <= warmup {
		warmup = float64(epochs) / 2
	}

	return schedule.NewPiecewiseLinear(
		[]float64{0, warmup, float64(epochs)},
		[]float64{0, DefaultPeakLR, 0},
		schedule.Extrapolate,
	)
}

// RoundConfig is the sizing derived once per run from Config and the pool.
type RoundConfig struct {
	TotalN   int `json:"total_n"`
	StartN   int `json:"start_n"`
	IncrN    int `json:"incr_n"`
	MaxN     int `json:"max_n"`
	CorruptN int `json:"corrupt_n"`
	Rounds   int `json:"rounds"`
}

// Planned returns the in-use size each round would train on with an
// unlimited reserve. The final entry may exceed TotalN.
func (rc RoundConfig) Planned() []int {
	out := make([]int, rc.Rounds)
	for i := range out {
		out[i] = rc.StartN + i*rc.IncrN
	}

	return out
}

// Derive computes round sizing. Fractions round half to even. The increment
// is not clamped, so StartN + IncrN*(Rounds-1) may overshoot TotalN and the
// final growth is capped by the reserve instead. A single round never grows,
// so its max size is only clamped to the pool and never rejected.
func Derive(cfg Config, total int) (RoundConfig, error) {
	if err := cfg.Validate(); err != nil {
		return RoundConfig{}, err
	}
	if total < 0 {
		return RoundConfig{}, fmt.Errorf("%w: pool size %d", pkgerrors.ErrInvalidConfig, total)
	}

	maxN := cfg.MaxN
	if maxN < 0 {
		maxN = total
	}

	rc := RoundConfig{
		TotalN:   total,
		StartN:   roundHalfEven(cfg.PInitial * float64(total)),
		MaxN:     min(maxN, total),
		CorruptN: roundHalfEven(cfg.PCorrupt * float64(total)),
		Rounds:   cfg.Rounds,
	}
	if cfg.Rounds > 1 {
		if maxN > total {
			return RoundConfig{}, fmt.Errorf("%w: max size %d exceeds pool of %d", pkgerrors.ErrInvalidConfig, maxN, total)
		}
		if maxN < rc.StartN {
			return RoundConfig{}, fmt.Errorf("%w: max size %d below start size %d", pkgerrors.ErrInvalidConfig, maxN, rc.StartN)
		}
		rc.IncrN = roundHalfEven(float64(maxN-rc.StartN) / float64(cfg.Rounds-1))
	}

	return rc, nil
}

func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}

func fraction(v float64) bool {
	return v >= 0 && v <= 1
}
