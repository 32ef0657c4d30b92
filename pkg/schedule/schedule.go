// Package schedule evaluates piecewise-linear curves over normalized training
// progress. The learning rate of a round is derived from such a curve.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Mode selects how queries outside the knot range are answered.
type Mode uint8

const (
	// Extrapolate extends the first and last segments with their slope.
	Extrapolate Mode = iota
	// Clamp returns the value of the nearest endpoint knot.
	Clamp
)

var (
	ErrTooFewKnots   = errors.New("schedule needs at least two knots")
	ErrKnotMismatch  = errors.New("knot x and y lengths differ")
	ErrUnsortedKnots = errors.New("knot x values must be strictly ascending")
	ErrNonFinite     = errors.New("knot values must be finite")
	ErrUnknownMode   = errors.New("unknown schedule mode")
)

func (m Mode) String() string {
	switch m {
	case Extrapolate:
		return "extrapolate"
	case Clamp:
		return "clamp"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses the textual form of a Mode. An empty string yields Extrapolate.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "extrapolate":
		return Extrapolate, nil
	case "clamp":
		return Clamp, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// PiecewiseLinear is an immutable curve through a set of knots.
type PiecewiseLinear struct {
	xs   []float64
	ys   []float64
	mode Mode
}

func NewPiecewiseLinear(xs, ys []float64, mode Mode) (*PiecewiseLinear, error) {
	if len(xs) != len(ys) {
		return nil, ErrKnotMismatch
	}
	if len(xs) < 2 {
		return nil, ErrTooFewKnots
	}
	if mode != Extrapolate && mode != Clamp {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
	}
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			return nil, ErrNonFinite
		}
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, ErrUnsortedKnots
		}
	}

	return &PiecewiseLinear{
		xs:   append([]float64(nil), xs...),
		ys:   append([]float64(nil), ys...),
		mode: mode,
	}, nil
}

// At returns the curve value at t.
func (p *PiecewiseLinear) At(t float64) float64 {
	last := len(p.xs) - 1
	switch {
	case t <= p.xs[0]:
		if p.mode == Clamp || t == p.xs[0] {
			return p.ys[0]
		}

		return p.interpolate(0, t)
	case t >= p.xs[last]:
		if p.mode == Clamp || t == p.xs[last] {
			return p.ys[last]
		}

		return p.interpolate(last-1, t)
	}

	i := sort.SearchFloat64s(p.xs, t)
	if p.xs[i] == t {
		return p.ys[i]
	}

	return p.interpolate(i-1, t)
}

func (p *PiecewiseLinear) interpolate(i int, t float64) float64 {
	x0, x1 := p.xs[i], p.xs[i+1]
	y0, y1 := p.ys[i], p.ys[i+1]

	return y0 + (y1-y0)*(t-x0)/(x1-x0)
}

// Knots returns copies of the knot coordinates.
func (p *PiecewiseLinear) Knots() (xs, ys []float64) {
	return append([]float64(nil), p.xs...), append([]float64(nil), p.ys...)
}

func (p *PiecewiseLinear) Mode() Mode {
	return p.mode
}

// LR maps an optimizer step to a learning rate.
type LR func(step int) float64

// LearningRate scales the curve to per-step learning rates: the curve is
// evaluated at step/stepsPerEpoch and divided by the batch size, matching a
// loss summed over the batch.
func LearningRate(p *PiecewiseLinear, stepsPerEpoch, batchSize int) LR {
	steps := float64(max(stepsPerEpoch, 1))
	batch := float64(max(batchSize, 1))

	return func(step int) float64 {
		return p.At(float64(step)/steps) / batch
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
