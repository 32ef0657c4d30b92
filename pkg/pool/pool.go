// Package pool splits a fixed sample pool into an in-use prefix and an
// available reserve. The split point only ever moves forward.
package pool

import (
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
)

var ErrNegativeGrowth = errors.New("growth increment must not be negative")

// Growth describes the outcome of a single Grow call.
type Growth struct {
	Requested int `json:"requested"`
	Moved     int `json:"moved"`
	InUse     int `json:"in_use"`
	Available int `json:"available"`
}

// Exhausted reports whether the reserve could not satisfy the request.
func (g Growth) Exhausted() bool {
	return g.Moved < g.Requested
}

// Partition is a cursor over an immutable pool. Samples before the cursor are
// in use, samples from the cursor on are available.
type Partition[T any] struct {
	samples []T
	cursor  int
}

// New copies samples and places the cursor at start.
func New[T any](samples []T, start int) (*Partition[T], error) {
	if start < 0 || start > len(samples) {
		return nil, fmt.Errorf("%w: start size %d outside [0, %d]", pkgerrors.ErrInvalidConfig, start, len(samples))
	}

	return &Partition[T]{
		samples: append([]T(nil), samples...),
		cursor:  start,
	}, nil
}

// Grow moves up to n samples from the head of the reserve to the end of the
// in-use prefix, preserving pool order. A request larger than the reserve
// takes whatever is left.
func (p *Partition[T]) Grow(n int) (Growth, error) {
	if n < 0 {
		return Growth{}, fmt.Errorf("%w: %d", ErrNegativeGrowth, n)
	}

	moved := min(n, len(p.samples)-p.cursor)
	p.cursor += moved

	return Growth{
		Requested: n,
		Moved:     moved,
		InUse:     p.cursor,
		Available: len(p.samples) - p.cursor,
	}, nil
}

// InUse returns the in-use prefix. The slice has no spare capacity so appends
// never reach into the reserve; elements must be treated as read-only.
func (p *Partition[T]) InUse() []T {
	return p.samples[:p.cursor:p.cursor]
}

// Available returns the reserve; elements must be treated as read-only.
func (p *Partition[T]) Available() []T {
	return p.samples[p.cursor:]
}

func (p *Partition[T]) InUseLen() int {
	return p.cursor
}

func (p *Partition[T]) AvailableLen() int {
	return len(p.samples) - p.cursor
}

// Len returns the total pool size.
func (p *Partition[T]) Len() int {
	return len(p.samples)
}
