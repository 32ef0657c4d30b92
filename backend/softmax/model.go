// Package softmax is a multinomial logistic-regression training backend.
package softmax

import (
	"math"
	"math/rand/v2"
)

// Model is a linear classifier with one weight row and bias per class.
type Model struct {
	Classes  int         `json:"classes"  cbor:"1,keyasint"`
	Features int         `json:"features" cbor:"2,keyasint"`
	W        [][]float64 `json:"w"        cbor:"3,keyasint"`
	B        []float64   `json:"b"        cbor:"4,keyasint"`
}

func newModel(classes, features int, rng *rand.Rand) *Model {
	scale := 1 / math.Sqrt(float64(features))
	w := make([][]float64, classes)
	for c := range w {
		w[c] = make([]float64, features)
		for f := range w[c] {
			w[c][f] = (rng.Float64()*2 - 1) * scale
		}
	}

	return &Model{
		Classes:  classes,
		Features: features,
		W:        w,
		B:        make([]float64, classes),
	}
}

// Snapshot returns a deep copy suitable for encoding.
func (m *Model) Snapshot() (any, error) {
	out := &Model{
		Classes:  m.Classes,
		Features: m.Features,
		W:        make([][]float64, len(m.W)),
		B:        append([]float64(nil), m.B...),
	}
	for i, row := range m.W {
		out.W[i] = append([]float64(nil), row...)
	}

	return out, nil
}

// Predict returns the most probable class of input.
func (m *Model) Predict(input []float64) int {
	return argmax(m.logits(input, make([]float64, m.Classes)))
}

func (m *Model) logits(input, out []float64) []float64 {
	for c := range m.Classes {
		z := m.B[c]
		for f, x := range input {
			z += m.W[c][f] * x
		}
		out[c] = z
	}

	return out
}

// softmax converts logits to probabilities in place.
func softmax(z []float64) {
	hi := math.Inf(-1)
	for _, v := range z {
		hi = max(hi, v)
	}
	sum := 0.0
	for i, v := range z {
		z[i] = math.Exp(v - hi)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}

	return best
}
