package vectorstorage

import (
	"math"

	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

// Distance computes a similarity score between two fixed-dimension
// vectors, per spec.md §4.2. Scores are always "higher is better":
// cosine and dot similarity are naturally oriented that way, and
// Euclidean distance is negated so the same top-k merge logic works
// uniformly across all three metrics.
type Distance interface {
	// Score returns the similarity between a and b in this metric's
	// higher-is-better orientation.
	Score(a, b []float32) float32

	// PreprocessInsert transforms a vector before it is stored, e.g.
	// unit-normalizing for cosine. Identity for dot and euclid.
	PreprocessInsert(v []float32)
}

// NewDistance returns the Distance implementation for d.
func NewDistance(d options.Distance) Distance {
	switch d {
	case options.DistanceCosine:
		return cosineDistance{}
	case options.DistanceDot:
		return dotDistance{}
	case options.DistanceEuclid:
		return euclidDistance{}
	default:
		return cosineDistance{}
	}
}

type cosineDistance struct{}

// PreprocessInsert unit-normalizes v in place, so Score can then just be
// a dot product (spec.md §4.2: "cosine (unit-normalize on insert)").
func (cosineDistance) PreprocessInsert(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range v {
		v[i] /= norm
	}
}

func (cosineDistance) Score(a, b []float32) float32 {
	return dot(a, b)
}

type dotDistance struct{}

func (dotDistance) PreprocessInsert([]float32) {}

func (dotDistance) Score(a, b []float32) float32 {
	return dot(a, b)
}

// euclidDistance reports -squared_distance. The sign flip is the "sign
// convention documented alongside distance" spec.md §4.2 calls for: a
// smaller Euclidean distance is a better match, so negating it makes
// "higher score is better" hold uniformly. The squared form (rather than
// the square root) avoids a sqrt per comparison; since sqrt is monotonic
// for non-negative inputs, ranking is unaffected.
type euclidDistance struct{}

func (euclidDistance) PreprocessInsert([]float32) {}

func (euclidDistance) Score(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(-sum)
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
