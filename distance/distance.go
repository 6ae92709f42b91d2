// Package distance implements the distance spaces supported by the index:
// squared Euclidean, cosine distance and (negated) inner product.
//
// All three spaces return smaller values for more similar vectors, so the
// graph traversal can treat them uniformly.
package distance

import (
	"fmt"
	"math"
	"slices"
)

// Space identifies the distance space of an index.
//
// The numeric values are part of the serialized file format and must not be
// reordered.
type Space uint8

const (
	SpaceEuclidean    Space = 0
	SpaceInnerProduct Space = 1
	SpaceCosine       Space = 2
)

func (s Space) String() string {
	switch s {
	case SpaceEuclidean:
		return "Euclidean"
	case SpaceInnerProduct:
		return "InnerProduct"
	case SpaceCosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Valid reports whether s is a known space.
func (s Space) Valid() bool {
	return s == SpaceEuclidean || s == SpaceInnerProduct || s == SpaceCosine
}

// Func computes a scalar distance between two vectors of equal length.
// Length agreement is the caller's responsibility.
type Func func(a, b []float32) float32

// Dot returns the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// NegativeDot returns the negated dot product, turning inner-product
// similarity (higher is better) into a distance (lower is better).
func NegativeDot(a, b []float32) float32 {
	return -Dot(a, b)
}

// CosineUnit returns the cosine distance 1 - <a, b> for unit-length inputs.
// Inputs must already be L2-normalized.
func CosineUnit(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// Cosine returns the cosine distance 1 - <a/|a|, b/|b|> for arbitrary inputs.
// A zero vector has undefined direction; its distance to anything is 1.
func Cosine(a, b []float32) float32 {
	na := Dot(a, a)
	nb := Dot(b, b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - Dot(a, b)/float32(math.Sqrt(float64(na)*float64(nb)))
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / float32(math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Provider returns the distance function used for graph traversal in the
// given space. For SpaceCosine the returned function assumes both inputs are
// unit length; the index normalizes vectors on insert and query.
func Provider(s Space) (Func, error) {
	switch s {
	case SpaceEuclidean:
		return SquaredL2, nil
	case SpaceInnerProduct:
		return NegativeDot, nil
	case SpaceCosine:
		return CosineUnit, nil
	default:
		return nil, fmt.Errorf("unsupported space: %v", s)
	}
}
