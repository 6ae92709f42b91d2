package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, float32(0), SquaredL2([]float32{1, 2, 3}, []float32{1, 2, 3}))
	assert.Equal(t, float32(2), SquaredL2([]float32{1, 0, 0, 0}, []float32{0, 1, 0, 0}))
	assert.Equal(t, float32(25), SquaredL2([]float32{0, 3}, []float32{4, 0}))
}

func TestDot(t *testing.T) {
	assert.Equal(t, float32(32), Dot([]float32{1, 2, 3}, []float32{4, 5, 6}))
	assert.Equal(t, float32(-32), NegativeDot([]float32{1, 2, 3}, []float32{4, 5, 6}))
}

func TestCosine(t *testing.T) {
	// Identical direction: distance 0.
	assert.InDelta(t, 0, Cosine([]float32{1, 0}, []float32{5, 0}), 1e-6)
	// Orthogonal: distance 1.
	assert.InDelta(t, 1, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-6)
	// Opposite: distance 2.
	assert.InDelta(t, 2, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-6)
	// Zero vector: defined as 1.
	assert.Equal(t, float32(1), Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	ok := NormalizeL2InPlace(v)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	_, ok = NormalizeL2Copy([]float32{0, 0, 0})
	assert.False(t, ok)

	orig := []float32{1, 1}
	cp, ok := NormalizeL2Copy(orig)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 1}, orig)
	assert.InDelta(t, 1/math.Sqrt2, cp[0], 1e-6)
}

func TestProvider(t *testing.T) {
	for _, s := range []Space{SpaceEuclidean, SpaceInnerProduct, SpaceCosine} {
		fn, err := Provider(s)
		require.NoError(t, err)
		require.NotNil(t, fn)
		assert.True(t, s.Valid())
	}

	_, err := Provider(Space(99))
	require.Error(t, err)
	assert.False(t, Space(99).Valid())
}

func TestProviderCosineUnit(t *testing.T) {
	fn, err := Provider(SpaceCosine)
	require.NoError(t, err)

	a, _ := NormalizeL2Copy([]float32{1, 2, 3})
	b, _ := NormalizeL2Copy([]float32{3, 2, 1})
	assert.InDelta(t, Cosine([]float32{1, 2, 3}, []float32{3, 2, 1}), fn(a, b), 1e-6)
}
