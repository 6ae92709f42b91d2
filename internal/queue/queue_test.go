package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapOrder(t *testing.T) {
	h := NewMin(8)
	for _, d := range []float32{5, 1, 3, 2, 4} {
		h.Push(Candidate{ID: uint32(d), Dist: d})
	}

	var got []float32
	for h.Len() > 0 {
		c, ok := h.Pop()
		require.True(t, ok)
		got = append(got, c.Dist)
	}
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, got)

	_, ok := h.Pop()
	assert.False(t, ok)
}

func TestMaxHeapOrder(t *testing.T) {
	h := NewMax(8)
	for _, d := range []float32{5, 1, 3, 2, 4} {
		h.Push(Candidate{ID: uint32(d), Dist: d})
	}

	var got []float32
	for h.Len() > 0 {
		c, _ := h.Pop()
		got = append(got, c.Dist)
	}
	assert.Equal(t, []float32{5, 4, 3, 2, 1}, got)
}

func TestPushBoundedKeepsClosest(t *testing.T) {
	// A bounded max-heap of size k retains the k smallest distances.
	const k = 4
	rng := rand.New(rand.NewSource(42))

	h := NewMax(k)
	var all []float32
	for i := 0; i < 100; i++ {
		d := rng.Float32()
		all = append(all, d)
		h.PushBounded(Candidate{ID: uint32(i), Dist: d}, k)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	require.Equal(t, k, h.Len())
	var kept []float32
	for h.Len() > 0 {
		c, _ := h.Pop()
		kept = append(kept, c.Dist)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	assert.Equal(t, all[:k], kept)
}

func TestTopAndReset(t *testing.T) {
	h := NewMin(4)
	_, ok := h.Top()
	assert.False(t, ok)

	h.Push(Candidate{ID: 1, Dist: 2})
	h.Push(Candidate{ID: 2, Dist: 1})
	top, ok := h.Top()
	require.True(t, ok)
	assert.Equal(t, uint32(2), top.ID)
	assert.Equal(t, 2, h.Len())

	h.Reset()
	assert.Equal(t, 0, h.Len())
}
