package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	for _, dt := range []DataType{DataTypeFloat8, DataTypeFloat32, DataTypeE4M3} {
		c, err := NewCodec(dt)
		require.NoError(t, err)
		assert.Equal(t, dt, c.DataType())
	}

	_, err := NewCodec(DataType(3))
	require.Error(t, err)
	var unsupported *ErrUnsupportedDataType
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, DataType(3), unsupported.DataType)
}

func TestFloat32CodecRoundTrip(t *testing.T) {
	c, err := NewCodec(DataTypeFloat32)
	require.NoError(t, err)
	assert.Equal(t, 4, c.BytesPerDimension())

	v := []float32{0, 1.5, -3.25, 1e-20, 6.5e8}
	buf := make([]byte, len(v)*4)
	c.Encode(buf, v)

	got := make([]float32, len(v))
	c.Decode(got, buf)
	assert.Equal(t, v, got)
}

func TestFloat8Codec(t *testing.T) {
	c, err := NewCodec(DataTypeFloat8)
	require.NoError(t, err)
	assert.Equal(t, 1, c.BytesPerDimension())

	v := []float32{0, 1, -1, 0.5, -0.25}
	buf := make([]byte, len(v))
	c.Encode(buf, v)

	got := make([]float32, len(v))
	c.Decode(got, buf)
	for i := range v {
		assert.InDelta(t, v[i], got[i], 0.5/127, "component %d", i)
	}

	// Out-of-range components clamp to the edges of [-1, 1].
	c.Encode(buf[:2], []float32{4, -17})
	c.Decode(got[:2], buf[:2])
	assert.Equal(t, float32(1), got[0])
	assert.Equal(t, float32(-1), got[1])
}

func TestE4M3Codec(t *testing.T) {
	c, err := NewCodec(DataTypeE4M3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.BytesPerDimension())

	v := []float32{0, 1, -2, 0.375, 300}
	buf := make([]byte, len(v))
	c.Encode(buf, v)

	got := make([]float32, len(v))
	c.Decode(got, buf)
	for i := range v {
		if v[i] == 0 {
			assert.Equal(t, float32(0), got[i])
			continue
		}
		rel := (got[i] - v[i]) / v[i]
		if rel < 0 {
			rel = -rel
		}
		assert.LessOrEqual(t, rel, float32(1.0/16), "component %d", i)
	}
}

func TestStoreSetDecode(t *testing.T) {
	c, err := NewCodec(DataTypeFloat32)
	require.NoError(t, err)

	s := New(c, 3, 4)
	assert.Equal(t, 4, s.Capacity())
	assert.Equal(t, 3, s.Dims())
	assert.Equal(t, 12, s.Stride())

	s.Set(0, []float32{1, 2, 3})
	s.Set(2, []float32{-1, -2, -3})

	assert.Equal(t, []float32{1, 2, 3}, s.Decode(0))
	assert.Equal(t, []float32{-1, -2, -3}, s.Decode(2))

	dst := make([]float32, 3)
	s.DecodeInto(dst, 2)
	assert.Equal(t, []float32{-1, -2, -3}, dst)
}

func TestStoreResize(t *testing.T) {
	c, err := NewCodec(DataTypeFloat32)
	require.NoError(t, err)

	s := New(c, 2, 1)
	s.Set(0, []float32{7, 8})

	s.Resize(5)
	assert.Equal(t, 5, s.Capacity())
	assert.Equal(t, []float32{7, 8}, s.Decode(0))

	s.Set(4, []float32{9, 10})
	assert.Equal(t, []float32{9, 10}, s.Decode(4))
}

func TestStoreBlockRoundTrip(t *testing.T) {
	c, err := NewCodec(DataTypeFloat8)
	require.NoError(t, err)

	src := New(c, 4, 3)
	src.Set(0, []float32{0.1, 0.2, 0.3, 0.4})
	src.Set(1, []float32{-0.5, 0.5, -1, 1})

	dst := New(c, 4, 3)
	require.NoError(t, dst.LoadBlock(src.Block(2), 2))
	assert.Equal(t, src.Decode(0), dst.Decode(0))
	assert.Equal(t, src.Decode(1), dst.Decode(1))

	require.Error(t, dst.LoadBlock([]byte{1, 2, 3}, 2))
}
