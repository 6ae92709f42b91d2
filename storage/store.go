package storage

import "fmt"

// Store is a flat, fixed-capacity block of encoded vectors indexed by
// internal ID. It performs no locking of its own; callers serialize
// writes and resizes against concurrent reads.
type Store struct {
	codec    Codec
	dims     int
	stride   int
	capacity int
	data     []byte
}

// New creates a store for capacity vectors of dims components each.
func New(codec Codec, dims, capacity int) *Store {
	stride := dims * codec.BytesPerDimension()
	return &Store{
		codec:    codec,
		dims:     dims,
		stride:   stride,
		capacity: capacity,
		data:     make([]byte, capacity*stride),
	}
}

// Codec returns the codec vectors are stored with.
func (s *Store) Codec() Codec { return s.codec }

// Dims returns the number of components per vector.
func (s *Store) Dims() int { return s.dims }

// Capacity returns the number of vector slots.
func (s *Store) Capacity() int { return s.capacity }

// Stride returns the encoded size of one vector in bytes.
func (s *Store) Stride() int { return s.stride }

// Set encodes v into the slot for id. len(v) must equal Dims.
func (s *Store) Set(id uint32, v []float32) {
	off := int(id) * s.stride
	s.codec.Encode(s.data[off:off+s.stride], v)
}

// DecodeInto reconstructs the vector for id into dst.
// len(dst) must equal Dims.
func (s *Store) DecodeInto(dst []float32, id uint32) {
	off := int(id) * s.stride
	s.codec.Decode(dst, s.data[off:off+s.stride])
}

// Decode returns a freshly allocated reconstruction of the vector for id.
func (s *Store) Decode(id uint32) []float32 {
	dst := make([]float32, s.dims)
	s.DecodeInto(dst, id)
	return dst
}

// Raw returns the encoded bytes of the vector for id. The slice aliases
// the store's backing array and is invalidated by Resize.
func (s *Store) Raw(id uint32) []byte {
	off := int(id) * s.stride
	return s.data[off : off+s.stride]
}

// Block returns the raw bytes of the first n vector slots, for
// serialization. The slice aliases the store's backing array.
func (s *Store) Block(n int) []byte {
	return s.data[:n*s.stride]
}

// LoadBlock overwrites the first n vector slots with previously
// serialized raw bytes.
func (s *Store) LoadBlock(b []byte, n int) error {
	want := n * s.stride
	if len(b) != want {
		return fmt.Errorf("vector block size mismatch: got %d bytes, want %d", len(b), want)
	}
	copy(s.data, b)
	return nil
}

// Resize grows or shrinks the store to newCap slots, preserving the
// vectors that still fit.
func (s *Store) Resize(newCap int) {
	data := make([]byte, newCap*s.stride)
	copy(data, s.data)
	s.data = data
	s.capacity = newCap
}
