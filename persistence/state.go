package persistence

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
)

// NoEntryPoint is the serialized entry point of an empty graph.
const NoEntryPoint = ^uint32(0)

// maxReasonableLevel bounds the per-node level read from a stream. Levels
// are log-distributed; anything near this is garbage, not a real graph.
const maxReasonableLevel = 1024

// IndexState is the body of an index stream: everything needed to rebuild
// the graph, the encoded vectors, the label mapping and the deleted set.
// The body deliberately omits dimensions, space and storage type; legacy
// streams without a header need those supplied by the caller.
type IndexState struct {
	MaxElements    uint64
	NumElements    uint64
	M              uint64
	EfConstruction uint64
	EntryPoint     uint32
	MaxLevel       int32

	Levels []int32      // len NumElements
	Links  [][][]uint32 // [node][layer] neighbor lists

	VectorData []byte   // NumElements * bytesPerElement raw encoded vectors
	Labels     []uint64 // len NumElements, by internal ID

	Deleted *roaring.Bitmap
}

// WriteIndexState writes the body to w.
func WriteIndexState(w io.Writer, st *IndexState) error {
	for _, v := range []any{
		st.MaxElements,
		st.NumElements,
		st.M,
		st.EfConstruction,
		st.EntryPoint,
		st.MaxLevel,
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	for i := uint64(0); i < st.NumElements; i++ {
		if err := binary.Write(w, binary.LittleEndian, uint32(st.Levels[i])); err != nil {
			return err
		}
		for layer := 0; layer <= int(st.Levels[i]); layer++ {
			nbrs := st.Links[i][layer]
			if err := binary.Write(w, binary.LittleEndian, uint32(len(nbrs))); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, nbrs); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write(st.VectorData); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, st.Labels); err != nil {
		return err
	}

	deleted, err := st.Deleted.ToBytes()
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(deleted))); err != nil {
		return err
	}
	_, err = w.Write(deleted)
	return err
}

// ReadIndexState reads a body from s. bytesPerElement is the encoded size
// of one vector and must come from the header or from caller parameters.
func ReadIndexState(s InputStream, bytesPerElement int) (*IndexState, error) {
	st := &IndexState{}
	for _, v := range []any{
		&st.MaxElements,
		&st.NumElements,
		&st.M,
		&st.EfConstruction,
		&st.EntryPoint,
		&st.MaxLevel,
	} {
		if err := binary.Read(s, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: truncated body: %v", ErrCorrupt, err)
		}
	}

	if st.NumElements > st.MaxElements {
		return nil, fmt.Errorf("%w: element count %d exceeds capacity %d", ErrCorrupt, st.NumElements, st.MaxElements)
	}
	if st.MaxLevel < -1 || st.MaxLevel > maxReasonableLevel {
		return nil, fmt.Errorf("%w: implausible max level %d", ErrCorrupt, st.MaxLevel)
	}
	if st.EntryPoint != NoEntryPoint && uint64(st.EntryPoint) >= st.NumElements {
		return nil, fmt.Errorf("%w: entry point %d out of range", ErrCorrupt, st.EntryPoint)
	}

	// Remaining budget guards the allocations below against truncated or
	// garbage length fields.
	remaining := func() uint64 { return uint64(s.Length() - s.Position()) }

	// Every element carries at least a 4-byte level word.
	if st.NumElements > remaining()/4 {
		return nil, fmt.Errorf("%w: element count %d exceeds stream size", ErrCorrupt, st.NumElements)
	}

	st.Levels = make([]int32, st.NumElements)
	st.Links = make([][][]uint32, st.NumElements)
	for i := uint64(0); i < st.NumElements; i++ {
		var level uint32
		if err := binary.Read(s, binary.LittleEndian, &level); err != nil {
			return nil, fmt.Errorf("%w: truncated node levels: %v", ErrCorrupt, err)
		}
		if level > maxReasonableLevel {
			return nil, fmt.Errorf("%w: implausible node level %d", ErrCorrupt, level)
		}
		st.Levels[i] = int32(level)

		layers := make([][]uint32, level+1)
		for layer := range layers {
			var count uint32
			if err := binary.Read(s, binary.LittleEndian, &count); err != nil {
				return nil, fmt.Errorf("%w: truncated neighbor list: %v", ErrCorrupt, err)
			}
			if uint64(count)*4 > remaining() {
				return nil, fmt.Errorf("%w: neighbor count %d exceeds stream size", ErrCorrupt, count)
			}
			nbrs := make([]uint32, count)
			if err := binary.Read(s, binary.LittleEndian, nbrs); err != nil {
				return nil, fmt.Errorf("%w: truncated neighbor list: %v", ErrCorrupt, err)
			}
			for _, n := range nbrs {
				if uint64(n) >= st.MaxElements {
					return nil, fmt.Errorf("%w: neighbor %d out of range", ErrCorrupt, n)
				}
			}
			layers[layer] = nbrs
		}
		st.Links[i] = layers
	}

	vecBytes := st.NumElements * uint64(bytesPerElement)
	if vecBytes > remaining() {
		return nil, fmt.Errorf("%w: vector block exceeds stream size", ErrCorrupt)
	}
	st.VectorData = make([]byte, vecBytes)
	if _, err := io.ReadFull(s, st.VectorData); err != nil {
		return nil, fmt.Errorf("%w: truncated vector block: %v", ErrCorrupt, err)
	}

	if st.NumElements*8 > remaining() {
		return nil, fmt.Errorf("%w: label block exceeds stream size", ErrCorrupt)
	}
	st.Labels = make([]uint64, st.NumElements)
	if err := binary.Read(s, binary.LittleEndian, st.Labels); err != nil {
		return nil, fmt.Errorf("%w: truncated label block: %v", ErrCorrupt, err)
	}

	var deletedLen uint32
	if err := binary.Read(s, binary.LittleEndian, &deletedLen); err != nil {
		return nil, fmt.Errorf("%w: truncated deleted set: %v", ErrCorrupt, err)
	}
	if uint64(deletedLen) > remaining() {
		return nil, fmt.Errorf("%w: deleted set exceeds stream size", ErrCorrupt)
	}
	buf := make([]byte, deletedLen)
	if _, err := io.ReadFull(s, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated deleted set: %v", ErrCorrupt, err)
	}
	st.Deleted = roaring.New()
	if err := st.Deleted.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("%w: bad deleted set: %v", ErrCorrupt, err)
	}

	return st, nil
}
