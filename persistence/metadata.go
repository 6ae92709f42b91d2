package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Magic marks the start of a versioned index stream. Streams written
	// before the header existed start directly with the body.
	Magic uint32 = 0x564F5947 // "VOYG"

	// FormatVersion is the current header version.
	FormatVersion uint32 = 1
)

// Metadata is the fixed header of a versioned index stream. It duplicates
// the construction parameters the body cannot express, so a headered
// stream loads without any caller-provided parameters.
type Metadata struct {
	SpaceType       uint8
	StorageDataType uint8
	Dims            uint32
	M               uint64
	EfConstruction  uint64
	MaxElements     uint64
	NumElements     uint64
}

// WriteMetadata writes the magic, version and header fields to w.
func WriteMetadata(w io.Writer, md *Metadata) error {
	for _, v := range []any{
		Magic,
		FormatVersion,
		md.SpaceType,
		md.StorageDataType,
		md.Dims,
		md.M,
		md.EfConstruction,
		md.MaxElements,
		md.NumElements,
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadMetadata parses the header from s. If the stream does not start
// with the magic it is a legacy body-only stream: ReadMetadata returns
// (nil, nil) and leaves the position untouched.
func ReadMetadata(s InputStream) (*Metadata, error) {
	first, err := s.Peek()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if first != Magic {
		return nil, nil
	}

	var magic, version uint32
	if err := binary.Read(s, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := binary.Read(s, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, version)
	}

	md := &Metadata{}
	for _, v := range []any{
		&md.SpaceType,
		&md.StorageDataType,
		&md.Dims,
		&md.M,
		&md.EfConstruction,
		&md.MaxElements,
		&md.NumElements,
	} {
		if err := binary.Read(s, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: truncated header: %v", ErrCorrupt, err)
		}
	}
	return md, nil
}
