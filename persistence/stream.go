// Package persistence implements the versioned on-disk format of an
// index: a fixed metadata header followed by the graph, vector and label
// state, with support for reading legacy streams that carry no header.
package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrCorrupt indicates a stream that cannot be decoded as an index.
var ErrCorrupt = errors.New("persistence: corrupt stream")

// InputStream is a readable, seekable source of index bytes. Peek allows
// format detection without consuming the stream.
type InputStream interface {
	io.Reader

	// Position returns the current read offset.
	Position() int64

	// SetPosition seeks to an absolute offset.
	SetPosition(pos int64) error

	// Length returns the total stream size in bytes.
	Length() int64

	// Peek returns the next four bytes as a little-endian uint32 without
	// advancing the stream.
	Peek() (uint32, error)

	// IsExhausted reports whether the stream has no bytes left.
	IsExhausted() bool
}

// MemoryInputStream reads an index from an in-memory byte slice.
type MemoryInputStream struct {
	data []byte
	pos  int64
}

// NewMemoryInputStream wraps data without copying it.
func NewMemoryInputStream(data []byte) *MemoryInputStream {
	return &MemoryInputStream{data: data}
}

func (s *MemoryInputStream) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *MemoryInputStream) Position() int64 { return s.pos }

func (s *MemoryInputStream) SetPosition(pos int64) error {
	if pos < 0 || pos > int64(len(s.data)) {
		return fmt.Errorf("position %d out of range [0, %d]", pos, len(s.data))
	}
	s.pos = pos
	return nil
}

func (s *MemoryInputStream) Length() int64 { return int64(len(s.data)) }

func (s *MemoryInputStream) Peek() (uint32, error) {
	if int64(len(s.data))-s.pos < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint32(s.data[s.pos:]), nil
}

func (s *MemoryInputStream) IsExhausted() bool {
	return s.pos >= int64(len(s.data))
}

// FileInputStream reads an index from a file.
type FileInputStream struct {
	f    *os.File
	size int64
	pos  int64
}

// OpenFileInputStream opens path for reading.
func OpenFileInputStream(path string) (*FileInputStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileInputStream{f: f, size: info.Size()}, nil
}

func (s *FileInputStream) Read(p []byte) (int, error) {
	n, err := s.f.ReadAt(p, s.pos)
	s.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (s *FileInputStream) Position() int64 { return s.pos }

func (s *FileInputStream) SetPosition(pos int64) error {
	if pos < 0 || pos > s.size {
		return fmt.Errorf("position %d out of range [0, %d]", pos, s.size)
	}
	s.pos = pos
	return nil
}

func (s *FileInputStream) Length() int64 { return s.size }

func (s *FileInputStream) Peek() (uint32, error) {
	var buf [4]byte
	if _, err := s.f.ReadAt(buf[:], s.pos); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (s *FileInputStream) IsExhausted() bool { return s.pos >= s.size }

// Close closes the underlying file.
func (s *FileInputStream) Close() error { return s.f.Close() }
