package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm selects the compression scheme of a CompressedStore.
type Algorithm uint8

const (
	// Zstd trades a little CPU for the best ratio; the default.
	Zstd Algorithm = iota
	// LZ4 decompresses faster at a worse ratio.
	LZ4
)

func (a Algorithm) String() string {
	switch a {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// CompressedStore wraps a Store, compressing blobs on Put and
// transparently decompressing them on Open. Delete and List pass through.
type CompressedStore struct {
	inner Store
	algo  Algorithm

	// Shared zstd coders; both are safe for concurrent use via
	// EncodeAll/DecodeAll.
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressedStore wraps inner with the given algorithm.
func NewCompressedStore(inner Store, algo Algorithm) (*CompressedStore, error) {
	s := &CompressedStore{inner: inner, algo: algo}
	if algo == Zstd {
		var err error
		if s.enc, err = zstd.NewWriter(nil); err != nil {
			return nil, err
		}
		if s.dec, err = zstd.NewReader(nil); err != nil {
			return nil, err
		}
	} else if algo != LZ4 {
		return nil, fmt.Errorf("unknown compression algorithm %d", algo)
	}
	return s, nil
}

// Put compresses and stores a blob.
func (s *CompressedStore) Put(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var compressed []byte
	switch s.algo {
	case Zstd:
		compressed = s.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		compressed = buf.Bytes()
	}

	return s.inner.Put(ctx, name, bytes.NewReader(compressed))
}

// Open reads and decompresses a blob into memory.
func (s *CompressedStore) Open(ctx context.Context, name string) (Blob, error) {
	blob, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	compressed, err := readAll(blob)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch s.algo {
	case Zstd:
		if data, err = s.dec.DecodeAll(compressed, nil); err != nil {
			return nil, fmt.Errorf("decompress %q: %w", name, err)
		}
	case LZ4:
		if data, err = io.ReadAll(lz4.NewReader(bytes.NewReader(compressed))); err != nil {
			return nil, fmt.Errorf("decompress %q: %w", name, err)
		}
	}

	return &memoryBlob{data: data}, nil
}

// Delete removes a blob.
func (s *CompressedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List returns all blob names with the given prefix, sorted.
func (s *CompressedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// readAll extracts a blob's full contents, zero-copy when the blob
// supports it.
func readAll(blob Blob) ([]byte, error) {
	if m, ok := blob.(Mappable); ok {
		b, err := m.Bytes()
		if err == nil {
			// The blob is closed by the caller; copy out of the mapping.
			return append([]byte(nil), b...), nil
		}
	}
	data := make([]byte, blob.Size())
	if _, err := io.ReadFull(io.NewSectionReader(blob, 0, blob.Size()), data); err != nil {
		return nil, err
	}
	return data, nil
}
