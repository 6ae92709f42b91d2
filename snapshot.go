package voyager

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/canbakiskan/voyager-node/blobstore"
)

// SaveSnapshot serializes the index and uploads it to store under name.
// The configured resource controller bounds concurrent snapshots and
// throttles upload bandwidth.
func (idx *Index) SaveSnapshot(ctx context.Context, store blobstore.Store, name string) error {
	if err := idx.ctrl.AcquireSnapshot(ctx); err != nil {
		return err
	}
	defer idx.ctrl.ReleaseSnapshot()

	data, err := idx.Bytes()
	if err != nil {
		return err
	}
	if err := idx.ctrl.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := store.Put(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload snapshot %q: %w", name, err)
	}

	idx.logger.Info("snapshot saved", "name", name, "bytes", len(data))
	return nil
}

// LoadSnapshot downloads a snapshot from store and loads it.
func LoadSnapshot(ctx context.Context, store blobstore.Store, name string, optFns ...LoadOption) (*Index, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %q: %w", name, err)
	}
	defer blob.Close()

	data, err := readBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", name, err)
	}
	return FromBytes(data, optFns...)
}

func readBlob(blob blobstore.Blob) ([]byte, error) {
	if m, ok := blob.(blobstore.Mappable); ok {
		b, err := m.Bytes()
		if err == nil {
			// The mapping dies with the blob; Load keeps references, so copy.
			out := make([]byte, len(b))
			copy(out, b)
			return out, nil
		}
	}
	data := make([]byte, blob.Size())
	if _, err := io.ReadFull(io.NewSectionReader(blob, 0, blob.Size()), data); err != nil {
		return nil, err
	}
	return data, nil
}
