package voyager

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/canbakiskan/voyager-node/distance"
	"github.com/canbakiskan/voyager-node/internal/hnsw"
	"github.com/canbakiskan/voyager-node/persistence"
	"github.com/canbakiskan/voyager-node/storage"
)

// LoadOption configures a load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	space      distance.Space
	hasSpace   bool
	dims       int
	hasDims    bool
	storage    storage.DataType
	hasStorage bool

	engine []Option
}

// WithSpace supplies the distance space for a legacy stream, or
// cross-checks it against a headered one.
func WithSpace(space distance.Space) LoadOption {
	return func(o *loadOptions) {
		o.space = space
		o.hasSpace = true
	}
}

// WithNumDimensions supplies the dimensionality for a legacy stream, or
// cross-checks it against a headered one.
func WithNumDimensions(dims int) LoadOption {
	return func(o *loadOptions) {
		o.dims = dims
		o.hasDims = true
	}
}

// WithStorageDataTypeHint supplies the storage encoding for a legacy
// stream, or cross-checks it against a headered one.
func WithStorageDataTypeHint(t storage.DataType) LoadOption {
	return func(o *loadOptions) {
		o.storage = t
		o.hasStorage = true
	}
}

// WithEngineOptions forwards index options (logger, controller, default
// ef) to the loaded index.
func WithEngineOptions(opts ...Option) LoadOption {
	return func(o *loadOptions) {
		o.engine = append(o.engine, opts...)
	}
}

// WriteTo serializes the index: a self-describing metadata header
// followed by the graph, vector, label and deleted-set state. The index
// is quiesced for the duration.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()

	cw := &countingWriter{w: w}

	md := &persistence.Metadata{
		SpaceType:       uint8(idx.space),
		StorageDataType: uint8(idx.codec.DataType()),
		Dims:            uint32(idx.dims),
		M:               uint64(idx.m),
		EfConstruction:  uint64(idx.efConstruction),
		MaxElements:     uint64(idx.maxElements),
		NumElements:     uint64(idx.nextID),
	}
	if err := persistence.WriteMetadata(cw, md); err != nil {
		return cw.n, err
	}
	if err := persistence.WriteIndexState(cw, idx.exportState()); err != nil {
		return cw.n, err
	}

	idx.logger.Info("index saved", "numElements", idx.nextID, "bytes", cw.n)
	return cw.n, nil
}

// exportState snapshots the index body. Caller holds resizeMu exclusively.
func (idx *Index) exportState() *persistence.IndexState {
	n := int(idx.nextID)

	st := &persistence.IndexState{
		MaxElements:    uint64(idx.maxElements),
		NumElements:    uint64(n),
		M:              uint64(idx.m),
		EfConstruction: uint64(idx.efConstruction),
		EntryPoint:     idx.graph.EntryPoint(),
		MaxLevel:       int32(idx.graph.MaxLevel()),
		Levels:         make([]int32, n),
		Links:          make([][][]uint32, n),
		VectorData:     idx.vectors.Block(n),
		Labels:         idx.idToLabel[:n],
		Deleted:        idx.graph.DeletedSnapshot(),
	}
	for i := 0; i < n; i++ {
		id := uint32(i)
		st.Levels[i] = int32(idx.graph.Level(id))
		st.Links[i] = idx.graph.NodeLinks(id)
	}
	return st
}

// Bytes serializes the index to memory.
func (idx *Index) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := idx.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile writes the index to path atomically: the bytes land in a temp
// file that replaces path only after a successful sync.
func (idx *Index) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".voyager-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := idx.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads an index from a stream. Headered streams are
// self-describing; caller-supplied parameters are cross-checked against
// them (ErrParameterMismatch on conflict). Legacy streams carry no header
// and require WithSpace, WithNumDimensions and WithStorageDataTypeHint
// (ErrMissingParameters otherwise).
func Load(s persistence.InputStream, optFns ...LoadOption) (*Index, error) {
	lo := loadOptions{}
	for _, fn := range optFns {
		fn(&lo)
	}

	md, err := persistence.ReadMetadata(s)
	if err != nil {
		return nil, translateError(err)
	}

	var (
		space       distance.Space
		dims        int
		storageType storage.DataType
	)
	if md != nil {
		space = distance.Space(md.SpaceType)
		dims = int(md.Dims)
		storageType = storage.DataType(md.StorageDataType)

		if !space.Valid() {
			return nil, fmt.Errorf("%w: unknown space %d in header", ErrCorruptData, md.SpaceType)
		}
		if !storageType.Valid() {
			return nil, fmt.Errorf("%w: unknown storage data type %d in header", ErrCorruptData, md.StorageDataType)
		}

		if lo.hasSpace && lo.space != space {
			return nil, &ErrParameterMismatch{Name: "space", Provided: lo.space, Stored: space}
		}
		if lo.hasDims && lo.dims != dims {
			return nil, &ErrParameterMismatch{Name: "numDimensions", Provided: lo.dims, Stored: dims}
		}
		if lo.hasStorage && lo.storage != storageType {
			return nil, &ErrParameterMismatch{Name: "storageDataType", Provided: lo.storage, Stored: storageType}
		}
	} else {
		var missing []string
		if !lo.hasSpace {
			missing = append(missing, "space")
		}
		if !lo.hasDims {
			missing = append(missing, "numDimensions")
		}
		if !lo.hasStorage {
			missing = append(missing, "storageDataType")
		}
		if len(missing) > 0 {
			return nil, &ErrMissingParameters{Missing: missing}
		}
		space = lo.space
		dims = lo.dims
		storageType = lo.storage
	}

	codec, err := storage.NewCodec(storageType)
	if err != nil {
		return nil, err
	}

	st, err := persistence.ReadIndexState(s, dims*codec.BytesPerDimension())
	if err != nil {
		return nil, translateError(err)
	}
	if md != nil && (md.M != st.M || md.EfConstruction != st.EfConstruction ||
		md.MaxElements != st.MaxElements || md.NumElements != st.NumElements) {
		return nil, fmt.Errorf("%w: header and body disagree", ErrCorruptData)
	}

	opts := DefaultOptions()
	for _, fn := range lo.engine {
		fn(&opts)
	}
	// Structural parameters come from the stream, not engine options.
	opts.M = int(st.M)
	opts.EfConstruction = int(st.EfConstruction)
	opts.MaxElements = int(st.MaxElements)
	opts.StorageDataType = storageType

	idx, err := newIndex(space, dims, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	n := int(st.NumElements)
	if err := idx.vectors.LoadBlock(st.VectorData, n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	for i := 0; i < n; i++ {
		idx.graph.RestoreNode(uint32(i), int(st.Levels[i]), st.Links[i])
	}
	entryPoint := st.EntryPoint
	if n == 0 {
		entryPoint = hnsw.NoEntryPoint
	}
	idx.graph.RestoreEntryPoint(entryPoint, int(st.MaxLevel), n)
	idx.graph.RestoreDeleted(st.Deleted)

	for i := 0; i < n; i++ {
		label := st.Labels[i]
		if _, exists := idx.labelToID[label]; exists {
			return nil, fmt.Errorf("%w: duplicate label %d", ErrCorruptData, label)
		}
		idx.labelToID[label] = uint32(i)
		idx.idToLabel[i] = label
		if label >= idx.nextLabel {
			idx.nextLabel = label + 1
		}
	}
	idx.nextID = uint32(n)

	idx.logger.Info("index loaded", "numElements", n, "space", space, "storageDataType", storageType)
	return idx, nil
}

// FromBytes loads an index from an in-memory stream.
func FromBytes(data []byte, optFns ...LoadOption) (*Index, error) {
	return Load(persistence.NewMemoryInputStream(data), optFns...)
}

// LoadFile loads an index from a file.
func LoadFile(path string, optFns ...LoadOption) (*Index, error) {
	s, err := persistence.OpenFileInputStream(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return Load(s, optFns...)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
