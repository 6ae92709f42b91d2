package voyager

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/canbakiskan/voyager-node/distance"
	"github.com/canbakiskan/voyager-node/internal/hnsw"
	"github.com/canbakiskan/voyager-node/resource"
	"github.com/canbakiskan/voyager-node/storage"
)

// Result is one query match.
type Result struct {
	Label    uint64
	Distance float32
}

// Index is an approximate nearest-neighbor index over float32 vectors.
//
// All operations are safe for concurrent use. ResizeIndex, WriteTo and
// the snapshot operations briefly exclude everything else.
type Index struct {
	space          distance.Space
	dims           int
	m              int
	efConstruction int
	distFunc       distance.Func
	codec          storage.Codec

	// resizeMu serializes capacity changes and serialization against all
	// other operations; regular operations hold it shared.
	resizeMu    sync.RWMutex
	vectors     *storage.Store
	graph       *hnsw.Graph
	maxElements int

	labelMu   sync.RWMutex
	labelToID map[uint64]uint32
	idToLabel []uint64
	nextLabel uint64
	nextID    uint32

	rngMu     sync.Mutex
	rng       *rand.Rand
	levelMult float64

	ef     atomic.Int64
	logger *Logger
	ctrl   *resource.Controller

	decodePool sync.Pool
}

// New creates an empty index over vectors of dims components, compared in
// the given space.
func New(space distance.Space, dims int, optFns ...Option) (*Index, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newIndex(space, dims, opts)
}

func newIndex(space distance.Space, dims int, opts Options) (*Index, error) {
	if !space.Valid() {
		return nil, &ErrInvalidParameter{Name: "space", Reason: fmt.Sprintf("unknown space %d", space)}
	}
	if dims < 1 {
		return nil, &ErrInvalidParameter{Name: "numDimensions", Reason: "must be at least 1"}
	}
	if opts.M < 2 {
		return nil, &ErrInvalidParameter{Name: "M", Reason: "must be at least 2"}
	}
	if opts.EfConstruction < 1 {
		return nil, &ErrInvalidParameter{Name: "efConstruction", Reason: "must be at least 1"}
	}
	if opts.MaxElements < 1 {
		return nil, &ErrInvalidParameter{Name: "maxElements", Reason: "must be at least 1"}
	}
	if opts.Ef < 1 {
		return nil, &ErrInvalidParameter{Name: "ef", Reason: "must be at least 1"}
	}

	codec, err := storage.NewCodec(opts.StorageDataType)
	if err != nil {
		return nil, err
	}
	distFunc, err := distance.Provider(space)
	if err != nil {
		return nil, &ErrInvalidParameter{Name: "space", Reason: err.Error()}
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	idx := &Index{
		space:          space,
		dims:           dims,
		m:              opts.M,
		efConstruction: opts.EfConstruction,
		distFunc:       distFunc,
		codec:          codec,
		vectors:        storage.New(codec, dims, opts.MaxElements),
		graph:          hnsw.New(opts.M, opts.EfConstruction, opts.MaxElements),
		maxElements:    opts.MaxElements,
		labelToID:      make(map[uint64]uint32),
		idToLabel:      make([]uint64, opts.MaxElements),
		rng:            rand.New(rand.NewSource(opts.RandomSeed)),
		levelMult:      1.0 / math.Log(float64(opts.M)),
		logger:         logger,
		ctrl:           opts.Controller,
	}
	idx.ef.Store(int64(opts.Ef))
	idx.decodePool.New = func() any {
		buf := make([]float32, dims)
		return &buf
	}
	return idx, nil
}

// Space returns the index's distance space.
func (idx *Index) Space() distance.Space { return idx.space }

// NumDimensions returns the vector dimensionality.
func (idx *Index) NumDimensions() int { return idx.dims }

// M returns the per-node neighbor cap.
func (idx *Index) M() int { return idx.m }

// EfConstruction returns the construction beam width.
func (idx *Index) EfConstruction() int { return idx.efConstruction }

// StorageDataType returns the stored vector encoding.
func (idx *Index) StorageDataType() storage.DataType { return idx.codec.DataType() }

// MaxElements returns the current capacity.
func (idx *Index) MaxElements() int {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	return idx.maxElements
}

// NumElements returns the number of points ever added, soft-deleted ones
// included.
func (idx *Index) NumElements() int {
	idx.labelMu.RLock()
	defer idx.labelMu.RUnlock()
	return int(idx.nextID)
}

// Len is an alias for NumElements.
func (idx *Index) Len() int { return idx.NumElements() }

// Ef returns the default query beam width.
func (idx *Index) Ef() int { return int(idx.ef.Load()) }

// SetEf changes the default query beam width.
func (idx *Index) SetEf(ef int) error {
	if ef < 1 {
		return &ErrInvalidParameter{Name: "ef", Reason: "must be at least 1"}
	}
	idx.ef.Store(int64(ef))
	return nil
}

// String implements fmt.Stringer.
func (idx *Index) String() string {
	return fmt.Sprintf("Index(space=%s, numDimensions=%d, storageDataType=%s)",
		idx.space, idx.dims, idx.codec.DataType())
}

// AddItem inserts a vector under the next auto-assigned label and returns
// that label.
func (idx *Index) AddItem(v []float32) (uint64, error) {
	return idx.addOne(v, 0, false)
}

// AddItemWithLabel inserts a vector under a caller-chosen label.
func (idx *Index) AddItemWithLabel(v []float32, label uint64) error {
	_, err := idx.addOne(v, label, true)
	return err
}

func (idx *Index) addOne(v []float32, label uint64, hasLabel bool) (uint64, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	if len(v) != idx.dims {
		return 0, &ErrDimensionMismatch{Expected: idx.dims, Actual: len(v)}
	}

	vec := v
	if idx.space == distance.SpaceCosine {
		normalized, ok := distance.NormalizeL2Copy(v)
		if !ok {
			return 0, &ErrInvalidParameter{Name: "vector", Reason: "zero vector cannot be normalized for cosine"}
		}
		vec = normalized
	}

	idx.labelMu.Lock()
	if !hasLabel {
		label = idx.nextLabel
	}
	if _, exists := idx.labelToID[label]; exists {
		idx.labelMu.Unlock()
		return 0, &ErrDuplicateLabel{Label: label}
	}
	if int(idx.nextID) >= idx.maxElements {
		idx.labelMu.Unlock()
		return 0, &ErrCapacityExceeded{Capacity: idx.maxElements, Requested: int(idx.nextID) + 1}
	}
	id := idx.nextID
	idx.nextID++
	idx.labelToID[label] = id
	idx.idToLabel[id] = label
	if label >= idx.nextLabel {
		idx.nextLabel = label + 1
	}
	idx.labelMu.Unlock()

	idx.vectors.Set(id, vec)
	idx.graph.Insert(id, idx.randomLevel(), idx.distToQuery(vec), idx.distBetween)

	idx.logger.Debug("item added", "label", label, "id", id)
	return label, nil
}

// Query returns the k nearest live neighbors of q, sorted by ascending
// distance. ef=-1 uses the index default; ef below k is clamped up. Fewer
// than k results are returned when fewer live points exist.
func (idx *Index) Query(q []float32, k, ef int) ([]Result, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	return idx.queryLocked(q, k, ef)
}

func (idx *Index) queryLocked(q []float32, k, ef int) ([]Result, error) {
	if k < 1 {
		return nil, &ErrInvalidParameter{Name: "k", Reason: "must be at least 1"}
	}
	if len(q) != idx.dims {
		return nil, &ErrDimensionMismatch{Expected: idx.dims, Actual: len(q)}
	}
	if idx.graph.Count() == 0 {
		return nil, ErrEmptyIndex
	}

	qv := q
	if idx.space == distance.SpaceCosine {
		normalized, ok := distance.NormalizeL2Copy(q)
		if !ok {
			return nil, &ErrInvalidParameter{Name: "vector", Reason: "zero vector cannot be normalized for cosine"}
		}
		qv = normalized
	}

	if ef < 0 {
		ef = int(idx.ef.Load())
	}
	if ef < k {
		ef = k
	}

	candidates := idx.graph.Search(idx.distToQuery(qv), k, ef)

	idx.labelMu.RLock()
	defer idx.labelMu.RUnlock()
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Label: idx.idToLabel[c.ID], Distance: c.Dist}
	}
	return results, nil
}

// MarkDeleted soft-deletes a label: it disappears from query results but
// keeps its slot, vector and graph links. Marking twice is a no-op.
func (idx *Index) MarkDeleted(label uint64) error {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	id, err := idx.lookup(label)
	if err != nil {
		return err
	}
	idx.graph.MarkDeleted(id)
	idx.logger.Debug("item deleted", "label", label)
	return nil
}

// UnmarkDeleted restores a soft-deleted label. Restoring a live label is
// a no-op.
func (idx *Index) UnmarkDeleted(label uint64) error {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	id, err := idx.lookup(label)
	if err != nil {
		return err
	}
	idx.graph.UnmarkDeleted(id)
	idx.logger.Debug("item restored", "label", label)
	return nil
}

// Has reports whether the label is in the index, soft-deleted or not.
func (idx *Index) Has(label uint64) bool {
	idx.labelMu.RLock()
	defer idx.labelMu.RUnlock()
	_, ok := idx.labelToID[label]
	return ok
}

// IDs returns every label in the index in insertion order, soft-deleted
// ones included.
func (idx *Index) IDs() []uint64 {
	idx.labelMu.RLock()
	defer idx.labelMu.RUnlock()
	return append([]uint64(nil), idx.idToLabel[:idx.nextID]...)
}

// GetVector returns the stored vector for a label, reconstructed through
// the storage codec. Cosine indexes return the normalized vector.
func (idx *Index) GetVector(label uint64) ([]float32, error) {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	id, err := idx.lookup(label)
	if err != nil {
		return nil, err
	}
	return idx.vectors.Decode(id), nil
}

// GetVectors returns the stored vectors for the given labels.
func (idx *Index) GetVectors(labels []uint64) ([][]float32, error) {
	out := make([][]float32, len(labels))
	for i, label := range labels {
		v, err := idx.GetVector(label)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// GetDistance computes the space's distance between two raw vectors,
// without touching the index contents.
func (idx *Index) GetDistance(a, b []float32) (float32, error) {
	if len(a) != idx.dims {
		return 0, &ErrDimensionMismatch{Expected: idx.dims, Actual: len(a)}
	}
	if len(b) != idx.dims {
		return 0, &ErrDimensionMismatch{Expected: idx.dims, Actual: len(b)}
	}
	if idx.space == distance.SpaceCosine {
		return distance.Cosine(a, b), nil
	}
	return idx.distFunc(a, b), nil
}

// ResizeIndex changes the capacity. Shrinking below the number of
// occupied slots fails with ErrCapacityExceeded. Stop-the-world: no other
// operation runs while the backing arrays are reallocated.
func (idx *Index) ResizeIndex(newCap int) error {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()

	if newCap < 1 {
		return &ErrInvalidParameter{Name: "newSize", Reason: "must be at least 1"}
	}
	if newCap < int(idx.nextID) {
		return &ErrCapacityExceeded{Capacity: newCap, Requested: int(idx.nextID)}
	}

	idx.vectors.Resize(newCap)
	idx.graph.Resize(newCap)

	labels := make([]uint64, newCap)
	copy(labels, idx.idToLabel)
	idx.idToLabel = labels
	idx.maxElements = newCap

	idx.logger.Info("index resized", "maxElements", newCap)
	return nil
}

// lookup resolves a label to its internal slot under labelMu.
func (idx *Index) lookup(label uint64) (uint32, error) {
	idx.labelMu.RLock()
	defer idx.labelMu.RUnlock()
	id, ok := idx.labelToID[label]
	if !ok {
		return 0, &ErrUnknownLabel{Label: label}
	}
	return id, nil
}

func (idx *Index) randomLevel() int {
	idx.rngMu.Lock()
	defer idx.rngMu.Unlock()
	u := idx.rng.Float64()
	for u == 0 {
		u = idx.rng.Float64()
	}
	return int(-math.Log(u) * idx.levelMult)
}

// distToQuery adapts the distance function to graph callbacks, decoding
// stored vectors through a pooled scratch buffer.
func (idx *Index) distToQuery(q []float32) hnsw.DistFunc {
	return func(id uint32) float32 {
		buf := idx.decodePool.Get().(*[]float32)
		idx.vectors.DecodeInto(*buf, id)
		d := idx.distFunc(q, *buf)
		idx.decodePool.Put(buf)
		return d
	}
}

func (idx *Index) distBetween(a, b uint32) float32 {
	bufA := idx.decodePool.Get().(*[]float32)
	bufB := idx.decodePool.Get().(*[]float32)
	idx.vectors.DecodeInto(*bufA, a)
	idx.vectors.DecodeInto(*bufB, b)
	d := idx.distFunc(*bufA, *bufB)
	idx.decodePool.Put(bufA)
	idx.decodePool.Put(bufB)
	return d
}
