package voyager

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canbakiskan/voyager-node/distance"
	"github.com/canbakiskan/voyager-node/persistence"
	"github.com/canbakiskan/voyager-node/storage"
)

// buildSampleIndex returns a populated index with one deleted label.
func buildSampleIndex(t *testing.T) (*Index, [][]float32) {
	t.Helper()

	idx, err := New(distance.SpaceEuclidean, 4,
		WithMaxElements(32), WithM(8), WithEfConstruction(50))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	vectors := make([][]float32, 20)
	for i := range vectors {
		v := make([]float32, 4)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
		_, err := idx.AddItem(v)
		require.NoError(t, err)
	}
	require.NoError(t, idx.MarkDeleted(3))
	return idx, vectors
}

func requireSameIndex(t *testing.T, want, got *Index, vectors [][]float32) {
	t.Helper()

	assert.Equal(t, want.Space(), got.Space())
	assert.Equal(t, want.NumDimensions(), got.NumDimensions())
	assert.Equal(t, want.M(), got.M())
	assert.Equal(t, want.EfConstruction(), got.EfConstruction())
	assert.Equal(t, want.StorageDataType(), got.StorageDataType())
	assert.Equal(t, want.MaxElements(), got.MaxElements())
	assert.Equal(t, want.NumElements(), got.NumElements())
	assert.Equal(t, want.IDs(), got.IDs())

	for label := range uint64(20) {
		v, err := got.GetVector(label)
		require.NoError(t, err)
		assert.Equal(t, vectors[label], v)
	}

	for _, q := range vectors[:5] {
		a, err := want.Query(q, 5, 20)
		require.NoError(t, err)
		b, err := got.Query(q, 5, 20)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}

	// The deleted label survives the round trip as deleted.
	results, err := got.Query(vectors[3], 1, 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEqual(t, uint64(3), results[0].Label)
}

func TestBytesRoundTrip(t *testing.T) {
	t.Parallel()

	idx, vectors := buildSampleIndex(t)

	data, err := idx.Bytes()
	require.NoError(t, err)

	loaded, err := FromBytes(data)
	require.NoError(t, err)
	requireSameIndex(t, idx, loaded, vectors)

	// A restored index accepts new items and keeps label continuity.
	label, err := loaded.AddItem([]float32{9, 9, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), label)
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	idx, vectors := buildSampleIndex(t)
	path := filepath.Join(t.TempDir(), "index.voy")

	require.NoError(t, idx.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	requireSameIndex(t, idx, loaded, vectors)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.voy"))
	require.Error(t, err)
}

func TestHeaderedLoadCrossChecks(t *testing.T) {
	t.Parallel()

	idx, vectors := buildSampleIndex(t)
	data, err := idx.Bytes()
	require.NoError(t, err)

	// Matching parameters are accepted.
	loaded, err := FromBytes(data,
		WithSpace(distance.SpaceEuclidean),
		WithNumDimensions(4),
		WithStorageDataTypeHint(storage.DataTypeFloat32))
	require.NoError(t, err)
	requireSameIndex(t, idx, loaded, vectors)

	var mismatch *ErrParameterMismatch
	_, err = FromBytes(data, WithSpace(distance.SpaceCosine))
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "space", mismatch.Name)

	_, err = FromBytes(data, WithNumDimensions(8))
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "numDimensions", mismatch.Name)

	_, err = FromBytes(data, WithStorageDataTypeHint(storage.DataTypeE4M3))
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "storageDataType", mismatch.Name)
}

// headerLen computes the size of the metadata header so tests can strip it
// to fabricate legacy streams.
func headerLen(t *testing.T) int {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, persistence.WriteMetadata(&buf, &persistence.Metadata{}))
	return buf.Len()
}

func TestLegacyLoad(t *testing.T) {
	t.Parallel()

	idx, vectors := buildSampleIndex(t)
	data, err := idx.Bytes()
	require.NoError(t, err)
	legacy := data[headerLen(t):]

	// A headerless stream cannot describe itself.
	var missing *ErrMissingParameters
	_, err = FromBytes(legacy)
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{"space", "numDimensions", "storageDataType"}, missing.Missing)

	_, err = FromBytes(legacy, WithSpace(distance.SpaceEuclidean), WithNumDimensions(4))
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"storageDataType"}, missing.Missing)

	loaded, err := FromBytes(legacy,
		WithSpace(distance.SpaceEuclidean),
		WithNumDimensions(4),
		WithStorageDataTypeHint(storage.DataTypeFloat32))
	require.NoError(t, err)
	requireSameIndex(t, idx, loaded, vectors)
}

func TestLoadCorruptData(t *testing.T) {
	t.Parallel()

	idx, _ := buildSampleIndex(t)
	data, err := idx.Bytes()
	require.NoError(t, err)

	for _, cut := range []int{headerLen(t) + 1, len(data) / 2, len(data) - 1} {
		_, err := FromBytes(data[:cut])
		require.ErrorIs(t, err, ErrCorruptData, "cut at %d", cut)
	}

	// A corrupted element count trips the body validation.
	garbled := append([]byte(nil), data...)
	garbled[headerLen(t)+8] ^= 0xFF
	_, err = FromBytes(garbled)
	require.ErrorIs(t, err, ErrCorruptData)
}

func TestLoadHugeClaimedCount(t *testing.T) {
	t.Parallel()

	// A tiny stream whose header and body claim 2^40 elements must be
	// rejected as corrupt, not allocated for.
	var buf bytes.Buffer
	require.NoError(t, persistence.WriteMetadata(&buf, &persistence.Metadata{
		SpaceType:       uint8(distance.SpaceEuclidean),
		StorageDataType: uint8(storage.DataTypeFloat32),
		Dims:            4,
		M:               12,
		EfConstruction:  200,
		MaxElements:     1 << 41,
		NumElements:     1 << 40,
	}))
	for _, v := range []any{
		uint64(1) << 41,
		uint64(1) << 40,
		uint64(12),
		uint64(200),
		persistence.NoEntryPoint,
		int32(0),
	} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	_, err := FromBytes(buf.Bytes())
	require.ErrorIs(t, err, ErrCorruptData)
}

func TestLoadWithEngineOptions(t *testing.T) {
	t.Parallel()

	idx, _ := buildSampleIndex(t)
	data, err := idx.Bytes()
	require.NoError(t, err)

	loaded, err := FromBytes(data, WithEngineOptions(WithEf(77)))
	require.NoError(t, err)
	assert.Equal(t, 77, loaded.Ef())

	// Structural parameters always come from the stream.
	loaded, err = FromBytes(data, WithEngineOptions(WithM(2), WithMaxElements(1)))
	require.NoError(t, err)
	assert.Equal(t, idx.M(), loaded.M())
	assert.Equal(t, idx.MaxElements(), loaded.MaxElements())
}

func TestQuantizedRoundTrip(t *testing.T) {
	t.Parallel()

	idx, err := New(distance.SpaceEuclidean, 4,
		WithMaxElements(8), WithStorageDataType(storage.DataTypeFloat8))
	require.NoError(t, err)

	require.NoError(t, idx.AddItemWithLabel([]float32{0.5, -0.5, 0.25, 1}, 7))

	data, err := idx.Bytes()
	require.NoError(t, err)
	loaded, err := FromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, storage.DataTypeFloat8, loaded.StorageDataType())
	want, err := idx.GetVector(7)
	require.NoError(t, err)
	got, err := loaded.GetVector(7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
