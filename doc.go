// Package voyager provides an approximate nearest-neighbor vector index
// for Go, built on a hierarchical navigable small world (HNSW) graph.
//
// # Quick Start
//
//	idx, _ := voyager.New(distance.SpaceEuclidean, 128,
//		voyager.WithMaxElements(100_000))
//
//	label, _ := idx.AddItem(vector)              // auto-assigned label
//	_ = idx.AddItemWithLabel(vector, 42)         // caller-chosen label
//
//	results, _ := idx.Query(query, 10, -1)       // ef=-1 uses the index default
//	for _, r := range results {
//		fmt.Println(r.Label, r.Distance)
//	}
//
// # Distance Spaces
//
// Three spaces are supported: SpaceEuclidean (squared L2),
// SpaceInnerProduct (negated dot product) and SpaceCosine. Cosine indexes
// L2-normalize vectors on insert and query, so stored vectors come back
// normalized.
//
// # Storage Types
//
// Vectors can be stored as Float32 (exact), Float8 (linear int8, range
// [-1, 1]) or E4M3 (4-bit exponent, 3-bit mantissa). The quantized types
// cut memory 4x at the cost of reconstruction error.
//
// # Deletion
//
// MarkDeleted soft-deletes a label: it disappears from query results but
// keeps its slot, vector and graph links, and UnmarkDeleted restores it.
// Slots are never reused.
//
// # Persistence
//
// Indexes serialize to a self-describing binary format:
//
//	_ = idx.SaveFile("index.voy")
//	idx, _ = voyager.LoadFile("index.voy")
//
// Streams written by older tools without the metadata header load too,
// with the missing parameters supplied by the caller:
//
//	idx, _ = voyager.LoadFile("legacy.voy",
//		voyager.WithSpace(distance.SpaceEuclidean),
//		voyager.WithNumDimensions(128),
//		voyager.WithStorageDataTypeHint(storage.DataTypeFloat32))
//
// # Snapshots
//
// Indexes ship to blob storage (in-memory, local mmap-backed, S3, MinIO,
// optionally zstd- or lz4-compressed) through the blobstore package:
//
//	store, _ := s3.NewStoreFromDefaultConfig(ctx, "my-bucket", "indexes/")
//	_ = idx.SaveSnapshot(ctx, store, "current.voy")
//	idx, _ = voyager.LoadSnapshot(ctx, store, "current.voy")
package voyager
