package hnsw

import "github.com/RoaringBitmap/roaring/v2"

// Tombstoned nodes stay in the graph and keep their links, so searches
// still route through them; they are only filtered out of results.

// MarkDeleted tombstones node id. Marking twice is a no-op.
func (g *Graph) MarkDeleted(id uint32) {
	g.tombMu.Lock()
	defer g.tombMu.Unlock()
	g.tombstones.Add(id)
}

// UnmarkDeleted removes the tombstone from node id, if any.
func (g *Graph) UnmarkDeleted(id uint32) {
	g.tombMu.Lock()
	defer g.tombMu.Unlock()
	g.tombstones.Remove(id)
}

// IsDeleted reports whether node id is tombstoned.
func (g *Graph) IsDeleted(id uint32) bool {
	g.tombMu.RLock()
	defer g.tombMu.RUnlock()
	return g.tombstones.Contains(id)
}

// DeletedCount returns the number of tombstoned nodes.
func (g *Graph) DeletedCount() int {
	g.tombMu.RLock()
	defer g.tombMu.RUnlock()
	return int(g.tombstones.GetCardinality())
}

// DeletedSnapshot returns a copy of the tombstone set.
func (g *Graph) DeletedSnapshot() *roaring.Bitmap {
	g.tombMu.RLock()
	defer g.tombMu.RUnlock()
	return g.tombstones.Clone()
}

// RestoreDeleted replaces the tombstone set. The caller must exclude all
// concurrent use of the graph.
func (g *Graph) RestoreDeleted(bm *roaring.Bitmap) {
	g.tombstones = bm
}
