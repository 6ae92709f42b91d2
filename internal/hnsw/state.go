package hnsw

// State export and import for serialization. None of these take locks;
// exporters hold the index-wide read exclusion and importers own the
// graph outright.

// NodeLinks returns node id's neighbor lists, one per layer from 0 to its
// top level. The slices alias the graph's storage.
func (g *Graph) NodeLinks(id uint32) [][]uint32 {
	return g.links[id]
}

// RestoreNode installs a node with its level and neighbor lists, taking
// ownership of links.
func (g *Graph) RestoreNode(id uint32, level int, links [][]uint32) {
	g.levels[id] = int32(level)
	g.links[id] = links
}

// RestoreEntryPoint sets the entry point, top level and node count.
func (g *Graph) RestoreEntryPoint(entryPoint uint32, maxLevel, count int) {
	g.entryPoint = entryPoint
	g.maxLevel = maxLevel
	g.count.Store(int64(count))
}
