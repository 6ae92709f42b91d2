// Package hnsw implements the hierarchical navigable small world graph
// that backs the index: layered greedy insertion, best-first layer search
// with a diversity heuristic for neighbor selection, and tombstone-based
// deletion.
//
// The graph stores only topology. Vectors live elsewhere; distances reach
// the graph through callbacks, which keeps the storage codec out of the
// traversal code.
package hnsw

import (
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/canbakiskan/voyager-node/internal/queue"
)

// NoEntryPoint is the entry point sentinel of an empty graph.
const NoEntryPoint = ^uint32(0)

// DistFunc returns the distance from the current query to a stored node.
type DistFunc func(id uint32) float32

// PairFunc returns the distance between two stored nodes.
type PairFunc func(a, b uint32) float32

// Graph is a hierarchical navigable small world graph over internal node
// IDs [0, capacity).
//
// Concurrency: Insert and Search may run concurrently with each other.
// Resize and Restore* require external exclusion of all other calls.
type Graph struct {
	m              int // max neighbors per node on layers >= 1
	m0             int // max neighbors per node on layer 0
	efConstruction int
	capacity       int

	// mu guards entryPoint and maxLevel. Inserts that raise the max
	// level hold it exclusively for their whole duration; all other
	// inserts and searches hold it shared.
	mu         sync.RWMutex
	entryPoint uint32
	maxLevel   int

	// count is atomic: most inserts only hold mu shared.
	count atomic.Int64

	levels []int32      // per-node top layer, -1 for unused slots
	links  [][][]uint32 // [id][layer] neighbor lists
	locks  []sync.RWMutex

	tombMu     sync.RWMutex
	tombstones *roaring.Bitmap

	visitedPool sync.Pool
}

// New creates an empty graph with the given connectivity parameters and
// node capacity.
func New(m, efConstruction, capacity int) *Graph {
	g := &Graph{
		m:              m,
		m0:             2 * m,
		efConstruction: efConstruction,
		capacity:       capacity,
		entryPoint:     NoEntryPoint,
		maxLevel:       -1,
		levels:         make([]int32, capacity),
		links:          make([][][]uint32, capacity),
		locks:          make([]sync.RWMutex, capacity),
		tombstones:     roaring.New(),
	}
	for i := range g.levels {
		g.levels[i] = -1
	}
	g.visitedPool.New = func() any {
		return newVisitedSet(capacity)
	}
	return g
}

// M returns the max neighbor count for layers above zero.
func (g *Graph) M() int { return g.m }

// EfConstruction returns the construction-time beam width.
func (g *Graph) EfConstruction() int { return g.efConstruction }

// Capacity returns the number of node slots.
func (g *Graph) Capacity() int { return g.capacity }

// Count returns the number of inserted nodes, tombstoned ones included.
func (g *Graph) Count() int {
	return int(g.count.Load())
}

// EntryPoint returns the current entry point, or NoEntryPoint when empty.
func (g *Graph) EntryPoint() uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entryPoint
}

// MaxLevel returns the top layer of the graph, or -1 when empty.
func (g *Graph) MaxLevel() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxLevel
}

// Level returns the top layer of node id.
func (g *Graph) Level(id uint32) int {
	return int(g.levels[id])
}

// maxConn returns the neighbor cap for a layer.
func (g *Graph) maxConn(layer int) int {
	if layer == 0 {
		return g.m0
	}
	return g.m
}

// Insert adds node id at the given top layer, wiring it into every layer
// from min(level, maxLevel) down to 0. The caller guarantees id is an
// unused slot below capacity and that the node's vector is already stored.
func (g *Graph) Insert(id uint32, level int, distTo DistFunc, distBetween PairFunc) {
	g.mu.RLock()
	exclusive := level > g.maxLevel
	if exclusive {
		// Raising the max level swaps the global entry point; take the
		// write lock for the whole insert so concurrent descents never
		// see a half-wired top layer.
		g.mu.RUnlock()
		g.mu.Lock()
		defer g.mu.Unlock()
	} else {
		defer g.mu.RUnlock()
	}

	g.levels[id] = int32(level)
	g.locks[id].Lock()
	g.links[id] = make([][]uint32, level+1)
	g.locks[id].Unlock()

	if g.entryPoint == NoEntryPoint {
		g.entryPoint = id
		g.maxLevel = level
		g.count.Add(1)
		return
	}

	ep := queue.Candidate{ID: g.entryPoint, Dist: distTo(g.entryPoint)}

	// Greedy descent through the layers above the new node's level.
	for layer := g.maxLevel; layer > level; layer-- {
		ep = g.greedyClosest(ep, distTo, layer)
	}

	top := level
	if g.maxLevel < top {
		top = g.maxLevel
	}
	for layer := top; layer >= 0; layer-- {
		results := g.searchLayer(ep, distTo, layer, g.efConstruction)

		candidates := drainAscending(results)
		neighbors := g.selectNeighbors(candidates, g.m, distBetween)

		g.locks[id].Lock()
		g.links[id][layer] = neighbors
		g.locks[id].Unlock()

		for _, n := range neighbors {
			g.linkBack(n, id, layer, distBetween)
		}

		if len(candidates) > 0 {
			ep = candidates[0]
		}
	}

	g.count.Add(1)
	if level > g.maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}
}

// linkBack adds id to n's neighbor list on layer, pruning with the
// selection heuristic when the list overflows.
func (g *Graph) linkBack(n, id uint32, layer int, distBetween PairFunc) {
	maxConn := g.maxConn(layer)

	g.locks[n].Lock()
	defer g.locks[n].Unlock()

	neighbors := g.links[n][layer]
	if len(neighbors) < maxConn {
		g.links[n][layer] = append(neighbors, id)
		return
	}

	// Overflow: re-select the best maxConn among current neighbors plus
	// the new node, by distance to n.
	candidates := make([]queue.Candidate, 0, len(neighbors)+1)
	candidates = append(candidates, queue.Candidate{ID: id, Dist: distBetween(n, id)})
	for _, nb := range neighbors {
		candidates = append(candidates, queue.Candidate{ID: nb, Dist: distBetween(n, nb)})
	}
	sortCandidates(candidates)

	g.links[n][layer] = g.selectNeighbors(candidates, maxConn, distBetween)
}

// greedyClosest walks layer from ep to a local minimum of distTo.
func (g *Graph) greedyClosest(ep queue.Candidate, distTo DistFunc, layer int) queue.Candidate {
	var scratch []uint32
	for {
		improved := false
		scratch = g.neighbors(ep.ID, layer, scratch[:0])
		for _, n := range scratch {
			if d := distTo(n); d < ep.Dist {
				ep = queue.Candidate{ID: n, Dist: d}
				improved = true
			}
		}
		if !improved {
			return ep
		}
	}
}

// neighbors appends a copy of id's neighbor list on layer to buf.
func (g *Graph) neighbors(id uint32, layer int, buf []uint32) []uint32 {
	g.locks[id].RLock()
	defer g.locks[id].RUnlock()
	if layer >= len(g.links[id]) {
		return buf
	}
	return append(buf, g.links[id][layer]...)
}

// searchLayer runs a best-first search on one layer, returning a max-heap
// of at most ef candidates. Tombstoned nodes are traversed and returned;
// callers filter them where it matters.
func (g *Graph) searchLayer(ep queue.Candidate, distTo DistFunc, layer, ef int) *queue.Heap {
	visited := g.visitedPool.Get().(*visitedSet)
	defer func() {
		visited.reset()
		g.visitedPool.Put(visited)
	}()

	candidates := queue.NewMin(ef)
	results := queue.NewMax(ef)

	visited.visit(ep.ID)
	candidates.Push(ep)
	results.Push(ep)

	var scratch []uint32
	for candidates.Len() > 0 {
		c, _ := candidates.Pop()
		if worst, ok := results.Top(); ok && results.Len() >= ef && c.Dist > worst.Dist {
			break
		}

		scratch = g.neighbors(c.ID, layer, scratch[:0])
		for _, n := range scratch {
			if visited.visited(n) {
				continue
			}
			visited.visit(n)

			d := distTo(n)
			if worst, ok := results.Top(); !ok || results.Len() < ef || d < worst.Dist {
				candidates.Push(queue.Candidate{ID: n, Dist: d})
				results.PushBounded(queue.Candidate{ID: n, Dist: d}, ef)
			}
		}
	}

	return results
}

// selectNeighbors applies the diversity heuristic to candidates sorted by
// ascending distance: a candidate is kept only if it is closer to the base
// than to every already-kept neighbor.
func (g *Graph) selectNeighbors(candidates []queue.Candidate, m int, distBetween PairFunc) []uint32 {
	selected := make([]uint32, 0, m)
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if distBetween(c.ID, s) < c.Dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c.ID)
		}
	}
	return selected
}

// drainAscending empties a max-heap into a slice sorted by ascending
// distance.
func drainAscending(h *queue.Heap) []queue.Candidate {
	out := make([]queue.Candidate, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i], _ = h.Pop()
	}
	return out
}

// sortCandidates sorts by ascending distance. Insertion sort: the slices
// here are neighbor lists, never longer than a few dozen entries.
func sortCandidates(c []queue.Candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].Dist < c[j-1].Dist; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

// Search returns the k nearest live nodes to the query described by
// distTo, using a beam width of ef on the bottom layer.
func (g *Graph) Search(distTo DistFunc, k, ef int) []queue.Candidate {
	g.mu.RLock()
	ep := g.entryPoint
	maxLevel := g.maxLevel
	g.mu.RUnlock()

	if ep == NoEntryPoint {
		return nil
	}

	cur := queue.Candidate{ID: ep, Dist: distTo(ep)}
	for layer := maxLevel; layer > 0; layer-- {
		cur = g.greedyClosest(cur, distTo, layer)
	}

	if ef < k {
		ef = k
	}
	results := g.searchLayer(cur, distTo, 0, ef)

	// Closest k live candidates, ascending.
	all := drainAscending(results)
	out := make([]queue.Candidate, 0, k)
	for _, c := range all {
		if g.IsDeleted(c.ID) {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out
}

// Resize changes the node capacity. The caller must exclude all
// concurrent use of the graph.
func (g *Graph) Resize(newCap int) {
	levels := make([]int32, newCap)
	links := make([][][]uint32, newCap)
	n := copy(levels, g.levels)
	copy(links, g.links)
	for i := n; i < newCap; i++ {
		levels[i] = -1
	}

	g.levels = levels
	g.links = links
	g.locks = make([]sync.RWMutex, newCap)
	g.capacity = newCap
	g.visitedPool = sync.Pool{New: func() any {
		return newVisitedSet(newCap)
	}}
}
