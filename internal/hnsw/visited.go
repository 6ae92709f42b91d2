package hnsw

// visitedSet tracks visited node IDs with a bitset plus a dirty list, so
// resetting between searches costs O(visited) instead of O(capacity).
type visitedSet struct {
	bits  []uint64
	dirty []uint32
}

func newVisitedSet(capacity int) *visitedSet {
	return &visitedSet{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]uint32, 0, 128),
	}
}

func (v *visitedSet) visit(id uint32) {
	word := int(id >> 6)
	mask := uint64(1) << (id & 63)
	if word >= len(v.bits) {
		v.grow(word + 1)
	}
	if v.bits[word]&mask == 0 {
		v.bits[word] |= mask
		v.dirty = append(v.dirty, id)
	}
}

func (v *visitedSet) visited(id uint32) bool {
	word := int(id >> 6)
	if word >= len(v.bits) {
		return false
	}
	return v.bits[word]&(uint64(1)<<(id&63)) != 0
}

func (v *visitedSet) reset() {
	for _, id := range v.dirty {
		v.bits[id>>6] &^= uint64(1) << (id & 63)
	}
	v.dirty = v.dirty[:0]
}

func (v *visitedSet) grow(words int) {
	if c := 2 * len(v.bits); c > words {
		words = c
	}
	bits := make([]uint64, words)
	copy(bits, v.bits)
	v.bits = bits
}
