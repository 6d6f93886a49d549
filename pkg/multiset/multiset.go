package multiset

import (
	"iter"

	"github.com/google/btree"
)

const degree = 32

type entry struct {
	key   uint64
	count uint64
}

func less(a, b *entry) bool {
	return a.key < b.key
}

// Multiset counts occurrences of addresses and iterates them in ascending
// address order.
type Multiset struct {
	tree  *btree.BTreeG[*entry]
	probe entry
	size  uint64
}

func New() *Multiset {
	return &Multiset{
		tree: btree.NewG[*entry](degree, less),
	}
}

// Add increments the count of key, inserting it with count 1 if absent.
func (m *Multiset) Add(key uint64) {
	m.size++
	m.probe.key = key
	if e, ok := m.tree.Get(&m.probe); ok {
		e.count++
		return
	}
	m.tree.ReplaceOrInsert(&entry{key: key, count: 1})
}

// Count returns the number of occurrences of key.
func (m *Multiset) Count(key uint64) uint64 {
	m.probe.key = key
	if e, ok := m.tree.Get(&m.probe); ok {
		return e.count
	}
	return 0
}

// Len returns the number of distinct keys.
func (m *Multiset) Len() int {
	return m.tree.Len()
}

// Size returns the sum of all counts.
func (m *Multiset) Size() uint64 {
	return m.size
}

// All yields (key, count) pairs in ascending key order.
// The returned sequence can be ranged over multiple times.
func (m *Multiset) All() iter.Seq2[uint64, uint64] {
	return func(yield func(uint64, uint64) bool) {
		m.tree.Ascend(func(e *entry) bool {
			return yield(e.key, e.count)
		})
	}
}

// Keys returns the distinct keys in ascending order.
func (m *Multiset) Keys() []uint64 {
	keys := make([]uint64, 0, m.tree.Len())
	for k := range m.All() {
		keys = append(keys, k)
	}

	return keys
}
