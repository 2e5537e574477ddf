// Package memtable implements the in-memory sorted buffer (C5): a concurrent ordered map
// keyed by record key, holding the most recent value or tombstone written for that key.
// Ordering is provided by github.com/google/btree's generic BTreeG rather than a hand-rolled
// balanced tree, since the corpus already depends on it for exactly this purpose.
package memtable

import (
	"sync"

	"github.com/google/btree"
)

// entryOverhead is the constant per-entry bookkeeping cost added to every footprint
// calculation, matching spec.md §4.5's "key bytes + value bytes + a constant overhead per
// entry" size model.
const entryOverhead = 32

// Entry is a single memtable record: a value, or no value to represent a tombstone.
type Entry struct {
	Key       []byte
	Value     []byte
	Tombstone bool
	Sequence  uint64
	Timestamp int64
}

func (e Entry) footprint() int {
	return len(e.Key) + len(e.Value) + entryOverhead
}

// item is the BTreeG element; ordering is purely by Key so Sequence never participates in
// comparisons - a ReplaceOrInsert for an existing key always overwrites, matching "the
// latest insertion per key wins."
type item struct {
	Entry
}

func less(a, b item) bool {
	return string(a.Key) < string(b.Key)
}

// Memtable is a concurrent ordered buffer of the most recent write per key. Concurrent
// put/delete/get/scan calls are all safe; there is no ordering guarantee between concurrent
// mutations of the same key beyond last-writer-wins by sequence number, which callers
// guarantee by only ever calling Put/Delete with monotonically increasing sequences for a
// given key.
type Memtable struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[item]
	size    int
	maxSize uint64
}

// New returns an empty Memtable that reports IsFull once its cumulative footprint reaches
// maxSize bytes.
func New(maxSize uint64) *Memtable {
	return &Memtable{
		tree:    btree.NewG(32, less),
		maxSize: maxSize,
	}
}

// Put inserts or overwrites key with value at the given sequence/timestamp.
func (m *Memtable) Put(key, value []byte, seq uint64, timestampUs int64) {
	m.upsert(Entry{Key: key, Value: value, Sequence: seq, Timestamp: timestampUs})
}

// Delete records a tombstone for key at the given sequence/timestamp.
func (m *Memtable) Delete(key []byte, seq uint64, timestampUs int64) {
	m.upsert(Entry{Key: key, Tombstone: true, Sequence: seq, Timestamp: timestampUs})
}

func (m *Memtable) upsert(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newItem := item{e}
	old, existed := m.tree.ReplaceOrInsert(newItem)
	m.size += newItem.footprint()
	if existed {
		m.size -= old.footprint()
	}
}

// Get returns the current entry for key, including a tombstone, or ok=false if key was
// never written to this memtable.
func (m *Memtable) Get(key []byte) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found, ok := m.tree.Get(item{Entry{Key: key}})
	if !ok {
		return Entry{}, false
	}
	return found.Entry, true
}

// Scan returns every non-tombstone entry with a key in the half-open range [start, end), in
// ascending key order. A nil end means "no upper bound".
func (m *Memtable) Scan(start, end []byte) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	visit := func(it item) bool {
		if end != nil && string(it.Key) >= string(end) {
			return false
		}
		if !it.Tombstone {
			out = append(out, it.Entry)
		}
		return true
	}

	if start == nil {
		m.tree.Ascend(func(it item) bool { return visit(it) })
	} else {
		m.tree.AscendGreaterOrEqual(item{Entry{Key: start}}, func(it item) bool { return visit(it) })
	}
	return out
}

// GetAllEntries returns every entry, including tombstones, in ascending key order. Used by
// flush to build a sorted table from the memtable's full contents.
func (m *Memtable) GetAllEntries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, m.tree.Len())
	m.tree.Ascend(func(it item) bool {
		out = append(out, it.Entry)
		return true
	})
	return out
}

// SizeEstimateBytes returns the cumulative upper-bound footprint of every entry inserted so
// far, per spec.md §4.5.
func (m *Memtable) SizeEstimateBytes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// IsFull reports whether the memtable's size estimate has reached its configured bound.
func (m *Memtable) IsFull() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(m.size) >= m.maxSize
}

// Len returns the number of distinct keys currently held (including tombstoned keys).
func (m *Memtable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Clear resets the memtable to empty, for reuse immediately after a flush.
func (m *Memtable) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Clear(false)
	m.size = 0
}
