package memtable

import (
	"testing"
)

func TestPutGetOverwrite(t *testing.T) {
	m := New(1 << 20)
	m.Put([]byte("a"), []byte("1"), 1, 100)
	m.Put([]byte("a"), []byte("2"), 2, 200)

	entry, ok := m.Get([]byte("a"))
	if !ok {
		t.Fatalf("expected key to be present")
	}
	if string(entry.Value) != "2" {
		t.Fatalf("expected latest write to win, got %q", entry.Value)
	}
}

func TestDeleteRecordsTombstone(t *testing.T) {
	m := New(1 << 20)
	m.Put([]byte("a"), []byte("1"), 1, 100)
	m.Delete([]byte("a"), 2, 200)

	entry, ok := m.Get([]byte("a"))
	if !ok {
		t.Fatalf("expected tombstoned key to still be present in memtable")
	}
	if !entry.Tombstone {
		t.Fatalf("expected tombstone flag set")
	}
}

func TestScanExcludesTombstonesAndRespectsRange(t *testing.T) {
	m := New(1 << 20)
	m.Put([]byte("a"), []byte("1"), 1, 0)
	m.Put([]byte("b"), []byte("2"), 2, 0)
	m.Delete([]byte("c"), 3, 0)
	m.Put([]byte("d"), []byte("4"), 4, 0)

	got := m.Scan([]byte("a"), []byte("d"))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in [a, d), got %d: %+v", len(got), got)
	}
	if string(got[0].Key) != "a" || string(got[1].Key) != "b" {
		t.Fatalf("unexpected scan order: %+v", got)
	}
}

func TestGetAllEntriesIncludesTombstones(t *testing.T) {
	m := New(1 << 20)
	m.Put([]byte("a"), []byte("1"), 1, 0)
	m.Delete([]byte("b"), 2, 0)

	all := m.GetAllEntries()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
}

func TestIsFull(t *testing.T) {
	m := New(64)
	if m.IsFull() {
		t.Fatalf("empty memtable should not be full")
	}
	m.Put([]byte("key"), make([]byte, 64), 1, 0)
	if !m.IsFull() {
		t.Fatalf("expected memtable to report full after exceeding bound")
	}
}

func TestClearResetsSizeAndContents(t *testing.T) {
	m := New(1 << 20)
	m.Put([]byte("a"), []byte("1"), 1, 0)
	m.Clear()
	if m.Len() != 0 || m.SizeEstimateBytes() != 0 {
		t.Fatalf("expected empty memtable after Clear, got len=%d size=%d", m.Len(), m.SizeEstimateBytes())
	}
}
