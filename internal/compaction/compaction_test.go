package compaction

import (
	"testing"

	"github.com/ignitedb/ignitedb/internal/ioctx"
	"github.com/ignitedb/ignitedb/internal/memtable"
	"github.com/ignitedb/ignitedb/internal/sstable"
	"github.com/ignitedb/ignitedb/pkg/checksum"
	"github.com/ignitedb/ignitedb/pkg/logger"
	"github.com/ignitedb/ignitedb/pkg/options"
)

func newTestTableSet(t *testing.T) (*sstable.TableSet, checksum.Checksummer, ioctx.Context) {
	t.Helper()
	cs := checksum.MustNew(checksum.CRC32)
	io, err := ioctx.New(ioctx.Config{QueueDepth: 8})
	if err != nil {
		t.Fatalf("ioctx.New: %v", err)
	}
	t.Cleanup(func() { io.Close() })

	ts, err := sstable.Open(t.TempDir(), cs, io)
	if err != nil {
		t.Fatalf("sstable.Open: %v", err)
	}
	return ts, cs, io
}

func TestSelectRequiresMinThreshold(t *testing.T) {
	ts, cs, _ := newTestTableSet(t)
	m := New(ts, options.CompactionStrategy{Kind: options.SizeTiered, SizeRatio: 1.2, MinThreshold: 4}, cs, logger.Noop())

	meta, err := ts.WriteTable([]memtable.Entry{{Key: []byte("a"), Value: []byte("1")}})
	if err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	_ = meta

	group, err := m.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(group) != 0 {
		t.Fatalf("expected no selection below min_threshold, got %d", len(group))
	}
}

func TestMergeLaterInputWinsAndDropsTombstones(t *testing.T) {
	ts, cs, _ := newTestTableSet(t)
	m := New(ts, options.CompactionStrategy{Kind: options.SizeTiered, SizeRatio: 1.2, MinThreshold: 2}, cs, logger.Noop())

	t1, err := ts.WriteTable([]memtable.Entry{
		{Key: []byte("a"), Value: []byte("old")},
		{Key: []byte("b"), Value: []byte("keep")},
	})
	if err != nil {
		t.Fatalf("WriteTable t1: %v", err)
	}
	t2, err := ts.WriteTable([]memtable.Entry{
		{Key: []byte("a"), Value: []byte("new")},
		{Key: []byte("c"), Tombstone: true},
	})
	if err != nil {
		t.Fatalf("WriteTable t2: %v", err)
	}

	if err := m.Merge([]*sstable.Meta{t1, t2}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	remaining := ts.GetAll()
	if len(remaining) != 1 {
		t.Fatalf("expected exactly one merged table, got %d", len(remaining))
	}

	val, found, err := remaining[0].Get([]byte("a"), cs)
	if err != nil || !found || string(val) != "new" {
		t.Fatalf("expected later input to win for key a, got %q found=%v err=%v", val, found, err)
	}
	_, found, err = remaining[0].Get([]byte("c"), cs)
	if err != nil || found {
		t.Fatalf("expected tombstoned key c to be dropped, found=%v err=%v", found, err)
	}
}

func TestMergeAllTombstonesDropsWithoutOutput(t *testing.T) {
	ts, cs, _ := newTestTableSet(t)
	m := New(ts, options.CompactionStrategy{Kind: options.SizeTiered, SizeRatio: 1.2, MinThreshold: 1}, cs, logger.Noop())

	t1, err := ts.WriteTable([]memtable.Entry{{Key: []byte("a"), Tombstone: true}})
	if err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	if err := m.Merge([]*sstable.Meta{t1}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(ts.GetAll()) != 0 {
		t.Fatalf("expected all-tombstone merge to leave zero tables, got %d", len(ts.GetAll()))
	}
}
