package sstable

import (
	"os"
	"sync/atomic"
	"testing"

	"github.com/ignitedb/ignitedb/internal/ioctx"
	"github.com/ignitedb/ignitedb/internal/memtable"
	"github.com/ignitedb/ignitedb/pkg/checksum"
)

func testIO(t *testing.T) ioctx.Context {
	t.Helper()
	io, err := ioctx.New(ioctx.Config{QueueDepth: 8})
	if err != nil {
		t.Fatalf("ioctx.New: %v", err)
	}
	t.Cleanup(func() { io.Close() })
	return io
}

// countingContext wraps an ioctx.Context and tallies Read calls, so a test can confirm a
// Bloom-negative Get never reaches the block-read path - spec.md §8's "a Get whose Bloom
// filter returns false never reads the table's data blocks" testable property.
type countingContext struct {
	ioctx.Context
	reads atomic.Uint64
}

func (c *countingContext) Read(fd *os.File, offset int64, buf []byte) (int, error) {
	c.reads.Add(1)
	return c.Context.Read(fd, offset, buf)
}

func TestWriteReadPointLookup(t *testing.T) {
	dir := t.TempDir()
	cs := checksum.MustNew(checksum.CRC32)
	io := testIO(t)

	entries := []memtable.Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Tombstone: true},
	}
	meta, err := Write(dir, 1, entries, cs, io)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	val, found, err := meta.Get([]byte("a"), cs)
	if err != nil || !found || string(val) != "1" {
		t.Fatalf("Get(a) = %q, %v, %v", val, found, err)
	}

	val, found, err = meta.Get([]byte("c"), cs)
	if err != nil || !found || val != nil {
		t.Fatalf("Get(c) expected tombstone, got %q, %v, %v", val, found, err)
	}

	_, found, err = meta.Get([]byte("z"), cs)
	if err != nil || found {
		t.Fatalf("Get(z) expected not found, got found=%v err=%v", found, err)
	}
}

func TestScanRangeExcludesTombstones(t *testing.T) {
	dir := t.TempDir()
	cs := checksum.MustNew(checksum.CRC32)
	io := testIO(t)

	entries := []memtable.Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Tombstone: true},
		{Key: []byte("c"), Value: []byte("3")},
	}
	meta, err := Write(dir, 1, entries, cs, io)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := meta.Scan([]byte("a"), []byte("c"), cs)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 non-tombstone entries, got %d: %+v", len(got), got)
	}
}

func TestOpenRoundTripsMetaAfterWrite(t *testing.T) {
	dir := t.TempDir()
	cs := checksum.MustNew(checksum.CRC32)
	io := testIO(t)

	entries := []memtable.Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("z"), Value: []byte("2")},
	}
	written, err := Write(dir, 5, entries, cs, io)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	reopened, err := Open(5, written.Path, io)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(reopened.MinKey) != "a" || string(reopened.MaxKey) != "z" {
		t.Fatalf("key range mismatch: min=%q max=%q", reopened.MinKey, reopened.MaxKey)
	}
	if reopened.NumEntries != 2 {
		t.Fatalf("expected 2 entries, got %d", reopened.NumEntries)
	}

	val, found, err := reopened.Get([]byte("z"), cs)
	if err != nil || !found || string(val) != "2" {
		t.Fatalf("Get(z) after reopen = %q, %v, %v", val, found, err)
	}
}

func TestTableSetGetOverlapping(t *testing.T) {
	dir := t.TempDir()
	cs := checksum.MustNew(checksum.CRC32)
	io := testIO(t)

	ts, err := Open(t.TempDir(), cs, io)
	if err != nil {
		t.Fatalf("Open table set: %v", err)
	}
	_ = dir

	m1, err := Write(ts.Dir(), 1, []memtable.Entry{{Key: []byte("a"), Value: []byte("1")}, {Key: []byte("c"), Value: []byte("3")}}, cs, io)
	if err != nil {
		t.Fatalf("Write m1: %v", err)
	}
	m2, err := Write(ts.Dir(), 2, []memtable.Entry{{Key: []byte("m"), Value: []byte("1")}, {Key: []byte("z"), Value: []byte("3")}}, cs, io)
	if err != nil {
		t.Fatalf("Write m2: %v", err)
	}
	ts.Add(m1)
	ts.Add(m2)

	overlap := ts.GetOverlapping([]byte("b"), []byte("n"))
	if len(overlap) != 2 {
		t.Fatalf("expected both tables to overlap [b, n], got %d", len(overlap))
	}

	noOverlap := ts.GetOverlapping([]byte("d"), []byte("l"))
	if len(noOverlap) != 0 {
		t.Fatalf("expected no overlap, got %d", len(noOverlap))
	}
}

func TestBloomNegativeSkipsBlockRead(t *testing.T) {
	dir := t.TempDir()
	cs := checksum.MustNew(checksum.CRC32)
	cc := &countingContext{Context: testIO(t)}

	entries := []memtable.Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}
	meta, err := Write(dir, 1, entries, cs, cc)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	cc.reads.Store(0)

	// "zzz" was never added to the filter, so MayContain should report it absent without
	// this Get ever calling readBlock.
	if meta.Bloom.MayContain([]byte("zzz")) {
		t.Skip("chosen probe key collides in the Bloom filter; not a useful counter-example")
	}

	val, found, err := meta.Get([]byte("zzz"), cs)
	if err != nil || found || val != nil {
		t.Fatalf("Get(zzz) = %q, %v, %v; want not found", val, found, err)
	}
	if n := cc.reads.Load(); n != 0 {
		t.Fatalf("Get on a Bloom-negative key issued %d reads, want 0", n)
	}
}
