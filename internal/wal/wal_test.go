package wal

import (
	"context"
	"os"
	"testing"

	"github.com/ignitedb/ignitedb/internal/codec"
	"github.com/ignitedb/ignitedb/internal/ioctx"
	"github.com/ignitedb/ignitedb/pkg/checksum"
	"github.com/ignitedb/ignitedb/pkg/logger"
	"github.com/ignitedb/ignitedb/pkg/options"
)

// corruptPageAt flips the low byte of the stored checksum at the given page offset, leaving
// every other field (and therefore the record's apparent shape) intact so decode succeeds
// structurally but fails checksum verification.
func corruptPageAt(t *testing.T, path string, offset int64, _ checksum.Checksummer) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("opening %s to corrupt: %v", path, err)
	}
	defer f.Close()

	b := make([]byte, 1)
	if _, err := f.ReadAt(b, offset); err != nil {
		t.Fatalf("reading byte to corrupt: %v", err)
	}
	b[0] ^= 0xFF
	if _, err := f.WriteAt(b, offset); err != nil {
		t.Fatalf("writing corrupted byte: %v", err)
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.WalSegmentSize = 3 * codec.PageSize

	io, err := ioctx.New(ioctx.Config{QueueDepth: 8})
	if err != nil {
		t.Fatalf("ioctx.New: %v", err)
	}
	t.Cleanup(func() { io.Close() })

	return Config{Options: &opts, Logger: logger.Noop(), IO: io}
}

func putRecord(seq uint64, key, value string) *codec.LogRecord {
	return &codec.LogRecord{
		TimestampUs: seq,
		Sequence:    seq,
		Op:          codec.OpPut,
		Key:         []byte(key),
		Value:       []byte(value),
	}
}

func TestAppendSyncRecoverRoundTrip(t *testing.T) {
	cfg := testConfig(t)

	l, records, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty recovery set on first open, got %d", len(records))
	}

	if _, err := l.Append(putRecord(1, "a", "1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append(putRecord(2, "b", "2")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l2, recovered, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	if len(recovered) != 2 {
		t.Fatalf("expected 2 recovered records, got %d", len(recovered))
	}
	if string(recovered[0].Key) != "a" || string(recovered[1].Key) != "b" {
		t.Fatalf("recovered records out of order: %+v", recovered)
	}
}

func TestRotationAdvancesSegmentID(t *testing.T) {
	cfg := testConfig(t)
	l, _, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	bigValue := make([]byte, codec.PageSize)
	for i := 0; i < 5; i++ {
		if _, err := l.Append(putRecord(uint64(i), "k", string(bigValue))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if l.nextID <= 2 {
		t.Fatalf("expected at least one rotation, nextID = %d", l.nextID)
	}
}

func TestRecoverySkipsCorruptedPage(t *testing.T) {
	cfg := testConfig(t)
	l, _, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cs := checksum.MustNew(cfg.Options.ChecksumAlgorithm)
	if _, err := l.Append(putRecord(1, "good-before", "v")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// Hand-corrupt a page's worth of zero bytes in between by appending a well-formed
	// record, then flipping a byte of its stored checksum after sync.
	if _, err := l.Append(putRecord(2, "corrupt-me", "v")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := l.Append(putRecord(3, "good-after", "v")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := l.current.path
	corruptPageAt(t, path, codec.PageSize, cs)

	_, recovered, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(recovered) != 2 {
		t.Fatalf("expected 2 surviving records after corruption, got %d", len(recovered))
	}
	if string(recovered[0].Key) != "good-before" || string(recovered[1].Key) != "good-after" {
		t.Fatalf("unexpected surviving records: %+v", recovered)
	}
}
