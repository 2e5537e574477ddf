package ioctx

import (
	"os"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "data"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open temp file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWorkerPoolWriteReadRoundTrip(t *testing.T) {
	ctx := newWorkerPoolContext(4)
	defer ctx.Close()

	f := openTemp(t)
	payload := []byte("hello ignitedb")
	if _, err := ctx.Write(f, 0, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ctx.Fdatasync(f); err != nil {
		t.Fatalf("Fdatasync: %v", err)
	}

	got := make([]byte, len(payload))
	if _, err := ctx.Read(f, 0, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch: got %q want %q", got, payload)
	}
}

func TestWorkerPoolBatchWrite(t *testing.T) {
	ctx := newWorkerPoolContext(4)
	defer ctx.Close()

	f := openTemp(t)
	ops := []Op{
		{Tag: "a", Offset: 0, Buf: []byte("aaaa")},
		{Tag: "b", Offset: 4096, Buf: []byte("bbbb")},
		{Tag: "c", Offset: 8192, Buf: []byte("cccc")},
	}
	results := ctx.BatchWrite(f, ops)
	if len(results) != len(ops) {
		t.Fatalf("expected %d results, got %d", len(ops), len(results))
	}
	seen := map[any]bool{}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected batch write error for tag %v: %v", r.Tag, r.Err)
		}
		if r.N != 4 {
			t.Fatalf("tag %v: wrote %d bytes, want 4", r.Tag, r.N)
		}
		seen[r.Tag] = true
	}
	for _, op := range ops {
		if !seen[op.Tag] {
			t.Fatalf("missing result for tag %v", op.Tag)
		}
	}
}

func TestWorkerPoolReadPastEOF(t *testing.T) {
	ctx := newWorkerPoolContext(1)
	defer ctx.Close()

	f := openTemp(t)
	buf := make([]byte, 16)
	n, err := ctx.Read(f, 0, buf)
	if err != nil {
		t.Fatalf("Read on empty file returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes read from empty file, got %d", n)
	}
}

func TestNewFallsBackWithoutSQPoll(t *testing.T) {
	c, err := New(Config{QueueDepth: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*workerPoolContext); !ok {
		t.Fatalf("expected worker pool context when EnableSQPoll is false, got %T", c)
	}
}
