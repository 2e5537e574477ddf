package engine

import (
	"context"
	"testing"

	"github.com/ignitedb/ignitedb/pkg/logger"
	"github.com/ignitedb/ignitedb/pkg/options"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.MemtableSize = 1 << 20

	e, err := New(context.Background(), &Config{Options: &opts, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestPutGetRoundTrip(t *testing.T) {
	e := testEngine(t)
	if err := e.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	val, found, err := e.Get([]byte("a"))
	if err != nil || !found || string(val) != "1" {
		t.Fatalf("Get(a) = %q, %v, %v", val, found, err)
	}
}

func TestUpdateMasksPriorValue(t *testing.T) {
	e := testEngine(t)
	e.Put([]byte("a"), []byte("1"))
	e.Put([]byte("a"), []byte("2"))

	val, found, err := e.Get([]byte("a"))
	if err != nil || !found || string(val) != "2" {
		t.Fatalf("expected latest value, got %q, %v, %v", val, found, err)
	}
}

func TestDeleteMasksValue(t *testing.T) {
	e := testEngine(t)
	e.Put([]byte("a"), []byte("1"))
	e.Delete([]byte("a"))

	_, found, err := e.Get([]byte("a"))
	if err != nil || found {
		t.Fatalf("expected deleted key to be absent, found=%v err=%v", found, err)
	}
}

func TestScanRangeWithTombstone(t *testing.T) {
	e := testEngine(t)
	e.Put([]byte("a"), []byte("1"))
	e.Put([]byte("b"), []byte("2"))
	e.Put([]byte("c"), []byte("3"))
	e.Delete([]byte("b"))

	got, err := e.Scan([]byte("a"), []byte("d"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 live entries, got %d: %+v", len(got), got)
	}
	for _, e2 := range got {
		if string(e2.Key) == "b" {
			t.Fatalf("tombstoned key b should not appear in scan results")
		}
	}
}

func TestFlushMovesMemtableIntoTable(t *testing.T) {
	e := testEngine(t)
	e.Put([]byte("a"), []byte("1"))
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if e.mt.Len() != 0 {
		t.Fatalf("expected memtable to be empty after flush, got %d entries", e.mt.Len())
	}

	val, found, err := e.Get([]byte("a"))
	if err != nil || !found || string(val) != "1" {
		t.Fatalf("Get after flush = %q, %v, %v", val, found, err)
	}
}

func TestRecoveryAfterRestart(t *testing.T) {
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()

	e1, err := New(context.Background(), &Config{Options: &opts, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e1.Put([]byte("a"), []byte("1"))
	e1.Put([]byte("b"), []byte("2"))
	if err := e1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := New(context.Background(), &Config{Options: &opts, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	val, found, err := e2.Get([]byte("a"))
	if err != nil || !found || string(val) != "1" {
		t.Fatalf("Get(a) after restart = %q, %v, %v", val, found, err)
	}
	val, found, err = e2.Get([]byte("b"))
	if err != nil || !found || string(val) != "2" {
		t.Fatalf("Get(b) after restart = %q, %v, %v", val, found, err)
	}
}

func TestRecoveryAcrossFlushAndNewWrites(t *testing.T) {
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()

	e1, err := New(context.Background(), &Config{Options: &opts, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e1.Put([]byte("a"), []byte("1"))
	if err := e1.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	e1.Put([]byte("b"), []byte("2"))
	if err := e1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := New(context.Background(), &Config{Options: &opts, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	val, found, err := e2.Get([]byte("a"))
	if err != nil || !found || string(val) != "1" {
		t.Fatalf("Get(a) after restart (from table) = %q, %v, %v", val, found, err)
	}
	val, found, err = e2.Get([]byte("b"))
	if err != nil || !found || string(val) != "2" {
		t.Fatalf("Get(b) after restart (from recovered WAL) = %q, %v, %v", val, found, err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	e := testEngine(t)
	if err := e.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := e.Close(); err != ErrEngineClosed {
		t.Fatalf("expected ErrEngineClosed on second Close, got %v", err)
	}
}
