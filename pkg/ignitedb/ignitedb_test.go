package ignitedb

import (
	"context"
	"testing"

	"github.com/ignitedb/ignitedb/pkg/options"
)

func TestInstancePutGetDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	inst, err := NewInstance(ctx, "test", options.WithDataDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(func() { inst.Close(ctx) })

	if err := inst.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := inst.Get(ctx, "a")
	if err != nil || !found || string(val) != "1" {
		t.Fatalf("Get(a) = %q, %v, %v", val, found, err)
	}

	if err := inst.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, err = inst.Get(ctx, "a")
	if err != nil || found {
		t.Fatalf("expected deleted key absent, found=%v err=%v", found, err)
	}
}

func TestInstanceScan(t *testing.T) {
	ctx := context.Background()
	inst, err := NewInstance(ctx, "test", options.WithDataDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(func() { inst.Close(ctx) })

	inst.Set(ctx, "a", []byte("1"))
	inst.Set(ctx, "b", []byte("2"))
	inst.Set(ctx, "c", []byte("3"))

	got, err := inst.Scan(ctx, "a", "c")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in [a,c), got %d", len(got))
	}
}
