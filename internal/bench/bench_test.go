package bench

import (
	"context"
	"testing"
	"time"

	"github.com/ignitedb/ignitedb/pkg/ignitedb"
	"github.com/ignitedb/ignitedb/pkg/options"
)

func TestRunProducesOpsWithinDuration(t *testing.T) {
	ctx := context.Background()
	inst, err := ignitedb.NewInstance(ctx, "test", options.WithDataDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	defer inst.Close(ctx)

	res, err := Run(ctx, inst, Config{Keys: 16, ReadPct: 70, WritePct: 30, Duration: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Ops == 0 {
		t.Fatalf("expected at least one operation, got 0")
	}
	if res.Reads+res.Writes != res.Ops {
		t.Fatalf("reads(%d) + writes(%d) != ops(%d)", res.Reads, res.Writes, res.Ops)
	}
}

func TestValidateRejectsBadSplit(t *testing.T) {
	cfg := Config{Keys: 10, ReadPct: 60, WritePct: 30, Duration: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for read+write != 100")
	}
}
