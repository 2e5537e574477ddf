// Package bench implements the closed-loop load generator behind `ignitedb bench`: a fixed
// population of keys driven with a configurable read/write mix for a fixed duration, feeding
// every operation's latency into the engine's internal/metrics.Recorder.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ignitedb/ignitedb/pkg/ignitedb"
)

// Config parameterizes a bench run, matching spec.md §6.4's `bench` subcommand flags.
type Config struct {
	Keys     int
	ReadPct  int
	WritePct int
	Duration time.Duration
}

// Validate checks that the read/write split sums to 100, per spec.md §6.4.
func (c Config) Validate() error {
	if c.ReadPct+c.WritePct != 100 {
		return fmt.Errorf("bench: read-pct + write-pct must sum to 100, got %d + %d", c.ReadPct, c.WritePct)
	}
	if c.Keys <= 0 {
		return fmt.Errorf("bench: keys must be positive, got %d", c.Keys)
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	Ops     uint64
	Reads   uint64
	Writes  uint64
	Elapsed time.Duration
}

// Run drives inst with cfg's read/write mix until cfg.Duration elapses, seeding the key
// population with an initial write pass so reads have something to find.
func Run(ctx context.Context, inst *ignitedb.Instance, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	rng := rand.New(rand.NewSource(1))
	value := make([]byte, 128)
	rng.Read(value)

	for i := 0; i < cfg.Keys; i++ {
		key := keyFor(i)
		if err := inst.Set(ctx, key, value); err != nil {
			return Result{}, fmt.Errorf("bench: seeding key %s: %w", key, err)
		}
	}

	var res Result
	start := time.Now()
	deadline := start.Add(cfg.Duration)
	for time.Now().Before(deadline) {
		key := keyFor(rng.Intn(cfg.Keys))
		if rng.Intn(100) < cfg.ReadPct {
			if _, _, err := inst.Get(ctx, key); err != nil {
				return res, fmt.Errorf("bench: read %s: %w", key, err)
			}
			res.Reads++
		} else {
			if err := inst.Set(ctx, key, value); err != nil {
				return res, fmt.Errorf("bench: write %s: %w", key, err)
			}
			res.Writes++
		}
		res.Ops++
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func keyFor(i int) string {
	return fmt.Sprintf("bench-key-%08d", i)
}
