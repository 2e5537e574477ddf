// Package metrics implements the engine's observability surface (ambient stack expansion):
// latency percentiles via github.com/HdrHistogram/hdrhistogram-go, the library the rest of
// the retrieved pack's storage engines use for this purpose, plus mutex-guarded counters for
// the event tallies spec.md's failure-semantics section implies an operator would want
// (fsync calls, flush/merge counts, bloom-filter negative lookups).
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// histogramMin/Max/SigFigs bound the latency values Recorder tracks: microsecond
// granularity up to 10 seconds, with 3 significant figures of precision - HdrHistogram's
// own recommended default.
const (
	histogramMinValue        = 1
	histogramMaxValue        = 10_000_000
	histogramSignificantFigs = 3
)

// Recorder aggregates per-operation latency histograms and simple event counters. A single
// Recorder is shared across all callers of an Engine; every method is safe for concurrent
// use.
type Recorder struct {
	mu         sync.Mutex
	writeLat   *hdrhistogram.Histogram
	readLat    *hdrhistogram.Histogram
	flushes    uint64
	merges     uint64
	bloomHits  uint64
	bloomMiss  uint64
	fdatasyncs uint64
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		writeLat: hdrhistogram.New(histogramMinValue, histogramMaxValue, histogramSignificantFigs),
		readLat:  hdrhistogram.New(histogramMinValue, histogramMaxValue, histogramSignificantFigs),
	}
}

// RecordWrite records a Put/Delete's end-to-end latency, including its fdatasync wait.
func (r *Recorder) RecordWrite(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLat.RecordValue(d.Microseconds())
}

// RecordRead records a Get's end-to-end latency.
func (r *Recorder) RecordRead(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readLat.RecordValue(d.Microseconds())
}

// RecordFlush increments the flush counter.
func (r *Recorder) RecordFlush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
}

// RecordMerge increments the compaction-merge counter. Nothing in this module calls it, so
// the merge count in a Snapshot stays zero.
func (r *Recorder) RecordMerge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merges++
}

// RecordBloomHit increments the count of table lookups whose Bloom filter reported possible
// membership (regardless of whether the block read that followed found the key).
func (r *Recorder) RecordBloomHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bloomHits++
}

// RecordBloomNegative increments the count of table lookups a Bloom filter definitively
// ruled out, avoiding a block read entirely.
func (r *Recorder) RecordBloomNegative() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bloomMiss++
}

// RecordFdatasync increments the fdatasync call counter.
func (r *Recorder) RecordFdatasync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fdatasyncs++
}

// Snapshot is a point-in-time copy of every tracked metric, suitable for JSON encoding by
// the CLI's metrics subcommand.
type Snapshot struct {
	WriteLatencyP50Us  int64  `json:"write_latency_p50_us"`
	WriteLatencyP99Us  int64  `json:"write_latency_p99_us"`
	ReadLatencyP50Us   int64  `json:"read_latency_p50_us"`
	ReadLatencyP99Us   int64  `json:"read_latency_p99_us"`
	Flushes            uint64 `json:"flushes"`
	Merges             uint64 `json:"merges"`
	BloomHits          uint64 `json:"bloom_hits"`
	BloomNegatives     uint64 `json:"bloom_negatives"`
	FdatasyncCalls     uint64 `json:"fdatasync_calls"`
}

// Snapshot returns a consistent copy of every metric tracked so far.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		WriteLatencyP50Us: r.writeLat.ValueAtQuantile(50),
		WriteLatencyP99Us: r.writeLat.ValueAtQuantile(99),
		ReadLatencyP50Us:  r.readLat.ValueAtQuantile(50),
		ReadLatencyP99Us:  r.readLat.ValueAtQuantile(99),
		Flushes:           r.flushes,
		Merges:            r.merges,
		BloomHits:         r.bloomHits,
		BloomNegatives:    r.bloomMiss,
		FdatasyncCalls:    r.fdatasyncs,
	}
}
