// Package options defines the configuration surface for an ignitedb store: directory
// layout, WAL segment sizing, memtable sizing, async I/O queue depth, the compaction
// strategy, the checksum algorithm, and group-commit batching. Options round-trip to
// "config.json" under the store's data directory (see Load and Save); Load range-checks
// the values through Validate but does not compare them with the options the existing
// data was written under.
package options

import (
	"strings"
	"time"

	"github.com/ignitedb/ignitedb/pkg/checksum"
	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// CompactionKind selects the merger's selection strategy.
type CompactionKind string

const (
	// SizeTiered groups tables of comparable size and rewrites the first qualifying group
	// into one table, as specified by C8.
	SizeTiered CompactionKind = "size_tiered"

	// Leveled is accepted and validated but never selects anything to compact; it exists so
	// config.json can name the strategy without the store rejecting it (spec.md §4.8, §9).
	Leveled CompactionKind = "leveled"
)

// CompactionStrategy is config.json's compaction_strategy tagged union. Only the fields
// relevant to Kind are meaningful; the others are carried for round-tripping and future use.
type CompactionStrategy struct {
	Kind CompactionKind `json:"kind"`

	// SizeRatio is the size-tiered group-boundary multiplier; a table joins the current
	// group unless its size exceeds SizeRatio times the group's first (smallest) member.
	SizeRatio float64 `json:"sizeRatio,omitempty"`

	// MinThreshold is the minimum group size size-tiered compaction will act on.
	MinThreshold int `json:"minThreshold,omitempty"`

	// LevelSizeMultiplier and MaxLevels are accepted for the (unimplemented) leveled
	// strategy.
	LevelSizeMultiplier int `json:"levelSizeMultiplier,omitempty"`
	MaxLevels           int `json:"maxLevels,omitempty"`
}

// Options holds every configuration parameter that controls an ignitedb store's on-disk
// layout and runtime behavior.
type Options struct {
	// DataDir is the base path under which "wal/" and "sst/" live, plus config.json.
	DataDir string `json:"dataDir"`

	// WalSegmentSize bounds how large a single WAL segment file grows before rotation.
	WalSegmentSize uint64 `json:"walSegmentSize"`

	// MemtableSize bounds the in-memory sorted buffer's estimated footprint before it is
	// flushed to a new table.
	MemtableSize uint64 `json:"memtableSize"`

	// QueueDepth bounds how many in-flight I/O operations the async I/O context batches at
	// once, and (when SQPoll is enabled) the io_uring ring's submission queue size.
	QueueDepth uint32 `json:"queueDepth"`

	// CompactionStrategy selects and parameterizes the background merger.
	CompactionStrategy CompactionStrategy `json:"compactionStrategy"`

	// EnableSQPoll requests that the async I/O context use kernel-side submission-queue
	// polling when available, trading idle CPU for lower per-call latency at low queue
	// depth. Purely a performance knob; no observable semantic change.
	EnableSQPoll bool `json:"enableSqpoll"`

	// ChecksumAlgorithm selects CRC32 or XXH64 for every log and table record in this store.
	// The algorithm is not recorded in the WAL or table files and recovery does not check
	// it; after a change, records written under the old algorithm fail checksum verification
	// and are handled as corrupted records.
	ChecksumAlgorithm checksum.Algorithm `json:"checksumAlgorithm"`

	// GroupCommitIntervalMS is informational: it is validated and persisted in config.json,
	// but no component reads it. The log has no background flusher; its buffer is flushed
	// only by Sync and by segment rotation.
	GroupCommitIntervalMS uint64 `json:"groupCommitIntervalMs"`
}

const (
	MinWalSegmentSize uint64 = 1 << 20   // 1 MiB
	MaxWalSegmentSize uint64 = 1 << 30   // 1 GiB
	MinMemtableSize   uint64 = 1 << 20   // 1 MiB
	MaxMemtableSize   uint64 = 512 << 20 // 512 MiB
	MinQueueDepth     uint32 = 1
	MaxQueueDepth     uint32 = 4096
	MinGroupCommitMS  uint64 = 1
	MaxGroupCommitMS  uint64 = 1000
)

// Validate checks every field against the bounds in spec.md §6.2, returning a ConfigError
// naming the first offending field.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.DataDir) == "" {
		return ignerrors.NewConfigError("dataDir", "dataDir must not be empty")
	}
	if o.WalSegmentSize < MinWalSegmentSize || o.WalSegmentSize > MaxWalSegmentSize {
		return ignerrors.NewConfigError("walSegmentSize", "walSegmentSize must be between 1 MiB and 1 GiB").
			WithDetail("value", o.WalSegmentSize)
	}
	if o.MemtableSize < MinMemtableSize || o.MemtableSize > MaxMemtableSize {
		return ignerrors.NewConfigError("memtableSize", "memtableSize must be between 1 MiB and 512 MiB").
			WithDetail("value", o.MemtableSize)
	}
	if o.QueueDepth < MinQueueDepth || o.QueueDepth > MaxQueueDepth {
		return ignerrors.NewConfigError("queueDepth", "queueDepth must be between 1 and 4096").
			WithDetail("value", o.QueueDepth)
	}
	if o.GroupCommitIntervalMS < MinGroupCommitMS || o.GroupCommitIntervalMS > MaxGroupCommitMS {
		return ignerrors.NewConfigError("groupCommitIntervalMs", "groupCommitIntervalMs must be between 1 and 1000").
			WithDetail("value", o.GroupCommitIntervalMS)
	}
	if err := o.CompactionStrategy.validate(); err != nil {
		return err
	}
	if o.ChecksumAlgorithm != checksum.CRC32 && o.ChecksumAlgorithm != checksum.XXH64 {
		return ignerrors.NewConfigError("checksumAlgorithm", "checksumAlgorithm must be CRC32 or XXH64").
			WithDetail("value", o.ChecksumAlgorithm)
	}
	return nil
}

func (cs *CompactionStrategy) validate() error {
	switch cs.Kind {
	case SizeTiered:
		if cs.SizeRatio < 1.0 {
			return ignerrors.NewConfigError("compactionStrategy.sizeRatio", "sizeRatio must be >= 1.0").
				WithDetail("value", cs.SizeRatio)
		}
		if cs.MinThreshold < 2 {
			return ignerrors.NewConfigError("compactionStrategy.minThreshold", "minThreshold must be >= 2").
				WithDetail("value", cs.MinThreshold)
		}
	case Leveled:
		if cs.LevelSizeMultiplier < 2 {
			return ignerrors.NewConfigError("compactionStrategy.levelSizeMultiplier", "levelSizeMultiplier must be >= 2").
				WithDetail("value", cs.LevelSizeMultiplier)
		}
		if cs.MaxLevels < 2 {
			return ignerrors.NewConfigError("compactionStrategy.maxLevels", "maxLevels must be >= 2").
				WithDetail("value", cs.MaxLevels)
		}
	default:
		return ignerrors.NewConfigError("compactionStrategy.kind", "unknown compaction strategy kind").
			WithDetail("value", cs.Kind)
	}
	return nil
}

// OptionFunc mutates an Options in place; functional options compose on top of
// NewDefaultOptions the way the teacher's With* constructors do.
type OptionFunc func(*Options)

// WithDataDir overrides the store's base directory.
func WithDataDir(dir string) OptionFunc {
	return func(o *Options) {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			o.DataDir = dir
		}
	}
}

// WithWalSegmentSize overrides the WAL segment rotation bound.
func WithWalSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinWalSegmentSize && size <= MaxWalSegmentSize {
			o.WalSegmentSize = size
		}
	}
}

// WithMemtableSize overrides the memtable flush bound.
func WithMemtableSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinMemtableSize && size <= MaxMemtableSize {
			o.MemtableSize = size
		}
	}
}

// WithQueueDepth overrides the async I/O context's batching depth.
func WithQueueDepth(depth uint32) OptionFunc {
	return func(o *Options) {
		if depth >= MinQueueDepth && depth <= MaxQueueDepth {
			o.QueueDepth = depth
		}
	}
}

// WithSQPoll toggles kernel-side submission-queue polling.
func WithSQPoll(enabled bool) OptionFunc {
	return func(o *Options) { o.EnableSQPoll = enabled }
}

// WithChecksumAlgorithm overrides the checksum algorithm used for every record.
func WithChecksumAlgorithm(algo checksum.Algorithm) OptionFunc {
	return func(o *Options) {
		if algo == checksum.CRC32 || algo == checksum.XXH64 {
			o.ChecksumAlgorithm = algo
		}
	}
}

// WithGroupCommitInterval overrides GroupCommitIntervalMS.
func WithGroupCommitInterval(d time.Duration) OptionFunc {
	return func(o *Options) {
		ms := uint64(d / time.Millisecond)
		if ms >= MinGroupCommitMS && ms <= MaxGroupCommitMS {
			o.GroupCommitIntervalMS = ms
		}
	}
}

// WithSizeTieredCompaction selects size-tiered compaction with the given parameters.
func WithSizeTieredCompaction(sizeRatio float64, minThreshold int) OptionFunc {
	return func(o *Options) {
		o.CompactionStrategy = CompactionStrategy{Kind: SizeTiered, SizeRatio: sizeRatio, MinThreshold: minThreshold}
	}
}

// WithLeveledCompaction selects (inert) leveled compaction with the given parameters.
func WithLeveledCompaction(levelSizeMultiplier, maxLevels int) OptionFunc {
	return func(o *Options) {
		o.CompactionStrategy = CompactionStrategy{
			Kind: Leveled, LevelSizeMultiplier: levelSizeMultiplier, MaxLevels: maxLevels,
		}
	}
}

// GroupCommitInterval returns GroupCommitIntervalMS as a time.Duration.
func (o *Options) GroupCommitInterval() time.Duration {
	return time.Duration(o.GroupCommitIntervalMS) * time.Millisecond
}
