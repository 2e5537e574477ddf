package options

import "github.com/ignitedb/ignitedb/pkg/checksum"

const (
	// DefaultDataDir is used when no data directory is specified.
	DefaultDataDir = "/var/lib/ignitedb"

	// DefaultWalSegmentSize is 128 MiB, per spec.md §6.2.
	DefaultWalSegmentSize uint64 = 128 << 20

	// DefaultMemtableSize is 64 MiB, per spec.md §6.2.
	DefaultMemtableSize uint64 = 64 << 20

	// DefaultQueueDepth is the async I/O context's default batching depth.
	DefaultQueueDepth uint32 = 256

	// DefaultGroupCommitIntervalMS is the default GroupCommitIntervalMS.
	DefaultGroupCommitIntervalMS uint64 = 10

	// DefaultSizeRatio and DefaultMinThreshold are size-tiered compaction's defaults.
	DefaultSizeRatio     = 1.2
	DefaultMinThreshold  = 4
)

// defaultOptions holds the baseline configuration every store starts from before
// functional options or a loaded config.json override it.
var defaultOptions = Options{
	DataDir:        DefaultDataDir,
	WalSegmentSize: DefaultWalSegmentSize,
	MemtableSize:   DefaultMemtableSize,
	QueueDepth:     DefaultQueueDepth,
	CompactionStrategy: CompactionStrategy{
		Kind:         SizeTiered,
		SizeRatio:    DefaultSizeRatio,
		MinThreshold: DefaultMinThreshold,
	},
	EnableSQPoll:          false,
	ChecksumAlgorithm:     checksum.CRC32,
	GroupCommitIntervalMS: DefaultGroupCommitIntervalMS,
}

// NewDefaultOptions returns a copy of the baseline configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
