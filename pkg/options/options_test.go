package options

import (
	"path/filepath"
	"testing"

	"github.com/ignitedb/ignitedb/pkg/checksum"
)

func TestDefaultsValidate(t *testing.T) {
	opts := NewDefaultOptions()
	opts.DataDir = t.TempDir()
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options failed validation: %v", err)
	}
}

func TestValidateRejectsOutOfRangeWalSegmentSize(t *testing.T) {
	opts := NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.WalSegmentSize = 10
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected validation error for tiny walSegmentSize")
	}
}

func TestValidateRejectsBadCompactionStrategy(t *testing.T) {
	opts := NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.CompactionStrategy = CompactionStrategy{Kind: SizeTiered, SizeRatio: 0.5, MinThreshold: 4}
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected validation error for sizeRatio < 1.0")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	opts := NewDefaultOptions()
	opts.DataDir = dir
	opts.ChecksumAlgorithm = checksum.XXH64

	if err := Save(&opts); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ChecksumAlgorithm != checksum.XXH64 {
		t.Fatalf("checksum algorithm did not round-trip: got %v", loaded.ChecksumAlgorithm)
	}
	if loaded.CompactionStrategy.Kind != SizeTiered || loaded.CompactionStrategy.MinThreshold != DefaultMinThreshold {
		t.Fatalf("compaction strategy did not round-trip: %+v", loaded.CompactionStrategy)
	}
}

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/data")
	want := filepath.Join("/data", "config.json")
	if got != want {
		t.Fatalf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestWithSizeTieredCompaction(t *testing.T) {
	opts := NewDefaultOptions()
	WithSizeTieredCompaction(2.0, 6)(&opts)
	if opts.CompactionStrategy.SizeRatio != 2.0 || opts.CompactionStrategy.MinThreshold != 6 {
		t.Fatalf("WithSizeTieredCompaction did not apply: %+v", opts.CompactionStrategy)
	}
}
