// Package sstable implements the sorted table and table set (C7): byte-exact table file
// layout, the write/point-read/range-scan procedures of spec.md §4.7, and the TableSet that
// tracks every live table in creation order.
package sstable

import (
	"encoding/binary"

	"github.com/ignitedb/ignitedb/internal/bloom"
	"github.com/ignitedb/ignitedb/internal/ioctx"
	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

const (
	magic       uint32 = 0x53535446 // "SSTF"
	formatVersion uint32 = 1

	headerSize = 64

	// MaxBlockSize bounds a single data block, per spec.md §4.7.1.
	MaxBlockSize = 64 * 1024
	// MaxBlockSizeBound is the hard corruption threshold enforced at read time (§4.7.3).
	MaxBlockSizeBound = 4 * 1024 * 1024
	// MaxIndexRegionSize is the hard corruption threshold for the index region (§4.7.3).
	MaxIndexRegionSize = 10 * 1024 * 1024
)

// header is the fixed 64-byte table prefix.
type header struct {
	numEntries  uint64
	indexOffset uint64
	bloomOffset uint64
	minKeyLen   uint32
	maxKeyLen   uint32
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], h.numEntries)
	binary.LittleEndian.PutUint64(buf[16:24], h.indexOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.bloomOffset)
	binary.LittleEndian.PutUint32(buf[32:36], h.minKeyLen)
	binary.LittleEndian.PutUint32(buf[36:40], h.maxKeyLen)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "table header truncated")
	}
	gotMagic := binary.LittleEndian.Uint32(buf[0:4])
	if gotMagic != magic {
		return header{}, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "bad table magic")
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != formatVersion {
		return header{}, ignerrors.NewSerializationError("unsupported table format version")
	}
	return header{
		numEntries:  binary.LittleEndian.Uint64(buf[8:16]),
		indexOffset: binary.LittleEndian.Uint64(buf[16:24]),
		bloomOffset: binary.LittleEndian.Uint64(buf[24:32]),
		minKeyLen:   binary.LittleEndian.Uint32(buf[32:36]),
		maxKeyLen:   binary.LittleEndian.Uint32(buf[36:40]),
	}, nil
}

// indexEntry locates one data block: its first key (for binary/linear search) and its byte
// range within the table file.
type indexEntry struct {
	firstKey  []byte
	offset    uint64
	blockSize uint32
}

func encodeIndexEntry(e indexEntry) []byte {
	buf := make([]byte, 4+len(e.firstKey)+8+4)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.firstKey)))
	off += 4
	off += copy(buf[off:], e.firstKey)
	binary.LittleEndian.PutUint64(buf[off:], e.offset)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], e.blockSize)
	return buf
}

func decodeIndexEntry(buf []byte) (indexEntry, int, error) {
	if len(buf) < 4 {
		return indexEntry{}, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "index entry truncated")
	}
	keyLen := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	need := off + int(keyLen) + 8 + 4
	if len(buf) < need {
		return indexEntry{}, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "index entry truncated")
	}
	key := make([]byte, keyLen)
	copy(key, buf[off:off+int(keyLen)])
	off += int(keyLen)
	blockOffset := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	blockSize := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	return indexEntry{firstKey: key, offset: blockOffset, blockSize: blockSize}, off, nil
}

// Meta describes one on-disk table: identity, key range, and enough metadata (bloom
// filter, block index) to serve reads without loading the table's contents into memory.
type Meta struct {
	ID          uint64
	Path        string
	MinKey      []byte
	MaxKey      []byte
	NumEntries  uint64
	IndexOffset uint64
	BloomOffset uint64
	Bloom       *bloom.Filter
	index       []indexEntry
	io          ioctx.Context
}
