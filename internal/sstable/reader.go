package sstable

import (
	"fmt"
	"os"

	"github.com/ignitedb/ignitedb/internal/bloom"
	"github.com/ignitedb/ignitedb/internal/codec"
	"github.com/ignitedb/ignitedb/internal/ioctx"
	"github.com/ignitedb/ignitedb/pkg/checksum"
	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// Entry is a single (key, value-or-tombstone) pair returned by Get/Scan.
type Entry struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

// Open parses a table file's header, key range, and Bloom filter into a Meta, without
// reading its data blocks - used by TableSet.loadExisting at startup (spec.md §4.7.5). Every read is routed through
// io, the same ioctx.Context the write path (writer.go) and the engine's other table reads
// (readBlock, below) use.
func Open(id uint64, path string, io ioctx.Context) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: opening %s: %w", path, err)
	}
	defer f.Close()

	prefix := make([]byte, headerSize)
	if _, err := io.Read(f, 0, prefix); err != nil {
		return nil, fmt.Errorf("sstable: reading header of %s: %w", path, err)
	}
	h, err := decodeHeader(prefix)
	if err != nil {
		return nil, err
	}

	keysBuf := make([]byte, h.minKeyLen+h.maxKeyLen)
	if _, err := io.Read(f, headerSize, keysBuf); err != nil {
		return nil, fmt.Errorf("sstable: reading key range of %s: %w", path, err)
	}
	minKey := append([]byte{}, keysBuf[:h.minKeyLen]...)
	maxKey := append([]byte{}, keysBuf[h.minKeyLen:]...)

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	indexRegionSize := info.Size() - int64(h.indexOffset)
	if indexRegionSize < 0 || indexRegionSize > MaxIndexRegionSize {
		return nil, ignerrors.NewCorruptedDataError(nil, path, int64(h.indexOffset)).WithDetail("reason", "index region size out of bounds")
	}
	indexBuf := make([]byte, indexRegionSize)
	if _, err := io.Read(f, int64(h.indexOffset), indexBuf); err != nil {
		return nil, fmt.Errorf("sstable: reading index of %s: %w", path, err)
	}

	var entries []indexEntry
	cursor := 0
	for cursor < len(indexBuf) {
		e, n, err := decodeIndexEntry(indexBuf[cursor:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		cursor += n
	}

	bloomLen := int64(h.indexOffset) - int64(h.bloomOffset)
	if bloomLen < 0 {
		return nil, ignerrors.NewCorruptedDataError(nil, path, int64(h.bloomOffset)).WithDetail("reason", "negative bloom region")
	}
	bloomBuf := make([]byte, bloomLen)
	if _, err := io.Read(f, int64(h.bloomOffset), bloomBuf); err != nil {
		return nil, fmt.Errorf("sstable: reading bloom filter of %s: %w", path, err)
	}
	filter, err := bloom.Decode(bloomBuf)
	if err != nil {
		return nil, err
	}

	return &Meta{
		ID:          id,
		Path:        path,
		MinKey:      minKey,
		MaxKey:      maxKey,
		NumEntries:  h.numEntries,
		IndexOffset: h.indexOffset,
		BloomOffset: h.bloomOffset,
		Bloom:       filter,
		index:       entries,
		io:          io,
	}, nil
}

// Get implements the point-read procedure of spec.md §4.7.3. A returned (nil, false, nil)
// means the key is definitely absent from this table; (value, true, nil) with value == nil
// means the table holds a tombstone for key.
func (m *Meta) Get(key []byte, cs checksum.Checksummer) (value []byte, found bool, err error) {
	if !m.Bloom.MayContain(key) {
		return nil, false, nil
	}
	if less(key, m.MinKey) || less(m.MaxKey, key) {
		return nil, false, nil
	}

	idx := -1
	for i, e := range m.index {
		if !less(key, e.firstKey) {
			idx = i
		} else {
			break
		}
	}
	if idx == -1 {
		return nil, false, nil
	}

	block, err := m.readBlock(m.index[idx])
	if err != nil {
		return nil, false, err
	}

	cursor := 0
	for cursor < len(block) {
		rec, n, err := codec.DecodeTableRecord(block[cursor:], cs)
		if err != nil {
			// A decode failure mid-block is treated as the end of the block, not fatal -
			// per spec.md §4.7.3 step 5.
			break
		}
		cursor += n
		if string(rec.Key) == string(key) {
			if rec.Tombstone {
				return nil, true, nil
			}
			return rec.Value, true, nil
		}
	}
	return nil, false, nil
}

// Scan implements the range-scan procedure of spec.md §4.7.4 over the inclusive-inclusive
// range [start, end]; tombstones are never emitted.
func (m *Meta) Scan(start, end []byte, cs checksum.Checksummer) ([]Entry, error) {
	var out []Entry
	for _, ie := range m.index {
		if len(end) > 0 && less(end, ie.firstKey) {
			break
		}
		block, err := m.readBlock(ie)
		if err != nil {
			return nil, err
		}

		cursor := 0
		done := false
		for cursor < len(block) {
			rec, n, err := codec.DecodeTableRecord(block[cursor:], cs)
			if err != nil {
				break
			}
			cursor += n

			if len(start) > 0 && less(rec.Key, start) {
				continue
			}
			if len(end) > 0 && less(end, rec.Key) {
				done = true
				break
			}
			if !rec.Tombstone {
				out = append(out, Entry{Key: rec.Key, Value: rec.Value})
			}
		}
		if done {
			break
		}
	}
	return out, nil
}

// ScanTombstoneKeys returns every tombstoned key across the whole table, in file order.
// Range scans never emit tombstones, but the merger needs them to correctly shadow older
// inputs' live values for the same key.
func (m *Meta) ScanTombstoneKeys(cs checksum.Checksummer) ([][]byte, error) {
	var out [][]byte
	for _, ie := range m.index {
		block, err := m.readBlock(ie)
		if err != nil {
			return nil, err
		}
		cursor := 0
		for cursor < len(block) {
			rec, n, err := codec.DecodeTableRecord(block[cursor:], cs)
			if err != nil {
				break
			}
			cursor += n
			if rec.Tombstone {
				out = append(out, rec.Key)
			}
		}
	}
	return out, nil
}

func (m *Meta) readBlock(ie indexEntry) ([]byte, error) {
	if ie.blockSize > MaxBlockSizeBound {
		return nil, ignerrors.NewCorruptedDataError(nil, m.Path, int64(ie.offset)).WithDetail("reason", "block size exceeds bound")
	}
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, ie.blockSize)
	if _, err := m.io.Read(f, int64(ie.offset), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func less(a, b []byte) bool {
	return string(a) < string(b)
}
