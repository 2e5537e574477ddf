package sstable

import (
	"fmt"
	"os"

	"github.com/ignitedb/ignitedb/internal/bloom"
	"github.com/ignitedb/ignitedb/internal/codec"
	"github.com/ignitedb/ignitedb/internal/ioctx"
	"github.com/ignitedb/ignitedb/internal/memtable"
	"github.com/ignitedb/ignitedb/pkg/checksum"
	"github.com/ignitedb/ignitedb/pkg/segfile"
)

// Write builds a new table file from entries (which must be sorted strictly ascending by
// key, as memtable.Memtable.GetAllEntries returns them) and returns its Meta, per the write
// procedure of spec.md §4.7.2. A failure at any point leaves no observable Meta; the
// partially-written file stays on disk, nothing removes it, and TableSet's startup load
// returns an error when it cannot open it (see DESIGN.md).
func Write(dir string, id uint64, entries []memtable.Entry, cs checksum.Checksummer, io ioctx.Context) (*Meta, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("sstable: cannot write a table from zero entries")
	}

	path := segfile.Path(dir, id, "sst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sstable: opening %s: %w", path, err)
	}
	defer f.Close()

	minKey := entries[0].Key
	maxKey := entries[len(entries)-1].Key

	reserved := int64(headerSize + len(minKey) + len(maxKey))
	if _, err := f.WriteAt(make([]byte, reserved), 0); err != nil {
		return nil, fmt.Errorf("sstable: reserving header: %w", err)
	}

	offset := reserved
	var indexEntries []indexEntry
	var block []byte
	var blockFirstKey []byte

	flushBlock := func() error {
		if len(block) == 0 {
			return nil
		}
		if _, err := io.Write(f, offset, block); err != nil {
			return err
		}
		indexEntries = append(indexEntries, indexEntry{
			firstKey:  blockFirstKey,
			offset:    uint64(offset),
			blockSize: uint32(len(block)),
		})
		offset += int64(len(block))
		block = nil
		blockFirstKey = nil
		return nil
	}

	filter := bloom.New(uint64(len(entries)), 0.01)

	for _, e := range entries {
		filter.Add(e.Key)

		record := &codec.TableRecord{Key: e.Key, Value: e.Value}
		if e.Tombstone {
			record.Value = nil
		}
		encoded, err := codec.EncodeTableRecord(nil, record, cs)
		if err != nil {
			return nil, err
		}

		if len(block)+len(encoded) > MaxBlockSize && len(block) > 0 {
			if err := flushBlock(); err != nil {
				return nil, err
			}
		}
		if blockFirstKey == nil {
			blockFirstKey = e.Key
		}
		block = append(block, encoded...)
	}
	if err := flushBlock(); err != nil {
		return nil, err
	}

	bloomOffset := offset
	bloomBytes := filter.Encode()
	if _, err := io.Write(f, offset, bloomBytes); err != nil {
		return nil, err
	}
	offset += int64(len(bloomBytes))

	indexOffset := offset
	var indexBuf []byte
	for _, ie := range indexEntries {
		indexBuf = append(indexBuf, encodeIndexEntry(ie)...)
	}
	if len(indexBuf) > 0 {
		if _, err := io.Write(f, offset, indexBuf); err != nil {
			return nil, err
		}
	}

	h := header{
		numEntries:  uint64(len(entries)),
		indexOffset: uint64(indexOffset),
		bloomOffset: uint64(bloomOffset),
		minKeyLen:   uint32(len(minKey)),
		maxKeyLen:   uint32(len(maxKey)),
	}
	headerBuf := encodeHeader(h)
	prefix := append(append([]byte{}, headerBuf...), minKey...)
	prefix = append(prefix, maxKey...)
	if _, err := f.WriteAt(prefix, 0); err != nil {
		return nil, fmt.Errorf("sstable: writing header: %w", err)
	}

	if err := io.Fsync(f); err != nil {
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
		index:       indexEntries,
		io:          io,
	}, nil
}
