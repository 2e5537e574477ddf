package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/ignitedb/ignitedb/pkg/checksum"
	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// tableRecordHeaderSize is checksum(4) + keyLen(4) + valueLen(4).
const tableRecordHeaderSize = 4 + 4 + 4

// TableRecord is a single entry inside a sorted table's data block: {checksum, key,
// value_or_tombstone}. A zero value length encodes a deletion: DecodeTableRecord sets
// Tombstone whenever the value is empty, so a live empty value reads back as a tombstone.
type TableRecord struct {
	Checksum  uint32
	Key       []byte
	Value     []byte
	Tombstone bool
}

// EncodedSize returns the exact (unaligned) number of bytes TableRecord serializes to.
func (r *TableRecord) EncodedSize() int {
	return tableRecordHeaderSize + len(r.Key) + len(r.Value)
}

// EncodeTableRecord serializes r, appending to dst and returning the extended slice. Passing
// dst lets the table writer build a block without per-record allocation.
func EncodeTableRecord(dst []byte, r *TableRecord, cs checksum.Checksummer) ([]byte, error) {
	if len(r.Key) == 0 || len(r.Key) > MaxKeyLen {
		return nil, ignerrors.NewSerializationError(fmt.Sprintf("table record key length %d out of bounds", len(r.Key)))
	}
	if len(r.Value) > MaxValueLen {
		return nil, ignerrors.NewSerializationError(fmt.Sprintf("table record value length %d exceeds max %d", len(r.Value), MaxValueLen))
	}

	start := len(dst)
	size := r.EncodedSize()
	dst = append(dst, make([]byte, size)...)
	buf := dst[start:]

	valueLen := len(r.Value)
	off := 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Key)))
	off += 4
	// TableRecord's wire format has no explicit tombstone bit (spec.md §4.2.2: "0 encodes
	// tombstone"): valueLen == 0 is the only tombstone marker, so an empty live value is
	// written exactly like a deletion and decodes as one.
	binary.LittleEndian.PutUint32(buf[off:], uint32(valueLen))
	off += 4
	off += copy(buf[off:], r.Key)
	off += copy(buf[off:], r.Value)

	sum := cs.Compute(buf[4:off])
	binary.LittleEndian.PutUint32(buf[0:4], sum)

	return dst, nil
}

// DecodeTableRecord parses a single TableRecord starting at buf[0]. It returns the record,
// the number of bytes consumed, and an error if the bytes don't form a valid record or fail
// checksum verification.
func DecodeTableRecord(buf []byte, cs checksum.Checksummer) (*TableRecord, int, error) {
	if len(buf) < tableRecordHeaderSize {
		return nil, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "buffer shorter than table record header")
	}

	storedChecksum := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	keyLen := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	valueLen := binary.LittleEndian.Uint32(buf[off:])
	off += 4

	if keyLen == 0 || keyLen > MaxKeyLen {
		return nil, 0, ignerrors.NewSerializationError(fmt.Sprintf("decoded table key length %d out of bounds", keyLen))
	}
	if valueLen > MaxValueLen {
		return nil, 0, ignerrors.NewSerializationError(fmt.Sprintf("decoded table value length %d exceeds max", valueLen))
	}

	end := off + int(keyLen) + int(valueLen)
	if end > len(buf) {
		return nil, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "truncated table record")
	}

	key := make([]byte, keyLen)
	copy(key, buf[off:off+int(keyLen)])
	off += int(keyLen)
	value := make([]byte, valueLen)
	copy(value, buf[off:off+int(valueLen)])
	off += int(valueLen)

	if err := cs.Verify(buf[4:off], storedChecksum); err != nil {
		return nil, off, err
	}

	return &TableRecord{Checksum: storedChecksum, Key: key, Value: value, Tombstone: valueLen == 0}, off, nil
}
