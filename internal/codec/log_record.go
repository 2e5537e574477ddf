// Package codec implements the byte-exact wire formats for WAL log records and sorted
// table records described in spec.md §4.2. Both formats are little-endian, checksum-guarded,
// and length-limited; decode failures are reported as either a ChecksumError or a
// SerializationError/CorruptedDataError so callers can tell "bytes that don't parse" apart
// from "bytes that parse but fail their checksum".
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/ignitedb/ignitedb/pkg/checksum"
	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// PageSize is the alignment boundary every LogRecord is padded to, so a torn write during a
// crash truncates cleanly at a page boundary.
const PageSize = 4096

// MaxKeyLen and MaxValueLen bound every key and value ignitedb accepts.
const (
	MaxKeyLen   = 65536
	MaxValueLen = 1048576
)

// Op identifies whether a LogRecord is a write or a deletion.
type Op uint8

const (
	OpPut    Op = 1
	OpDelete Op = 2
)

// logRecordHeaderSize is the fixed header preceding key/value bytes:
// checksum(4) + timestamp(8) + sequence(8) + keyLen(4) + valueLen(4) + op(1) + reserved(3).
const logRecordHeaderSize = 4 + 8 + 8 + 4 + 4 + 1 + 3

// LogRecord is a single WAL entry: {checksum, timestamp_us, sequence, op, key, value}.
// For a Delete, Value must be empty.
type LogRecord struct {
	Checksum    uint32
	TimestampUs uint64
	Sequence    uint64
	Op          Op
	Key         []byte
	Value       []byte
}

// EncodedSize returns the page-aligned size LogRecord will serialize to.
func (r *LogRecord) EncodedSize() int {
	unaligned := logRecordHeaderSize + len(r.Key) + len(r.Value)
	return alignUp(unaligned, PageSize)
}

func alignUp(n, align int) int {
	return ((n + align - 1) / align) * align
}

// Encode serializes r into a freshly allocated, page-aligned buffer, computing the checksum
// with cs over bytes [4 .. header+key+value), matching spec.md §4.2.1.
func Encode(r *LogRecord, cs checksum.Checksummer) ([]byte, error) {
	if len(r.Key) == 0 || len(r.Key) > MaxKeyLen {
		return nil, ignerrors.NewSerializationError(fmt.Sprintf("log record key length %d out of bounds", len(r.Key)))
	}
	if len(r.Value) > MaxValueLen {
		return nil, ignerrors.NewSerializationError(fmt.Sprintf("log record value length %d exceeds max %d", len(r.Value), MaxValueLen))
	}
	if r.Op != OpPut && r.Op != OpDelete {
		return nil, ignerrors.NewSerializationError(fmt.Sprintf("unknown log record op %d", r.Op))
	}
	if r.Op == OpDelete && len(r.Value) != 0 {
		return nil, ignerrors.NewSerializationError("delete log record must carry an empty value")
	}

	dataSize := logRecordHeaderSize + len(r.Key) + len(r.Value)
	buf := make([]byte, alignUp(dataSize, PageSize))

	off := 4
	binary.LittleEndian.PutUint64(buf[off:], r.TimestampUs)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.Sequence)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Key)))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Value)))
	off += 4
	buf[off] = byte(r.Op)
	off += 4 // op byte + 3 reserved bytes
	off += copy(buf[off:], r.Key)
	off += copy(buf[off:], r.Value)

	sum := cs.Compute(buf[4:off])
	binary.LittleEndian.PutUint32(buf[0:4], sum)
	r.Checksum = sum

	return buf, nil
}

// Decode parses a LogRecord out of buf, which must contain at least one full page. It
// returns the record and the number of bytes the record occupies (always a multiple of
// PageSize, matching spec.md's invariant 7). Checksum failures are reported via err so the
// caller (WAL recovery) can choose to skip to the next page rather than abort outright.
func Decode(buf []byte, cs checksum.Checksummer) (*LogRecord, int, error) {
	if len(buf) < PageSize {
		return nil, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "short buffer")
	}

	if len(buf) < logRecordHeaderSize {
		return nil, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "buffer shorter than header")
	}

	storedChecksum := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	timestamp := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	sequence := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	keyLen := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	valueLen := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	op := Op(buf[off])
	off += 4

	if keyLen == 0 || keyLen > MaxKeyLen {
		return nil, 0, ignerrors.NewSerializationError(fmt.Sprintf("decoded key length %d out of bounds", keyLen))
	}
	if valueLen > MaxValueLen {
		return nil, 0, ignerrors.NewSerializationError(fmt.Sprintf("decoded value length %d exceeds max", valueLen))
	}
	if op != OpPut && op != OpDelete {
		return nil, 0, ignerrors.NewSerializationError(fmt.Sprintf("decoded unknown op %d", op))
	}

	payloadEnd := off + int(keyLen) + int(valueLen)
	dataSize := logRecordHeaderSize + int(keyLen) + int(valueLen)
	recordSize := alignUp(dataSize, PageSize)
	if len(buf) < recordSize || payloadEnd > len(buf) {
		return nil, 0, ignerrors.NewCorruptedDataError(nil, "", 0).WithDetail("reason", "truncated record")
	}

	key := make([]byte, keyLen)
	copy(key, buf[off:off+int(keyLen)])
	off += int(keyLen)
	value := make([]byte, valueLen)
	copy(value, buf[off:off+int(valueLen)])
	off += int(valueLen)

	if err := cs.Verify(buf[4:off], storedChecksum); err != nil {
		return nil, recordSize, err
	}

	return &LogRecord{
		Checksum:    storedChecksum,
		TimestampUs: timestamp,
		Sequence:    sequence,
		Op:          op,
		Key:         key,
		Value:       value,
	}, recordSize, nil
}
