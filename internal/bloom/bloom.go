// Package bloom implements the per-table Bloom filter (C6): sized from a target
// false-positive rate and expected capacity per spec.md §4.6, backed by
// github.com/bits-and-blooms/bitset for the underlying bit array and
// github.com/cespare/xxhash/v2 for the per-(key, seed_index) hash.
package bloom

import (
	"encoding/binary"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"

	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// headerSize is the fixed prefix of the serialized format: num_bits(8) + num_hashes(4) +
// bit_len(4).
const headerSize = 8 + 4 + 4

// Filter is a Bloom filter sized for n expected entries at false-positive rate p.
type Filter struct {
	numBits   uint64
	numHashes uint32
	bits      *bitset.BitSet
}

// New sizes a Filter for n expected entries at target false-positive rate p, following
// spec.md §4.6: m = ceil(-n*ln(p)/(ln 2)^2) bits, k = max(1, ceil((m/n)*ln 2)) hashes.
func New(n uint64, p float64) *Filter {
	if n == 0 {
		n = 1
	}
	ln2 := math.Ln2
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	if m == 0 {
		m = 1
	}
	k := uint32(math.Ceil((float64(m) / float64(n)) * ln2))
	if k < 1 {
		k = 1
	}
	return &Filter{
		numBits:   m,
		numHashes: k,
		bits:      bitset.New(uint(m)),
	}
}

// Add records key's membership.
func (f *Filter) Add(key []byte) {
	for i := uint32(0); i < f.numHashes; i++ {
		f.bits.Set(uint(f.hash(key, i) % f.numBits))
	}
}

// MayContain returns false only if key is definitely absent; true means "possibly present".
func (f *Filter) MayContain(key []byte) bool {
	for i := uint32(0); i < f.numHashes; i++ {
		if !f.bits.Test(uint(f.hash(key, i) % f.numBits)) {
			return false
		}
	}
	return true
}

// hash computes a 64-bit hash of (key || seedIndex), per spec.md §4.6.
func (f *Filter) hash(key []byte, seedIndex uint32) uint64 {
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], seedIndex)

	var buf []byte
	buf = append(buf, key...)
	buf = append(buf, seedBuf[:]...)
	return xxhash.Sum64(buf)
}

// NumBits and NumHashes expose the filter's derived parameters, mostly for tests and
// metrics.
func (f *Filter) NumBits() uint64   { return f.numBits }
func (f *Filter) NumHashes() uint32 { return f.numHashes }

// bitLen returns the number of bytes the packed bit array serializes to.
func (f *Filter) bitLen() uint32 {
	return uint32((f.numBits + 7) / 8)
}

// Encode serializes f to the wire format: u64 num_bits, u32 num_hashes, u32 bit_len,
// bit_len bytes, bit i stored at byte i/8 bit i%8.
func (f *Filter) Encode() []byte {
	bl := f.bitLen()
	buf := make([]byte, headerSize+int(bl))
	binary.LittleEndian.PutUint64(buf[0:8], f.numBits)
	binary.LittleEndian.PutUint32(buf[8:12], f.numHashes)
	binary.LittleEndian.PutUint32(buf[12:16], bl)

	packed := buf[headerSize:]
	for i := uint64(0); i < f.numBits; i++ {
		if f.bits.Test(uint(i)) {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return buf
}

// Decode parses a Filter out of buf, as produced by Encode.
func Decode(buf []byte) (*Filter, error) {
	if len(buf) < headerSize {
		return nil, ignerrors.NewSerializationError("bloom filter buffer shorter than header")
	}

	numBits := binary.LittleEndian.Uint64(buf[0:8])
	numHashes := binary.LittleEndian.Uint32(buf[8:12])
	bitLen := binary.LittleEndian.Uint32(buf[12:16])

	expected := headerSize + int(bitLen)
	if len(buf) < expected {
		return nil, ignerrors.NewSerializationError("bloom filter buffer shorter than declared bit_len")
	}
	if uint64(bitLen) != (numBits+7)/8 {
		return nil, ignerrors.NewSerializationError("bloom filter bit_len inconsistent with num_bits")
	}

	bits := bitset.New(uint(numBits))
	packed := buf[headerSize:expected]
	for i := uint64(0); i < numBits; i++ {
		if packed[i/8]&(1<<(i%8)) != 0 {
			bits.Set(uint(i))
		}
	}

	return &Filter{numBits: numBits, numHashes: numHashes, bits: bits}, nil
}

// EncodedSize returns the number of bytes Encode will produce.
func (f *Filter) EncodedSize() int {
	return headerSize + int(f.bitLen())
}
