// Package checksum provides the two integrity-check algorithms a store can be configured
// with at creation time: CRC32 (IEEE polynomial) and XXH64 truncated to its low 32 bits.
// The selected algorithm is recorded in the store's configuration and must match on
// recovery - a mismatching algorithm is treated as corruption by the caller.
package checksum

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/crc32"

	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// Algorithm identifies which checksum implementation a store uses.
type Algorithm string

const (
	// CRC32 computes the IEEE-polynomial CRC32, via klauspost's hardware-accelerated
	// implementation rather than hash/crc32 (see DESIGN.md).
	CRC32 Algorithm = "CRC32"

	// XXH64 computes a seed-0 XXH64 hash, truncated to its low 32 bits.
	XXH64 Algorithm = "XXH64"
)

// table is the IEEE polynomial table, computed once and reused by every CRC32 call.
var table = crc32.MakeTable(crc32.IEEE)

// Checksummer is the capability set every selectable algorithm implements: compute a
// checksum over a byte range, and verify a decoded checksum against it.
type Checksummer interface {
	Algorithm() Algorithm
	Compute(data []byte) uint32
	Verify(data []byte, expected uint32) error
}

// New returns the Checksummer for the given algorithm, or an error if the algorithm is
// unrecognized (e.g. a config.json written by a future version of the store).
func New(algo Algorithm) (Checksummer, error) {
	switch algo {
	case CRC32:
		return crc32Checksummer{}, nil
	case XXH64:
		return xxh64Checksummer{}, nil
	default:
		return nil, ignerrors.NewConfigError("checksum_algorithm", fmt.Sprintf("unknown checksum algorithm %q", algo))
	}
}

// MustNew is like New but panics on an unrecognized algorithm. Used for call sites that
// already validated the algorithm at config-load time (pkg/options).
func MustNew(algo Algorithm) Checksummer {
	c, err := New(algo)
	if err != nil {
		panic(err)
	}
	return c
}

type crc32Checksummer struct{}

func (crc32Checksummer) Algorithm() Algorithm { return CRC32 }

func (crc32Checksummer) Compute(data []byte) uint32 {
	return crc32.Checksum(data, table)
}

func (c crc32Checksummer) Verify(data []byte, expected uint32) error {
	actual := c.Compute(data)
	if actual != expected {
		return ignerrors.NewChecksumError(expected, actual).WithDetail("algorithm", string(CRC32))
	}
	return nil
}

type xxh64Checksummer struct{}

func (xxh64Checksummer) Algorithm() Algorithm { return XXH64 }

func (xxh64Checksummer) Compute(data []byte) uint32 {
	sum := xxhash.Sum64(data)
	return uint32(sum & 0xFFFFFFFF)
}

func (c xxh64Checksummer) Verify(data []byte, expected uint32) error {
	actual := c.Compute(data)
	if actual != expected {
		return ignerrors.NewChecksumError(expected, actual).WithDetail("algorithm", string(XXH64))
	}
	return nil
}
