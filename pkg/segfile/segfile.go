// Package segfile names and discovers the numbered files ignitedb scribbles its segments and
// tables into: "<data_dir>/wal/NNNNNNNN.wal" and "<data_dir>/sst/NNNNNNNN.sst", where NNNNNNNN
// is an 8-digit zero-padded decimal id. Adapted from the teacher's seginfo package - this
// version drops the timestamp component and the configurable prefix, since wal/sst ids are
// fixed-width decimal sequence numbers rather than prefix_id_timestamp triples.
package segfile

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// IDWidth is the number of decimal digits a segment or table id is zero-padded to.
const IDWidth = 8

// Name formats a file name for the given id and extension (without the leading dot), e.g.
// Name(7, "wal") -> "00000007.wal".
func Name(id uint64, ext string) string {
	return fmt.Sprintf("%0*d.%s", IDWidth, id, ext)
}

// Path joins dir with the formatted file name for id/ext.
func Path(dir string, id uint64, ext string) string {
	return filepath.Join(dir, Name(id, ext))
}

// ParseID extracts the numeric id from a file name produced by Name, ignoring its
// directory component and extension.
func ParseID(path string) (uint64, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	id, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("segfile: %q is not a valid segment/table id: %w", path, err)
	}
	return id, nil
}

// List returns every "*.<ext>" file directly under dir, sorted ascending by numeric id.
// Zero-padding in Name guarantees lexicographic order already matches numeric order, but
// List sorts explicitly by the parsed id so a caller never depends on that coincidence.
func List(dir, ext string, glob func(pattern string) ([]string, error)) ([]string, error) {
	pattern := filepath.Join(dir, "*."+ext)
	matches, err := glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("segfile: listing %s: %w", pattern, err)
	}

	type entry struct {
		path string
		id   uint64
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		id, err := ParseID(m)
		if err != nil {
			// Skip files that don't match our naming convention rather than failing the
			// whole scan - a stray file in the directory shouldn't block startup.
			continue
		}
		entries = append(entries, entry{path: m, id: id})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out, nil
}

// MaxID returns the largest id found among paths, and whether paths was non-empty.
func MaxID(paths []string) (id uint64, ok bool) {
	for _, p := range paths {
		parsed, err := ParseID(p)
		if err != nil {
			continue
		}
		if !ok || parsed > id {
			id = parsed
			ok = true
		}
	}
	return id, ok
}
