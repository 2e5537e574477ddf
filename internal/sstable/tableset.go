package sstable

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ignitedb/ignitedb/internal/ioctx"
	"github.com/ignitedb/ignitedb/internal/memtable"
	"github.com/ignitedb/ignitedb/pkg/checksum"
	"github.com/ignitedb/ignitedb/pkg/filesys"
	"github.com/ignitedb/ignitedb/pkg/segfile"
)

// Dirname is the fixed subdirectory of data_dir holding sorted table files.
const Dirname = "sst"

// TableSet tracks every live table in creation order, per spec.md §4.7.5. The engine scans
// it in reverse for reads ("newest first") and walks forward for merges.
type TableSet struct {
	dir    string
	cs     checksum.Checksummer
	io     ioctx.Context
	mu     sync.RWMutex
	tables []*Meta
	nextID uint64
}

// Open creates the sst directory if necessary and loads every existing table via
// loadExisting, rebuilding TableMeta from each file's header and Bloom blob.
func Open(dataDir string, cs checksum.Checksummer, io ioctx.Context) (*TableSet, error) {
	dir := filepath.Join(dataDir, Dirname)
	if err := filesys.CreateDir(dir, 0o755, true); err != nil {
		return nil, fmt.Errorf("sstable: creating table directory %s: %w", dir, err)
	}

	ts := &TableSet{dir: dir, cs: cs, io: io, nextID: 1}
	if err := ts.loadExisting(); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TableSet) loadExisting() error {
	paths, err := segfile.List(ts.dir, "sst", filepath.Glob)
	if err != nil {
		return err
	}

	var tables []*Meta
	for _, path := range paths {
		id, err := segfile.ParseID(path)
		if err != nil {
			continue
		}
		meta, err := Open(id, path, ts.io)
		if err != nil {
			return fmt.Errorf("sstable: loading %s: %w", path, err)
		}
		tables = append(tables, meta)
	}

	ts.tables = tables
	if maxID, ok := segfile.MaxID(paths); ok {
		ts.nextID = maxID + 1
	}
	return nil
}

// Dir returns the directory new tables are written into.
func (ts *TableSet) Dir() string { return ts.dir }

// WriteTable builds a new table from entries and publishes it to the set, returning its
// Meta. This is the engine's flush path (spec.md §4.9.6).
func (ts *TableSet) WriteTable(entries []memtable.Entry) (*Meta, error) {
	ts.mu.Lock()
	id := ts.nextID
	ts.nextID++
	ts.mu.Unlock()

	meta, err := Write(ts.dir, id, entries, ts.cs, ts.io)
	if err != nil {
		return nil, err
	}

	ts.Add(meta)
	return meta, nil
}

// Add publishes meta to the set.
func (ts *TableSet) Add(meta *Meta) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tables = append(ts.tables, meta)
}

// Remove drops the table with the given id from the set and unlinks its file on disk.
func (ts *TableSet) Remove(id uint64) error {
	ts.mu.Lock()
	var path string
	kept := ts.tables[:0]
	for _, t := range ts.tables {
		if t.ID == id {
			path = t.Path
			continue
		}
		kept = append(kept, t)
	}
	ts.tables = kept
	ts.mu.Unlock()

	if path == "" {
		return nil
	}
	return os.Remove(path)
}

// GetAll returns a snapshot of every live table, newest-last (creation order).
func (ts *TableSet) GetAll() []*Meta {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]*Meta, len(ts.tables))
	copy(out, ts.tables)
	return out
}

// GetNewestFirst returns a snapshot of every live table, newest-first - the order reads
// walk in (spec.md §4.9.3).
func (ts *TableSet) GetNewestFirst() []*Meta {
	all := ts.GetAll()
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// GetOverlapping returns every live table whose key range intersects [start, end]. A nil
// end leaves the range unbounded above.
func (ts *TableSet) GetOverlapping(start, end []byte) []*Meta {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	var out []*Meta
	for _, t := range ts.tables {
		if !less(t.MaxKey, start) && (end == nil || !less(end, t.MinKey)) {
			out = append(out, t)
		}
	}
	return out
}

// NextID returns the id WriteTable would assign on its next call, without consuming it -
// used only by tests and metrics.
func (ts *TableSet) NextID() uint64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.nextID
}
