package wal

import (
	"os"
	"path/filepath"

	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
	"github.com/ignitedb/ignitedb/pkg/segfile"
)

// segment is a single WAL file plus the in-memory state needed to decide when it must
// rotate. onDiskSize tracks what has actually been written+fdatasynced to file; pending
// holds encoded records appended since the last sync() flush. Rotation compares the sum of
// both against the configured bound (see Log.Append), matching the original
// implementation's tracking of a segment's sealed size alongside its live buffer.
type segment struct {
	id         uint64
	path       string
	file       *os.File
	onDiskSize int64
	pending    []byte
}

func openSegment(dir string, id uint64) (*segment, error) {
	path := segfile.Path(dir, id, "wal")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ignerrors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segment{id: id, path: path, file: f, onDiskSize: info.Size()}, nil
}

// size is the segment's total logical size: bytes already on disk plus bytes buffered in
// memory but not yet flushed.
func (s *segment) size() int64 {
	return s.onDiskSize + int64(len(s.pending))
}

func (s *segment) close() error {
	return s.file.Close()
}
