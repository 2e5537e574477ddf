// Package ignitedb is the public entry point for embedding the store in a Go program. It
// wraps internal/engine.Engine behind a small, stable Instance type so callers never import
// anything under internal/. The shape (NewInstance + functional options, Set/Get/Delete on
// an Instance) follows the teacher repo's original pkg/ignite facade; Set/Get/Delete are the
// real, fully-wired implementations that facade left as stubs.
package ignitedb

import (
	"context"

	"github.com/ignitedb/ignitedb/internal/engine"
	"github.com/ignitedb/ignitedb/internal/memtable"
	"github.com/ignitedb/ignitedb/internal/metrics"
	"github.com/ignitedb/ignitedb/pkg/logger"
	"github.com/ignitedb/ignitedb/pkg/options"
)

// Instance is the primary entry point for interacting with the store: it encapsulates the
// underlying engine and the options it was opened with.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// NewInstance opens (and, on first use, initializes) a store rooted at opts.DataDir,
// replaying its write-ahead log and starting the background compaction worker.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	resolved := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&resolved)
	}
	if err := resolved.Validate(); err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &resolved})
	if err != nil {
		return nil, err
	}
	return &Instance{engine: eng, options: &resolved}, nil
}

// Set stores a key-value pair. If the key already exists its value is overwritten. The
// call does not return until the write is durable.
func (i *Instance) Set(ctx context.Context, key string, value []byte) error {
	return i.engine.Put([]byte(key), value)
}

// Get retrieves the value associated with key. found is false if the key does not exist
// or has been deleted.
func (i *Instance) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	return i.engine.Get([]byte(key))
}

// Delete marks key as deleted. The tombstone is durable immediately and the space it and
// any prior values occupied is reclaimed the next time the tables holding them are merged.
func (i *Instance) Delete(ctx context.Context, key string) error {
	return i.engine.Delete([]byte(key))
}

// Scan returns every live key in the half-open range [start, end), in ascending order. An
// empty start or end extends the range to -infinity or +infinity respectively.
func (i *Instance) Scan(ctx context.Context, start, end string) ([]memtable.Entry, error) {
	var startKey, endKey []byte
	if start != "" {
		startKey = []byte(start)
	}
	if end != "" {
		endKey = []byte(end)
	}
	return i.engine.Scan(startKey, endKey)
}

// Flush forces the current memtable to disk as a new table, regardless of its size.
func (i *Instance) Flush(ctx context.Context) error {
	return i.engine.Flush()
}

// Metrics returns a snapshot of the instance's latency percentiles and event counters.
func (i *Instance) Metrics() metrics.Snapshot {
	return i.engine.Metrics().Snapshot()
}

// Close flushes any full memtable, stops the background compaction worker, and releases
// every open file handle. Close is idempotent.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}
