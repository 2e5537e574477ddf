package ioctx

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// workerPoolContext emulates the ring-submit/wait-for-completions model with a bounded
// pool of goroutines pulling from a shared job channel: each batch job executes its syscall
// via golang.org/x/sys/unix and writes its Result into the batch's result slice. Single
// Read/Write/sync calls run directly on the caller's goroutine. This is the
// always-available path; it never fails to construct.
type workerPoolContext struct {
	jobs chan func()
	wg   sync.WaitGroup
	stop chan struct{}
}

func newWorkerPoolContext(depth uint32) *workerPoolContext {
	c := &workerPoolContext{
		jobs: make(chan func(), depth),
		stop: make(chan struct{}),
	}
	workers := int(depth)
	if workers < 1 {
		workers = 1
	}
	if workers > 64 {
		// Bounded independent of queue_depth: queue_depth governs how many operations may
		// be in flight at once, not how many OS threads service them.
		workers = 64
	}
	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.run()
	}
	return c
}

func (c *workerPoolContext) run() {
	defer c.wg.Done()
	for {
		select {
		case job, ok := <-c.jobs:
			if !ok {
				return
			}
			job()
		case <-c.stop:
			return
		}
	}
}

func (c *workerPoolContext) Read(fd *os.File, offset int64, buf []byte) (int, error) {
	n, err := unix.Pread(int(fd.Fd()), buf, offset)
	if err != nil {
		return n, mapErrno("read", err)
	}
	return n, nil
}

func (c *workerPoolContext) Write(fd *os.File, offset int64, data []byte) (int, error) {
	n, err := unix.Pwrite(int(fd.Fd()), data, offset)
	if err != nil {
		return n, mapErrno("write", err)
	}
	return n, nil
}

func (c *workerPoolContext) Fsync(fd *os.File) error {
	if err := unix.Fsync(int(fd.Fd())); err != nil {
		return ignerrors.ClassifySyncError(err, fd.Name(), fd.Name(), 0)
	}
	return nil
}

func (c *workerPoolContext) Fdatasync(fd *os.File) error {
	if err := unix.Fdatasync(int(fd.Fd())); err != nil {
		return ignerrors.ClassifySyncError(err, fd.Name(), fd.Name(), 0)
	}
	return nil
}

func (c *workerPoolContext) SyncFileRange(fd *os.File, offset, length int64, flags SyncFileRangeFlags) error {
	if err := unix.SyncFileRange(int(fd.Fd()), offset, length, int(flags)); err != nil {
		return mapErrno("sync_file_range", err)
	}
	return nil
}

// BatchRead submits every op concurrently across the worker pool and waits for all
// completions, matching each Result back to its Op by Tag - the model spec.md §4.3 calls
// for, emulated without a shared kernel submission ring.
func (c *workerPoolContext) BatchRead(fd *os.File, ops []Op) []Result {
	return c.runBatch(fd, ops, func(fd *os.File, op Op) (int, error) {
		return c.Read(fd, op.Offset, op.Buf)
	})
}

// BatchWrite is BatchRead's write-side counterpart.
func (c *workerPoolContext) BatchWrite(fd *os.File, ops []Op) []Result {
	return c.runBatch(fd, ops, func(fd *os.File, op Op) (int, error) {
		return c.Write(fd, op.Offset, op.Buf)
	})
}

func (c *workerPoolContext) runBatch(fd *os.File, ops []Op, exec func(*os.File, Op) (int, error)) []Result {
	results := make([]Result, len(ops))
	var wg sync.WaitGroup
	wg.Add(len(ops))
	for i, op := range ops {
		i, op := i, op
		c.jobs <- func() {
			defer wg.Done()
			n, err := exec(fd, op)
			results[i] = Result{Tag: op.Tag, N: n, Err: err}
		}
	}
	wg.Wait()
	return results
}

func (c *workerPoolContext) Close() error {
	close(c.stop)
	c.wg.Wait()
	return nil
}
