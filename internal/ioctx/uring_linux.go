//go:build linux

package ioctx

import (
	"fmt"
	"os"
	"sync"

	"github.com/pawelgaczynski/giouring"

	ignerrors "github.com/ignitedb/ignitedb/pkg/errors"
)

// uringContext is the kernel-polling path: a single SQPOLL-mode ring shared by every
// caller, serialized behind a mutex since a *giouring.Ring's submission queue is not safe
// for concurrent producers. It exists purely for the "higher throughput at low queue depth,
// no semantic change" allowance in spec.md §4.3 - every operation it performs is observably
// identical to workerPoolContext's, just routed through the kernel's polling thread instead
// of a goroutine pool.
type uringContext struct {
	mu   sync.Mutex
	ring *giouring.Ring
}

func newURingContext(depth uint32) (*uringContext, error) {
	ring, err := giouring.CreateRing(depth, giouring.IORING_SETUP_SQPOLL)
	if err != nil {
		return nil, ignerrors.NewIoUringError(err, "create ring")
	}
	return &uringContext{ring: ring}, nil
}

func (c *uringContext) submitAndWait(prep func(sqe *giouring.SubmissionQueueEntry)) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sqe := c.ring.GetSQE()
	if sqe == nil {
		return 0, ignerrors.NewIoUringError(nil, "submission queue full")
	}
	prep(sqe)

	if _, err := c.ring.SubmitAndWait(1); err != nil {
		return 0, ignerrors.NewIoUringError(err, "submit")
	}

	cqe, err := c.ring.WaitCQE()
	if err != nil {
		return 0, ignerrors.NewIoUringError(err, "wait completion")
	}
	res := int(cqe.Res)
	c.ring.SeenCQE(cqe)

	if res < 0 {
		return 0, mapErrno("uring op", fmt.Errorf("errno %d", -res))
	}
	return res, nil
}

func (c *uringContext) Read(fd *os.File, offset int64, buf []byte) (int, error) {
	return c.submitAndWait(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepRead(int(fd.Fd()), buf, uint64(offset))
	})
}

func (c *uringContext) Write(fd *os.File, offset int64, data []byte) (int, error) {
	return c.submitAndWait(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepWrite(int(fd.Fd()), data, uint64(offset))
	})
}

func (c *uringContext) Fsync(fd *os.File) error {
	_, err := c.submitAndWait(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepFsync(int(fd.Fd()), 0)
	})
	return err
}

func (c *uringContext) Fdatasync(fd *os.File) error {
	_, err := c.submitAndWait(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepFsync(int(fd.Fd()), giouring.FsyncDatasync)
	})
	return err
}

func (c *uringContext) SyncFileRange(fd *os.File, offset, length int64, flags SyncFileRangeFlags) error {
	_, err := c.submitAndWait(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepSyncFileRange(int(fd.Fd()), uint32(length), uint64(offset), uint32(flags))
	})
	return err
}

// BatchRead submits every op against the shared ring sequentially, one submitAndWait call
// (and one acquisition of its lock) per op, so ops of concurrent batches may interleave. The
// ring still gives up most of its latency advantage under
// concurrent batches from multiple goroutines; spec.md only requires the observable
// batch/match-by-tag contract, not a particular concurrency strategy.
func (c *uringContext) BatchRead(fd *os.File, ops []Op) []Result {
	results := make([]Result, len(ops))
	for i, op := range ops {
		n, err := c.Read(fd, op.Offset, op.Buf)
		results[i] = Result{Tag: op.Tag, N: n, Err: err}
	}
	return results
}

func (c *uringContext) BatchWrite(fd *os.File, ops []Op) []Result {
	results := make([]Result, len(ops))
	for i, op := range ops {
		n, err := c.Write(fd, op.Offset, op.Buf)
		results[i] = Result{Tag: op.Tag, N: n, Err: err}
	}
	return results
}

func (c *uringContext) Close() error {
	c.ring.QueueExit()
	return nil
}
