//go:build !linux

package ioctx

import ignerrors "github.com/ignitedb/ignitedb/pkg/errors"

// newURingContext is unavailable outside Linux; New always falls back to the worker-pool
// Context on this platform.
func newURingContext(depth uint32) (Context, error) {
	return nil, ignerrors.NewIoUringError(nil, "io_uring unsupported on this platform")
}
