// Package hunters implements the per-protocol enumerators. Each hunter
// walks one service and feeds discovered entries into the shared work
// queue; all analysis happens downstream in the worker pool.
package hunters

import (
	"context"
	"io"
	"os"

	"sfh-go/internal/sfh"
)

// common holds what every hunter needs: the scan target, the size
// ceilings, a scratch area for spooled content and a logger.
type common struct {
	target  sfh.Target
	limits  sfh.Limits
	scratch sfh.Scratch
	logger  sfh.Logger
}

func (c *common) Target() sfh.Target { return c.target }

// newEntry builds an entry for a discovered file. Empty files are
// skipped entirely (nil return); files above their size ceiling are
// flagged oversize so only their path and name get evaluated.
func (c *common) newEntry(share, fullPath string, size int64) *sfh.Entry {
	if size <= 0 {
		c.logger.Debug("skipping empty file", "share", share, "path", fullPath)
		return nil
	}
	e := sfh.NewEntry(c.target, share, fullPath, size)
	if !c.limits.BelowThreshold(e.FileName(), size) {
		e.Oversize = true
	}
	return e
}

// spool drains r into a scratch file and returns a fetch closure that
// reads it back. Network hunters use this so content is materialized
// while their connection is live, without holding every queued file's
// bytes in memory.
func (c *common) spool(r io.Reader) (func() ([]byte, error), error) {
	p, err := c.scratch.TempFile(r)
	if err != nil {
		return nil, err
	}
	return func() ([]byte, error) { return os.ReadFile(p) }, nil
}

// put enqueues an entry unless the context was cancelled. Put blocks
// while the queue is full, which is what bounds enumeration speed to
// analysis speed.
func put(ctx context.Context, q *sfh.WorkQueue, e *sfh.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.Put(e)
	return nil
}
