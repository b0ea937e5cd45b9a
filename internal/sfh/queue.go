package sfh

import "sync"

// DefaultQueueSize bounds the number of in-flight entries between the
// enumerator and the analyzer pool. The bound provides backpressure:
// a fast network walk blocks instead of buffering file content in
// memory while the analyzers lag behind.
const DefaultQueueSize = 20

// WorkQueue is a bounded FIFO connecting one enumerator (producer) to
// a pool of analyzers (consumers). Every Put must eventually be
// acknowledged with Done; Join returns once all puts have been acked,
// which is the pipeline's drained signal.
type WorkQueue struct {
	ch        chan *Entry
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWorkQueue creates a queue with the given capacity. A capacity
// below one falls back to DefaultQueueSize.
func NewWorkQueue(capacity int) *WorkQueue {
	if capacity < 1 {
		capacity = DefaultQueueSize
	}
	return &WorkQueue{ch: make(chan *Entry, capacity)}
}

// Put enqueues an entry, blocking while the queue is full.
func (q *WorkQueue) Put(e *Entry) {
	q.wg.Add(1)
	q.ch <- e
}

// Get dequeues the next entry, blocking while the queue is empty.
// ok is false once the queue has been closed and drained.
func (q *WorkQueue) Get() (e *Entry, ok bool) {
	e, ok = <-q.ch
	return e, ok
}

// Done acknowledges that processing of one dequeued entry finished,
// successfully or not.
func (q *WorkQueue) Done() {
	q.wg.Done()
}

// Join blocks until every enqueued entry has been acknowledged.
func (q *WorkQueue) Join() {
	q.wg.Wait()
}

// Close signals consumers that no more entries will be produced.
// Safe to call more than once.
func (q *WorkQueue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}
