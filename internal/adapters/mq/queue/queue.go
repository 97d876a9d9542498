// Package queue carries change notifications from writers to the dispatcher.
//
// The queue is bounded. Put waits for room so a record write never loses
// its notification.
package queue

import (
	"context"
	"sync"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Change is the payload flowing through the queue.
type Change = model.Change

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Put adds a change, waiting for room until ctx is done or the queue closes.
	Put(ctx context.Context, c Change) error

	// Dequeue returns a channel that receives changes in enqueue order.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Change

	// Close stops accepting changes. Already queued changes are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	changes  chan Change
	capacity int

	// done is closed before the lock is taken in Close so that blocked
	// Put calls release their read lock.
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.changes = make(chan Change, q.capacity)

	metrics.UpdateChangeQueueCapacity(q.capacity)
	metrics.UpdateChangeQueueSize(0)
	return q
}

// Put adds a change, blocking while the queue is full.
func (q *InMemoryQueue) Put(ctx context.Context, c Change) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.changes <- c:
		metrics.UpdateChangeQueueSize(len(q.changes))
		return nil
	case <-q.done:
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive changes as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Change {
	out := make(chan Change)
	go func() {
		defer close(out)
		for c := range q.changes {
			select {
			case out <- c:
				metrics.UpdateChangeQueueSize(len(q.changes))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		defer q.mu.Unlock()
		close(q.changes)
		q.closed = true
	})
	return nil
}
