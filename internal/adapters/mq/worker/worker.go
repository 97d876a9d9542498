// Package worker drains the change queue and delivers collection snapshots.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

// Queue defines how the dispatcher receives changes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Change
}

// Snapshotter reads the current content of a collection.
type Snapshotter interface {
	Snapshot(ctx context.Context, collection string) (model.Snapshot, error)
}

// Publisher hands a snapshot to the subscribers a change addresses.
type Publisher interface {
	Publish(ctx context.Context, change model.Change, snap model.Snapshot)
}

// Dispatcher is the single consumer of the change queue. Running exactly one
// per queue keeps snapshot delivery in enqueue order.
type Dispatcher struct {
	queue  Queue
	source Snapshotter
	sink   Publisher
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue Queue, source Snapshotter, sink Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    queue,
		source:   source,
		sink:     sink,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)
	return d
}

// Run processes changes until ctx is canceled, Shutdown is called or the
// queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	changes := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := d.process(ctx, c); err != nil {
				d.logger.Error(ctx, "error delivering snapshot", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the loop and waits for it to exit.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) process(ctx context.Context, c model.Change) error {
	snap, err := d.source.Snapshot(ctx, c.Collection)
	if err != nil {
		metrics.RecordErrorByComponent("dispatcher", "snapshot_error")
		return fmt.Errorf("snapshot %s: %w", c.Collection, err)
	}
	d.sink.Publish(ctx, c, snap)
	return nil
}
