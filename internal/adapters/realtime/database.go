// Package realtime is the record database the site reads and writes.
//
// Records live in a repository.Store. Every write queues a change, and a
// single dispatcher turns each change into a full snapshot of the affected
// collection for its subscribers. Subscribers therefore see snapshots in
// write order, and every snapshot supersedes the one before it.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/vivaran/internal/adapters/mq/queue"
	"github.com/okian/vivaran/internal/adapters/mq/worker"
	"github.com/okian/vivaran/internal/adapters/repository"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

const defaultQueueCapacity = 1024

type subscriber struct {
	collection string
	fn         func(model.Snapshot)
}

// Database is the realtime record database.
type Database struct {
	store         repository.Store
	queueCapacity int
	log           logger.Logger

	queue      *queue.InMemoryQueue
	dispatcher *worker.Dispatcher
	startOnce  sync.Once
	started    atomic.Bool

	mu     sync.RWMutex
	subs   map[uint64]subscriber
	nextID uint64
	closed bool
}

// New creates a database over store. Call Start before relying on
// subscriptions.
func New(store repository.Store, opts ...Option) *Database {
	d := &Database{
		store:         store,
		queueCapacity: defaultQueueCapacity,
		log:           logger.Nop(),
		subs:          make(map[uint64]subscriber),
		nextID:        1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = queue.NewInMemoryQueue(queue.WithCapacity(d.queueCapacity))
	d.dispatcher = worker.NewDispatcher(d.queue, d, d,
		worker.WithName("realtime_dispatcher"),
		worker.WithLogger(d.log),
	)
	return d
}

// Start runs the dispatcher in the background until Close or ctx is done.
func (d *Database) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.started.Store(true)
		go d.dispatcher.Run(ctx)
	})
}

// Close stops accepting writes and subscriptions, lets the dispatcher drain
// what is already queued and drops every subscriber.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if err := d.queue.Close(); err != nil {
		return fmt.Errorf("close change queue: %w", err)
	}
	if d.started.Load() {
		select {
		case <-d.dispatcher.Done():
		case <-ctx.Done():
			if err := d.dispatcher.Shutdown(ctx); err != nil {
				return err
			}
		}
	}

	d.mu.Lock()
	d.subs = make(map[uint64]subscriber)
	d.mu.Unlock()
	metrics.UpdateSubscribers(0)
	return nil
}

// WriteRecord stores value as JSON at path ("collection/key") and notifies
// the collection's subscribers.
func (d *Database) WriteRecord(ctx context.Context, path string, value any) error {
	collection, key, err := model.SplitPath(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if d.isClosed() {
		return &WriteError{Path: path, Err: ErrClosed}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := d.store.Put(ctx, collection, key, raw); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	d.notify(ctx, model.Change{Collection: collection})
	return nil
}

// ReadRecord decodes the record at path into out. It reports false when the
// record does not exist.
func (d *Database) ReadRecord(ctx context.Context, path string, out any) (bool, error) {
	collection, key, err := model.SplitPath(path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRead, err)
	}
	raw, err := d.store.Get(ctx, collection, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", ErrRead, path, err)
	}
	return true, nil
}

// Remove deletes the record at path and notifies subscribers if it existed.
func (d *Database) Remove(ctx context.Context, path string) (bool, error) {
	collection, key, err := model.SplitPath(path)
	if err != nil {
		return false, &WriteError{Path: path, Err: err}
	}
	if d.isClosed() {
		return false, &WriteError{Path: path, Err: ErrClosed}
	}
	existed, err := d.store.Delete(ctx, collection, key)
	if err != nil {
		return false, &WriteError{Path: path, Err: err}
	}
	if existed {
		d.notify(ctx, model.Change{Collection: collection})
	}
	return existed, nil
}

// Snapshot returns the current content of collection in arrival order.
func (d *Database) Snapshot(ctx context.Context, collection string) (model.Snapshot, error) {
	snap, err := d.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return snap, nil
}

// Subscribe calls fn with the current snapshot of collection and again after
// every change to it. fn runs on the dispatcher goroutine and must not block
// for long. The returned func unsubscribes and may be called more than once.
func (d *Database) Subscribe(ctx context.Context, collection string, fn func(model.Snapshot)) (func(), error) {
	if collection == "" || fn == nil {
		return nil, errors.New("realtime: subscribe needs a collection and a callback")
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	id := d.nextID
	d.nextID++
	d.subs[id] = subscriber{collection: collection, fn: fn}
	count := len(d.subs)
	d.mu.Unlock()
	metrics.UpdateSubscribers(count)

	unsubscribe := func() { d.unsubscribe(id) }
	if err := d.queue.Put(ctx, model.Change{Collection: collection, SubscriberID: id}); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("queue initial snapshot: %w", err)
	}
	var once sync.Once
	return func() { once.Do(unsubscribe) }, nil
}

// Publish implements worker.Publisher. It is only called by the dispatcher.
func (d *Database) Publish(_ context.Context, c model.Change, snap model.Snapshot) {
	d.mu.RLock()
	var fns []func(model.Snapshot)
	if c.SubscriberID != 0 {
		if s, ok := d.subs[c.SubscriberID]; ok && s.collection == c.Collection {
			fns = append(fns, s.fn)
		}
	} else {
		for _, s := range d.subs {
			if s.collection == c.Collection {
				fns = append(fns, s.fn)
			}
		}
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
		metrics.RecordSnapshotDelivery()
	}
}

// Subscribers returns the number of active subscriptions.
func (d *Database) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

func (d *Database) unsubscribe(id uint64) {
	d.mu.Lock()
	delete(d.subs, id)
	count := len(d.subs)
	d.mu.Unlock()
	metrics.UpdateSubscribers(count)
}

// notify queues a change. The record is already stored, so a lost
// notification is logged rather than reported to the writer.
func (d *Database) notify(ctx context.Context, c model.Change) {
	if err := d.queue.Put(ctx, c); err != nil {
		d.log.Warn(ctx, "change notification dropped",
			logger.String("collection", c.Collection),
			logger.Error(err),
		)
	}
}

func (d *Database) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}
