package accel

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// QueueKind selects whether work runs at submission or on a queue worker.
type QueueKind int

const (
	// Blocking queues run each task inline when it is enqueued.
	Blocking QueueKind = iota
	// NonBlocking queues run tasks in order on a worker goroutine; callers
	// must Wait before reading results.
	NonBlocking
)

// String returns the queue kind name.
func (k QueueKind) String() string {
	if k == NonBlocking {
		return "NonBlocking"
	}
	return "Blocking"
}

// Queue represents an ordered sequence of operations on a device.
// Operations within a queue execute in order. Once a task fails, the
// following tasks are skipped until Wait reports the failure.
type Queue struct {
	id   uuid.UUID
	dev  *Device
	kind QueueKind

	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	err    error
	closed bool
}

// NewQueue creates a queue on dev.
func NewQueue(dev *Device, kind QueueKind) *Queue {
	q := &Queue{
		id:   uuid.New(),
		dev:  dev,
		kind: kind,
	}
	if kind == NonBlocking {
		q.tasks = make(chan func(), 64)
		q.done = make(chan struct{})
		go q.worker()
	}
	klog.V(2).Infof("queue %s (%s) created on %s", q.id, kind, dev)
	return q
}

// ID returns the unique queue identifier.
func (q *Queue) ID() uuid.UUID { return q.id }

// Device returns the device the queue submits to.
func (q *Queue) Device() *Device { return q.dev }

// Kind returns the queue kind.
func (q *Queue) Kind() QueueKind { return q.kind }

// worker processes tasks for a non-blocking queue
func (q *Queue) worker() {
	for task := range q.tasks {
		task()
		q.wg.Done()
	}
	close(q.done)
}

// Enqueue submits fn to the queue. The error fn returns is reported by the
// next Wait.
func (q *Queue) Enqueue(name string, fn func() error) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()

	task := func() {
		q.mu.Lock()
		failed := q.err != nil
		q.mu.Unlock()
		if failed {
			klog.V(2).Infof("queue %s: skipping %s after earlier failure", q.id, name)
			return
		}
		if err := fn(); err != nil {
			q.mu.Lock()
			q.err = errors.WithMessagef(err, "queue %s: %s", q.id, name)
			q.mu.Unlock()
		}
	}
	if q.kind == Blocking {
		task()
		q.wg.Done()
		return nil
	}
	q.tasks <- task
	return nil
}

// Launch validates wd and enqueues kernel k over it.
func (q *Queue) Launch(wd WorkDiv, k Kernel) error {
	if err := wd.Validate(q.dev.Properties()); err != nil {
		return err
	}
	klog.V(2).Infof("queue %s: launch %s on %s", q.id, wd, q.dev)
	return q.Enqueue("Launch", func() error {
		return q.dev.execute(wd, k)
	})
}

// Wait blocks until every task enqueued so far has finished, and returns
// the first failure since the previous Wait.
func (q *Queue) Wait() error {
	q.wg.Wait()
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.err
	q.err = nil
	return err
}

// Close waits for pending work and releases the queue worker. Further
// submissions fail with ErrQueueClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	err := q.Wait()
	if q.kind == NonBlocking {
		close(q.tasks)
		<-q.done
	}
	return err
}
