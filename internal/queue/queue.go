// Package queue bounds how many outbound GitHub calls run at the same time.
//
// CONCURRENCY BOUND:
// GitHub's secondary rate limits trip on concurrency, not on volume. A single
// access summary can fan out into hundreds of lookups; firing them all at once
// gets the credential throttled. Every fan-out in the service layer therefore
// submits its calls here, and at most Limit of them are in flight at any
// instant across the whole process.
//
// SEMANTICS:
//   - Admission is FIFO: work runs in the order it was submitted.
//   - Each unit resolves with its own result. Nothing is retried.
//   - A unit whose context is cancelled before admission never runs; its
//     future resolves with the context error.
package queue

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sakif/access-git/internal/metrics"
)

// DefaultConcurrency is the in-flight bound used in production.
const DefaultConcurrency = 10

// Queue admits work into a bounded in-flight set.
//
// The semaphore holds one slot per running unit. pending keeps submitted
// units in order; pump moves units from pending to running while slots are
// free. Both are only touched with mu held.
type Queue struct {
	limit int64
	sem   *semaphore.Weighted

	mu       sync.Mutex
	pending  *list.List // of *job
	inFlight int
}

type job struct {
	ctx  context.Context
	run  func(ctx context.Context)
	fail func(err error)
	stop func() bool // detaches the cancellation watcher
	elem *list.Element
}

// New creates a queue that runs at most concurrency units at once.
// Values below 1 are treated as 1.
func New(concurrency int) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{
		limit:   int64(concurrency),
		sem:     semaphore.NewWeighted(int64(concurrency)),
		pending: list.New(),
	}
}

// Limit returns the configured concurrency bound.
func (q *Queue) Limit() int {
	return int(q.limit)
}

// InFlight returns how many units are running right now.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Waiting returns how many units are waiting for a slot.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

func (q *Queue) enqueue(j *job) {
	// If the caller gives up while still waiting, drop the unit from the
	// line so it never takes a slot. Registered before the unit is visible
	// to pump so execute always sees stop set.
	j.stop = context.AfterFunc(j.ctx, func() {
		q.mu.Lock()
		removed := j.elem != nil
		if removed {
			q.pending.Remove(j.elem)
			j.elem = nil
			metrics.QueueWaiting.Dec()
		}
		q.mu.Unlock()
		if removed {
			j.fail(j.ctx.Err())
		}
	})

	q.mu.Lock()
	queued := j.ctx.Err() == nil
	if queued {
		j.elem = q.pending.PushBack(j)
		metrics.QueueWaiting.Inc()
	}
	q.mu.Unlock()
	if !queued {
		j.fail(j.ctx.Err())
		return
	}

	q.pump()
}

// pump admits waiting units while there are free slots.
func (q *Queue) pump() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Len() > 0 {
		if !q.sem.TryAcquire(1) {
			return
		}
		front := q.pending.Front()
		j := q.pending.Remove(front).(*job)
		j.elem = nil
		q.inFlight++
		metrics.QueueWaiting.Dec()
		metrics.QueueInFlight.Inc()
		go q.execute(j)
	}
}

func (q *Queue) execute(j *job) {
	defer func() {
		q.mu.Lock()
		q.inFlight--
		q.mu.Unlock()
		metrics.QueueInFlight.Dec()
		q.sem.Release(1)
		q.pump()
	}()

	if j.stop != nil {
		j.stop()
	}
	if err := j.ctx.Err(); err != nil {
		j.fail(err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			j.fail(fmt.Errorf("queue: unit panicked: %v", r))
		}
	}()
	j.run(j.ctx)
}

// Future is the pending result of a submitted unit.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the unit has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the unit resolves or ctx is done, whichever comes first.
// Giving up on Wait does not cancel the unit itself; cancel the context that
// was passed to Submit for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit hands fn to the queue and returns immediately.
//
// GENERICS:
// Go methods cannot have their own type parameters, so Submit is a plain
// function taking the queue as its first argument.
func Submit[T any](q *Queue, ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	q.enqueue(&job{
		ctx: ctx,
		run: func(ctx context.Context) {
			v, err := fn(ctx)
			f.resolve(v, err)
		},
		fail: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	})
	return f
}

// Do submits fn and waits for its result.
func Do[T any](q *Queue, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return Submit(q, ctx, fn).Wait(ctx)
}
