package compose

import (
	"sync"

	"github.com/glimte/weft-go/dispatch"
)

// Stream is a counted multi-assignment composable: it accepts values
// until the expected count is reached, at which point it is complete.
// Consumers registered on a stream fire on every accepted value. Accepts
// after completion overwrite the stored value but never re-complete.
type Stream[T any] struct {
	core[T]
}

// NewStream creates a pending stream expecting the given number of
// accepted values. expected must be at least 1.
func NewStream[T any](obs dispatch.Observable, expected int, opts ...Option) *Stream[T] {
	s := &Stream[T]{}
	s.init(obs, expected, true, opts...)
	return s
}

// Accept delivers one value into the stream.
func (s *Stream[T]) Accept(v T) {
	s.acceptValue(v)
}

// Fail completes the stream in error unless it already reached a
// terminal state, in which case the error is logged and dropped.
func (s *Stream[T]) Fail(err error) {
	s.acceptFailure(err)
}

// Reduce returns a promise that completes with all accepted values, in
// acceptance order, once the expected count is reached. Stream failures
// forward to the returned promise.
func (s *Stream[T]) Reduce() *Promise[[]T] {
	p := NewPromise[[]T](s.obs, WithLogger(s.logger))
	s.ForwardError(p)

	s.mu.Lock()
	if s.st == stateSucceeded {
		full := make([]T, len(s.acc))
		copy(full, s.acc)
		s.mu.Unlock()
		p.acceptValue(full)
		return p
	}
	s.onFull = append(s.onFull, func(vs []T) {
		p.acceptValue(vs)
	})
	s.mu.Unlock()
	return p
}

type deferredInput[T any] struct {
	value T
	err   error
	isErr bool
}

// DeferredStream is a stream that buffers everything delivered to it
// until Release is called, then replays the buffer in delivery order.
// Merge uses this to keep fast sources from emitting before all fan-in
// consumers are wired.
type DeferredStream[T any] struct {
	Stream[T]

	dmu      sync.Mutex
	released bool
	queue    []deferredInput[T]
}

// NewDeferredStream creates an unreleased deferred stream.
func NewDeferredStream[T any](obs dispatch.Observable, expected int, opts ...Option) *DeferredStream[T] {
	d := &DeferredStream[T]{}
	d.init(obs, expected, true, opts...)
	return d
}

// Accept buffers the value until released, then delegates to the stream.
func (d *DeferredStream[T]) Accept(v T) {
	d.dmu.Lock()
	if !d.released {
		d.queue = append(d.queue, deferredInput[T]{value: v})
		d.dmu.Unlock()
		return
	}
	d.dmu.Unlock()
	d.Stream.Accept(v)
}

// Fail buffers the error until released, then delegates to the stream.
func (d *DeferredStream[T]) Fail(err error) {
	d.dmu.Lock()
	if !d.released {
		d.queue = append(d.queue, deferredInput[T]{err: err, isErr: true})
		d.dmu.Unlock()
		return
	}
	d.dmu.Unlock()
	d.Stream.Fail(err)
}

// Propagated failures obey the same buffering as direct ones.
func (d *DeferredStream[T]) acceptFailure(err error) {
	d.Fail(err)
}

// Release replays buffered input in delivery order and lets subsequent
// input through directly. It implements Deferred and is idempotent.
func (d *DeferredStream[T]) Release() {
	d.dmu.Lock()
	if d.released {
		d.dmu.Unlock()
		return
	}
	d.released = true
	queue := d.queue
	d.queue = nil
	d.dmu.Unlock()

	for _, in := range queue {
		if in.isErr {
			d.Stream.Fail(in.err)
		} else {
			d.Stream.Accept(in.value)
		}
	}
}
