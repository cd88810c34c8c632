package compose

import (
	"fmt"

	"github.com/sourcegraph/conc/panics"

	"github.com/glimte/weft-go/dispatch"
)

// Promise is a single-assignment composable. It is created pending and
// completes exactly once, with either a value or an error. A Promise
// must not be copied after first use.
type Promise[T any] struct {
	core[T]
}

// NewPromise creates a pending promise bound to obs. The promise also
// subscribes itself to the fabric's error signal class: an otherwise
// undelivered error fails the promise if it is still pending, and is
// logged and dropped if it is not.
func NewPromise[T any](obs dispatch.Observable, opts ...Option) *Promise[T] {
	p := &Promise[T]{}
	p.init(obs, 1, false, opts...)
	p.errReg = obs.On(dispatch.Errors(), func(ev dispatch.Event) {
		err, ok := ev.Data.(error)
		if !ok {
			err, ok = ev.Key.(error)
		}
		if ok {
			p.acceptFailure(err)
		}
	})
	return p
}

// Set completes the promise with a value. It fails with
// ErrAlreadyCompleted if the promise is no longer pending.
func (p *Promise[T]) Set(v T) error {
	p.mu.Lock()
	if p.st != statePending {
		p.mu.Unlock()
		return fmt.Errorf("set value: %w", ErrAlreadyCompleted)
	}
	p.acceptValueLocked(v)
	p.mu.Unlock()
	return nil
}

// SetError completes the promise with an error. It fails with
// ErrAlreadyCompleted if the promise is no longer pending.
func (p *Promise[T]) SetError(err error) error {
	p.mu.Lock()
	if p.st != statePending {
		p.mu.Unlock()
		return fmt.Errorf("set error: %w", ErrAlreadyCompleted)
	}
	p.failLocked(err)
	forwards := append([]forwardRecord(nil), p.forwards...)
	p.mu.Unlock()

	for _, f := range forwards {
		f.target.acceptFailure(err)
	}
	return nil
}

// OnSuccess registers fn to run with the value on successful completion.
func (p *Promise[T]) OnSuccess(fn func(T)) *Promise[T] {
	p.Consume(fn)
	return p
}

// OnError registers fn to run with the error on failure, whatever the
// error category.
func (p *Promise[T]) OnError(fn func(error)) *Promise[T] {
	p.When(func(error) bool { return true }, fn)
	return p
}

// OnComplete registers fn to run once the promise reaches either
// terminal state. The promise itself is passed so the handler can query
// which state was reached.
func (p *Promise[T]) OnComplete(fn func(*Promise[T])) *Promise[T] {
	p.Consume(func(T) { fn(p) })
	p.When(func(error) bool { return true }, func(error) { fn(p) })
	return p
}

// Then registers a success and an error handler in one call. Either may
// be nil. The value-transforming form is Map.
func (p *Promise[T]) Then(onSuccess func(T), onError func(error)) *Promise[T] {
	if onSuccess != nil {
		p.OnSuccess(onSuccess)
	}
	if onError != nil {
		p.OnError(onError)
	}
	return p
}

// Filter derives a promise that succeeds with the source value when the
// predicate holds and fails with *FilteredError when it does not. A
// predicate panic fails the derived promise as a user error.
func (p *Promise[T]) Filter(pred func(T) bool) *Promise[T] {
	d := NewPromise[T](p.obs, WithLogger(p.logger))
	p.ForwardError(d)
	p.Consume(func(v T) {
		keep, err := runPredicate(pred, v)
		switch {
		case err != nil:
			d.acceptFailure(err)
		case keep:
			d.acceptValue(v)
		default:
			d.acceptFailure(&FilteredError{Value: v})
		}
	})
	return d
}

// Map derives a promise of the transformed type. The source's errors
// forward to the derived promise, and a transform error or panic fails
// the derived promise instead of escaping into the fabric.
func Map[T, V any](p *Promise[T], fn func(T) (V, error)) *Promise[V] {
	d := NewPromise[V](p.obs, WithLogger(p.logger))
	p.ForwardError(d)
	p.Consume(func(v T) {
		out, err := runTransform(fn, v)
		if err != nil {
			d.acceptFailure(err)
			return
		}
		d.acceptValue(out)
	})
	return d
}

// MapThen is the transforming variant of Then: it derives via Map and
// registers an error handler on the source in the same call.
func MapThen[T, V any](p *Promise[T], fn func(T) (V, error), onError func(error)) *Promise[V] {
	d := Map(p, fn)
	if onError != nil {
		p.OnError(onError)
	}
	return d
}

func runTransform[T, V any](fn func(T) (V, error), v T) (out V, err error) {
	recovered := panics.Try(func() {
		out, err = fn(v)
	})
	if recovered != nil {
		var zero V
		return zero, fmt.Errorf("transform panicked: %w", recovered.AsError())
	}
	return out, err
}

func runPredicate[T any](pred func(T) bool, v T) (keep bool, err error) {
	recovered := panics.Try(func() {
		keep = pred(v)
	})
	if recovered != nil {
		return false, fmt.Errorf("filter predicate panicked: %w", recovered.AsError())
	}
	return keep, nil
}
