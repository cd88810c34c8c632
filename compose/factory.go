package compose

import (
	"fmt"

	"github.com/sourcegraph/conc/panics"

	"github.com/glimte/weft-go/dispatch"
)

// Resolved creates a promise already completed with the given value.
func Resolved[T any](obs dispatch.Observable, v T, opts ...Option) *Promise[T] {
	p := NewPromise[T](obs, opts...)
	_ = p.Set(v)
	return p
}

// Rejected creates a promise already completed with the given error.
func Rejected[T any](obs dispatch.Observable, err error, opts ...Option) *Promise[T] {
	p := NewPromise[T](obs, opts...)
	_ = p.SetError(err)
	return p
}

// Supply creates a pending promise and schedules the supplier on the
// fabric. The supplier's value completes the promise; a supplier error
// or panic fails it.
func Supply[T any](obs dispatch.Observable, supplier func() (T, error), opts ...Option) *Promise[T] {
	p := NewPromise[T](obs, opts...)
	obs.Schedule(func(dispatch.Event) {
		v, err := runSupplier(supplier)
		if err != nil {
			p.acceptFailure(err)
			return
		}
		p.acceptValue(v)
	}, dispatch.Wrap(nil))
	return p
}

func runSupplier[T any](supplier func() (T, error)) (v T, err error) {
	recovered := panics.Try(func() {
		v, err = supplier()
	})
	if recovered != nil {
		var zero T
		return zero, fmt.Errorf("supplier panicked: %w", recovered.AsError())
	}
	return v, err
}
