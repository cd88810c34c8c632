package compose

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimte/weft-go/dispatch"
)

func newTestObservable(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.NewDispatcher(
		dispatch.WithWorkers(1),
		dispatch.WithDispatcherLogger(quietLogger()),
	)
	t.Cleanup(d.Close)
	return d
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		panic("unreachable")
	}
}

func expectNone[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected delivery: %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

// settle waits until the fabric has drained everything submitted before
// the call, by scheduling a sentinel behind it on the single worker.
func settle(t *testing.T, obs dispatch.Observable) {
	t.Helper()
	done := make(chan struct{}, 1)
	obs.Schedule(func(dispatch.Event) { done <- struct{}{} }, dispatch.Wrap(nil))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fabric did not settle")
	}
}

func TestPromiseSet(t *testing.T) {
	t.Run("Set completes a pending promise", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		require.True(t, p.IsPending())
		require.NoError(t, p.Set(42))

		assert.True(t, p.IsSuccess())
		assert.False(t, p.IsPending())
		assert.False(t, p.IsError())

		v, ok := p.Value()
		assert.True(t, ok)
		assert.Equal(t, 42, v)
		assert.NoError(t, p.Err())
	})

	t.Run("second Set fails and first result stands", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		require.NoError(t, p.Set(42))
		err := p.Set(43)

		require.ErrorIs(t, err, ErrAlreadyCompleted)
		v, _ := p.Value()
		assert.Equal(t, 42, v)
	})

	t.Run("Set after SetError fails", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")

		require.NoError(t, p.SetError(boom))

		assert.ErrorIs(t, p.Set(1), ErrAlreadyCompleted)
		assert.ErrorIs(t, p.SetError(errors.New("again")), ErrAlreadyCompleted)
		assert.True(t, p.IsError())
		assert.ErrorIs(t, p.Err(), boom)
	})

	t.Run("state queries are mutually exclusive", func(t *testing.T) {
		obs := newTestObservable(t)

		pending := NewPromise[int](obs, WithLogger(quietLogger()))
		assert.True(t, pending.IsPending())
		assert.False(t, pending.IsSuccess())
		assert.False(t, pending.IsError())

		failed := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, failed.SetError(errors.New("x")))
		assert.False(t, failed.IsPending())
		assert.False(t, failed.IsSuccess())
		assert.True(t, failed.IsError())
	})
}

func TestPromiseHandlers(t *testing.T) {
	t.Run("OnSuccess registered while pending fires once with the value", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan int, 2)
		p.OnSuccess(func(v int) { got <- v })

		require.NoError(t, p.Set(42))

		assert.Equal(t, 42, recv(t, got))
		expectNone(t, got)
	})

	t.Run("Consume after success is scheduled asynchronously", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[string](obs, WithLogger(quietLogger()))
		require.NoError(t, p.Set("done"))

		got := make(chan string, 1)
		p.Consume(func(v string) { got <- v })

		assert.Equal(t, "done", recv(t, got))
	})

	t.Run("handlers fire in registration order", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		order := make(chan string, 3)
		p.OnSuccess(func(int) { order <- "first" })
		p.OnSuccess(func(int) { order <- "second" })
		p.OnSuccess(func(int) { order <- "third" })

		require.NoError(t, p.Set(1))

		assert.Equal(t, "first", recv(t, order))
		assert.Equal(t, "second", recv(t, order))
		assert.Equal(t, "third", recv(t, order))
	})

	t.Run("success consumers never see an error completion", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan int, 1)
		p.OnSuccess(func(v int) { got <- v })

		require.NoError(t, p.SetError(errors.New("boom")))
		settle(t, obs)
		expectNone(t, got)
	})

	t.Run("Consume on a failed promise is ignored", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, p.SetError(errors.New("boom")))

		got := make(chan int, 1)
		p.Consume(func(v int) { got <- v })

		settle(t, obs)
		expectNone(t, got)
	})

	t.Run("OnError receives the failure", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")

		got := make(chan error, 1)
		p.OnError(func(err error) { got <- err })

		require.NoError(t, p.SetError(boom))
		assert.ErrorIs(t, recv(t, got), boom)
	})

	t.Run("When registered after failure still fires on a match", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")
		require.NoError(t, p.SetError(boom))

		got := make(chan error, 1)
		p.WhenIs(boom, func(err error) { got <- err })

		assert.ErrorIs(t, recv(t, got), boom)
	})

	t.Run("When with a non-matching predicate never fires", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan error, 1)
		p.WhenIs(errors.New("other"), func(err error) { got <- err })

		require.NoError(t, p.SetError(errors.New("boom")))
		settle(t, obs)
		expectNone(t, got)
	})

	t.Run("WhenAs matches by error type through wrapping", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan *FilteredError, 1)
		WhenAs(p, func(fe *FilteredError) { got <- fe })

		require.NoError(t, p.SetError(&FilteredError{Value: 7}))
		assert.Equal(t, 7, recv(t, got).Value)
	})

	t.Run("OnComplete fires exactly once on success", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan bool, 2)
		p.OnComplete(func(pr *Promise[int]) { got <- pr.IsSuccess() })

		require.NoError(t, p.Set(1))
		assert.True(t, recv(t, got))
		expectNone(t, got)
	})

	t.Run("OnComplete fires exactly once on error", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan bool, 2)
		p.OnComplete(func(pr *Promise[int]) { got <- pr.IsError() })

		require.NoError(t, p.SetError(errors.New("boom")))
		assert.True(t, recv(t, got))
		expectNone(t, got)
	})

	t.Run("Then registers both handlers and returns the receiver", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan int, 1)
		same := p.Then(func(v int) { got <- v }, func(error) {})

		assert.Same(t, p, same)
		require.NoError(t, p.Set(5))
		assert.Equal(t, 5, recv(t, got))
	})

	t.Run("DropHandlers tears down registrations", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		got := make(chan int, 1)
		errs := make(chan error, 1)
		p.OnSuccess(func(v int) { got <- v })
		p.OnError(func(err error) { errs <- err })

		p.DropHandlers()
		require.NoError(t, p.Set(9))

		settle(t, obs)
		expectNone(t, got)
		expectNone(t, errs)
	})
}

func TestPromiseFabricErrors(t *testing.T) {
	t.Run("a fabric error signal fails a pending promise", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")

		got := make(chan error, 1)
		p.OnError(func(err error) { got <- err })

		obs.Notify(boom, dispatch.Wrap(boom))

		assert.ErrorIs(t, recv(t, got), boom)
		assert.True(t, p.IsError())
	})

	t.Run("a fabric error after success is dropped", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, p.Set(42))

		obs.Notify(errors.New("late"), dispatch.Wrap(errors.New("late")))
		settle(t, obs)

		assert.True(t, p.IsSuccess())
		v, _ := p.Value()
		assert.Equal(t, 42, v)
		assert.NoError(t, p.Err())
	})
}

func TestPromiseConsumeKey(t *testing.T) {
	t.Run("forwards the value as a keyed signal on completion", func(t *testing.T) {
		obs := newTestObservable(t)
		target := newTestObservable(t)

		got := make(chan dispatch.Event, 1)
		target.On(dispatch.Key("result"), func(ev dispatch.Event) { got <- ev })

		p := NewPromise[int](obs, WithLogger(quietLogger()))
		p.ConsumeKey("result", target)
		require.NoError(t, p.Set(7))

		ev := recv(t, got)
		assert.Equal(t, 7, ev.Data)
		assert.Equal(t, "result", ev.Key)
	})

	t.Run("forwards immediately when already complete", func(t *testing.T) {
		obs := newTestObservable(t)
		target := newTestObservable(t)

		got := make(chan dispatch.Event, 1)
		target.On(dispatch.Key("result"), func(ev dispatch.Event) { got <- ev })

		p := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, p.Set(7))
		p.ConsumeKey("result", target)

		assert.Equal(t, 7, recv(t, got).Data)
	})
}

func TestMap(t *testing.T) {
	t.Run("transforms the value into a derived promise", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		d := Map(p, func(v int) (string, error) {
			return string(rune('a' + v)), nil
		})

		got := make(chan string, 1)
		d.OnSuccess(func(v string) { got <- v })

		require.NoError(t, p.Set(2))
		assert.Equal(t, "c", recv(t, got))
	})

	t.Run("applies immediately when the source already completed", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, p.Set(10))

		d := Map(p, func(v int) (int, error) { return v * 2, nil })

		got := make(chan int, 1)
		d.OnSuccess(func(v int) { got <- v })
		assert.Equal(t, 20, recv(t, got))
	})

	t.Run("source failure forwards to the derived promise", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")

		d := Map(p, func(v int) (int, error) { return v, nil })
		got := make(chan error, 1)
		d.OnError(func(err error) { got <- err })

		require.NoError(t, p.SetError(boom))
		assert.ErrorIs(t, recv(t, got), boom)
	})

	t.Run("transform error fails the derived promise", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		bad := errors.New("bad input")

		d := Map(p, func(v int) (int, error) { return 0, bad })
		got := make(chan error, 1)
		d.OnError(func(err error) { got <- err })

		require.NoError(t, p.Set(1))
		assert.ErrorIs(t, recv(t, got), bad)
		assert.True(t, p.IsSuccess())
	})

	t.Run("transform panic fails the derived promise", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		d := Map(p, func(v int) (int, error) { panic("kaboom") })
		got := make(chan error, 1)
		d.OnError(func(err error) { got <- err })

		require.NoError(t, p.Set(1))
		assert.Contains(t, recv(t, got).Error(), "kaboom")
	})

	t.Run("chained maps propagate through", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		d := Map(Map(p, func(v int) (int, error) { return v + 1, nil }),
			func(v int) (int, error) { return v * 10, nil })

		got := make(chan int, 1)
		d.OnSuccess(func(v int) { got <- v })

		require.NoError(t, p.Set(4))
		assert.Equal(t, 50, recv(t, got))
	})

	t.Run("MapThen wires the error handler on the source", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")

		errs := make(chan error, 1)
		d := MapThen(p, func(v int) (int, error) { return v, nil },
			func(err error) { errs <- err })
		require.NotNil(t, d)

		require.NoError(t, p.SetError(boom))
		assert.ErrorIs(t, recv(t, errs), boom)
	})
}

func TestFilter(t *testing.T) {
	t.Run("passing predicate propagates the value", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, p.Set(10))

		d := p.Filter(func(v int) bool { return v > 5 })

		got := make(chan int, 1)
		d.OnSuccess(func(v int) { got <- v })
		assert.Equal(t, 10, recv(t, got))
	})

	t.Run("rejecting predicate fails with FilteredError", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		require.NoError(t, p.Set(10))

		d := p.Filter(func(v int) bool { return v > 100 })

		got := make(chan error, 1)
		d.OnError(func(err error) { got <- err })

		err := recv(t, got)
		assert.True(t, IsFiltered(err))
		var fe *FilteredError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 10, fe.Value)
	})

	t.Run("filtered outcome is distinguishable from a transform failure", func(t *testing.T) {
		assert.True(t, IsFiltered(&FilteredError{Value: 1}))
		assert.False(t, IsFiltered(errors.New("transform failed")))
	})

	t.Run("predicate panic fails as a user error, not filtered", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))

		d := p.Filter(func(int) bool { panic("bad predicate") })
		got := make(chan error, 1)
		d.OnError(func(err error) { got <- err })

		require.NoError(t, p.Set(1))
		err := recv(t, got)
		assert.False(t, IsFiltered(err))
		assert.Contains(t, err.Error(), "bad predicate")
	})

	t.Run("source failure forwards past the filter", func(t *testing.T) {
		obs := newTestObservable(t)
		p := NewPromise[int](obs, WithLogger(quietLogger()))
		boom := errors.New("boom")

		d := p.Filter(func(int) bool { return true })
		got := make(chan error, 1)
		d.OnError(func(err error) { got <- err })

		require.NoError(t, p.SetError(boom))
		assert.ErrorIs(t, recv(t, got), boom)
	})
}
