package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/glimte/weft-go/compose"
)

// Await blocks until p reaches a terminal state or ctx is done. On
// success it returns the promise's value; on failure, its error. A
// context cancellation or deadline is returned wrapped, and leaves the
// promise untouched.
func Await[T any](ctx context.Context, p *compose.Promise[T]) (T, error) {
	done := make(chan struct{}, 1)
	p.OnComplete(func(*compose.Promise[T]) {
		done <- struct{}{}
	})

	select {
	case <-done:
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("awaiting promise %s: %w", p.ID(), ctx.Err())
	}

	if err := p.Err(); err != nil {
		var zero T
		return zero, err
	}
	v, _ := p.Value()
	return v, nil
}

// AwaitTimeout is Await bounded by a duration instead of a caller
// supplied context.
func AwaitTimeout[T any](p *compose.Promise[T], timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Await(ctx, p)
}
