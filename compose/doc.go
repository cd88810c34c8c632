// Package compose implements asynchronous composable values: Promise for
// single-assignment results and Stream for counted multi-assignment
// accumulation, chained through map, filter, and ordered fan-in merge.
//
// A composable is created bound to a dispatch.Observable and moves from
// pending to exactly one of succeeded or failed. Handlers registered
// while pending run in registration order on completion; handlers
// registered after completion are scheduled immediately. No operation
// blocks the calling goroutine, and handlers always run through the
// scheduling fabric, never inline.
//
// Errors flow forward through the same links as values: a derived
// composable created by Map or Filter fails as soon as its source fails.
// A transform that returns an error or panics fails its derived
// composable instead of escaping into the fabric. A rejected Filter
// predicate fails the derived composable with *FilteredError, a
// first-class outcome distinguishable from user transform failures.
//
// Basic usage:
//
//	d := dispatch.NewDispatcher()
//	defer d.Close()
//
//	p := compose.NewPromise[int](d)
//	doubled := compose.Map(p, func(v int) (int, error) { return v * 2, nil })
//	doubled.OnSuccess(func(v int) { fmt.Println(v) })
//
//	_ = p.Set(21)
//
// Merge combines N sources into one promise whose value preserves the
// declared source order regardless of completion order:
//
//	m := compose.Merge(d, a, b, c) // *Promise[[]T], values in a,b,c order
package compose
