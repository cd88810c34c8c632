package compose

import (
	"sort"

	"github.com/glimte/weft-go/dispatch"
	"github.com/glimte/weft-go/tuples"
)

// Merge reduces the sources into one promise whose value is the ordered
// sequence of source values, in declared order, regardless of the order
// in which the sources complete. The first source to fail fails the
// result, and no success value is produced after that.
func Merge[T any](obs dispatch.Observable, sources ...Composable[T]) *Promise[[]T] {
	return MergeInto(NewPromise[[]T](obs), sources...)
}

// MergeInto is Merge aimed at an existing target promise.
func MergeInto[T any](target *Promise[[]T], sources ...Composable[T]) *Promise[[]T] {
	switch len(sources) {
	case 0:
		return target

	case 1:
		src := sources[0]
		src.ForwardError(target)
		src.Consume(func(v T) {
			target.acceptValue([]T{v})
		})
		releaseDeferred(src)
		return target
	}

	// Fan-in: each source value is paired with its source index and fed
	// into a stream sized to the source count. When full, the pairs are
	// sorted back into declared order and unwrapped.
	n := len(sources)
	reducer := NewStream[tuples.Tuple2[T, int]](target.obs, n, WithLogger(target.logger))

	ordered := Map(reducer.Reduce(), func(pairs []tuples.Tuple2[T, int]) ([]T, error) {
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].V2 < pairs[j].V2
		})
		out := make([]T, 0, len(pairs))
		for _, pair := range pairs {
			out = append(out, pair.V1)
		}
		return out, nil
	})
	ordered.ForwardError(target)
	ordered.Consume(func(vs []T) {
		target.acceptValue(vs)
	})

	// Wire every source before releasing any deferred one, so a fast
	// source cannot complete ahead of its consumer registration.
	for i, src := range sources {
		idx := i
		src.ForwardError(reducer)
		src.Consume(func(v T) {
			reducer.Accept(tuples.Of2(v, idx))
		})
	}
	for _, src := range sources {
		releaseDeferred(src)
	}
	return target
}

func releaseDeferred(src any) {
	if d, ok := src.(Deferred); ok {
		d.Release()
	}
}
