package dispatch

import (
	"errors"
	"reflect"
)

// Selector decides whether a registered handler should receive a signal
// published under a given key.
type Selector interface {
	Matches(key any) bool
}

// SelectorFunc is a function adapter for Selector.
type SelectorFunc func(key any) bool

// Matches implements Selector.
func (f SelectorFunc) Matches(key any) bool {
	return f(key)
}

// Key returns a selector matching keys equal to the given key.
// Keys are compared with reflect.DeepEqual so composite keys work.
func Key(key any) Selector {
	return SelectorFunc(func(k any) bool {
		return reflect.DeepEqual(k, key)
	})
}

// Type returns a selector matching keys whose dynamic type is T,
// including interface satisfaction.
func Type[T any]() Selector {
	return SelectorFunc(func(k any) bool {
		_, ok := k.(T)
		return ok
	})
}

// Errors returns a selector matching any key that is an error. This is
// the signal class composables subscribe to for fabric-level failures.
func Errors() Selector {
	return Type[error]()
}

// Is returns a selector matching error keys for which errors.Is reports
// a match against target. Non-error keys never match.
func Is(target error) Selector {
	return SelectorFunc(func(k any) bool {
		err, ok := k.(error)
		return ok && errors.Is(err, target)
	})
}
