package compose

import (
	"errors"
	"fmt"
)

// ErrAlreadyCompleted is returned by Set and SetError on a promise that
// has already reached a terminal state.
var ErrAlreadyCompleted = errors.New("promise already completed")

// FilteredError is the failure a Filter produces when its predicate
// rejects the value. It is a defined negative outcome, not a user error,
// and carries the rejected value.
type FilteredError struct {
	Value any
}

// Error implements error.
func (e *FilteredError) Error() string {
	return fmt.Sprintf("value rejected by filter: %v", e.Value)
}

// IsFiltered reports whether err is, or wraps, a FilteredError.
func IsFiltered(err error) bool {
	var fe *FilteredError
	return errors.As(err, &fe)
}
