package dispatch

import (
	"github.com/google/uuid"
)

// Event carries a value through the scheduling fabric.
type Event struct {
	// ID uniquely identifies this delivery.
	ID string
	// Key is the signal key the event was published under, if any.
	Key any
	// Data is the payload.
	Data any
}

// Wrap creates an Event around a payload.
func Wrap(data any) Event {
	return Event{
		ID:   uuid.NewString(),
		Data: data,
	}
}

// WrapKey creates an Event around a payload published under a signal key.
func WrapKey(key, data any) Event {
	return Event{
		ID:   uuid.NewString(),
		Key:  key,
		Data: data,
	}
}
