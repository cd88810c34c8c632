package dispatch

// Handler processes a delivered event.
type Handler func(ev Event)

// Middleware wraps handler execution on the dispatch path.
type Middleware func(next Handler) Handler

// Registration is an opaque handle to a registered handler.
type Registration interface {
	// ID returns the registration handle.
	ID() string

	// Cancel removes the handler. Safe to call more than once.
	Cancel()
}

// Observable is the scheduling capability the composition engine depends
// on. Implementations must never run a scheduled handler synchronously on
// the calling goroutine.
type Observable interface {
	// On registers a handler for every signal whose key matches sel.
	On(sel Selector, h Handler) Registration

	// Notify delivers ev to all handlers whose selector matches key.
	// Delivery is asynchronous.
	Notify(key any, ev Event)

	// Schedule queues a single invocation of h with ev.
	Schedule(h Handler, ev Event)
}
